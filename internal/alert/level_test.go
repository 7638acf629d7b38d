package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name     string
		pct      float64
		steps    int
		expected int
	}{
		{"Forty percent of fifteen", 40, 15, 6},
		{"Full volume", 100, 15, 15},
		{"Silent", 0, 15, 0},
		{"Truncates", 50, 15, 7},
		{"Just below a step", 33, 3, 0},
		{"Exact step", 100.0 / 3, 3, 1},
		{"Above range", 150, 7, 7},
		{"Negative", -10, 7, 0},
		{"No steps", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Level(tt.pct, tt.steps))
		})
	}
}
