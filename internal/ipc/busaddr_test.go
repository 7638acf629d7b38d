package ipc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvFromProc(t *testing.T) {
	// Test with current process
	pid := os.Getpid()

	// Try to read PATH which should exist in most environments
	value, err := getEnvFromProc(pid, "PATH")
	if !assert.NoError(t, err, "Should be able to read PATH from current process") {
		return
	}
	assert.NotEmpty(t, value, "PATH should not be empty")

	// Compare with os.Getenv to verify correctness
	assert.Equal(t, os.Getenv("PATH"), value, "Value from /proc should match os.Getenv")
}

func TestGetEnvFromProc_NotFound(t *testing.T) {
	_, err := getEnvFromProc(os.Getpid(), "NONEXISTENT_VARIABLE_THAT_SHOULD_NOT_EXIST")
	assert.Error(t, err, "Should return error for non-existent variable")
	assert.Contains(t, err.Error(), "not found")
}

func TestGetEnvFromProc_InvalidPID(t *testing.T) {
	_, err := getEnvFromProc(999999, "PATH")
	assert.Error(t, err, "Should return error for invalid PID")
}

func TestScanNullTerminated(t *testing.T) {
	advance, token, err := scanNullTerminated([]byte("A=1\x00B=2"), false)
	assert.NoError(t, err)
	assert.Equal(t, 4, advance)
	assert.Equal(t, []byte("A=1"), token)

	advance, token, _ = scanNullTerminated([]byte("B=2"), false)
	assert.Zero(t, advance)
	assert.Nil(t, token)

	advance, token, _ = scanNullTerminated([]byte("B=2"), true)
	assert.Equal(t, 3, advance)
	assert.Equal(t, []byte("B=2"), token)
}

func TestSessionBusAddressMissing(t *testing.T) {
	_, err := sessionBusAddress(999999, 999999)
	assert.Error(t, err)
}
