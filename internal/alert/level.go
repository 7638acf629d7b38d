package alert

// Level maps a volume percentage onto a mixer with steps discrete levels,
// truncating toward zero.
func Level(pct float64, steps int) int {
	if steps <= 0 || pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return steps
	}
	return int(pct * float64(steps) / 100)
}
