package integrity

// Diff compares a current hash vector against a reference vector and
// reports the changed block indices (ascending) and the percent of blocks
// that differ. Indices beyond the shorter vector's length are reported as
// changed too, covering appended or removed blocks.
func Diff(current, reference []string) (changed []int, changePercent float64) {
	minLen := len(current)
	if len(reference) < minLen {
		minLen = len(reference)
	}
	maxLen := len(current)
	if len(reference) > maxLen {
		maxLen = len(reference)
	}

	for i := 0; i < minLen; i++ {
		if current[i] != reference[i] {
			changed = append(changed, i)
		}
	}
	for i := minLen; i < maxLen; i++ {
		changed = append(changed, i)
	}

	if maxLen == 0 {
		return changed, 0
	}
	return changed, 100 * float64(len(changed)) / float64(maxLen)
}
