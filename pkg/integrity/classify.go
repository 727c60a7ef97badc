package integrity

// Classification is the outcome of comparing a current hash vector against
// a file's baseline.
type Classification string

const (
	NoChange           Classification = "NoChange"
	AllowedChange      Classification = "AllowedChange"
	CriticalChange     Classification = "CriticalChange"
	SuspiciousChange   Classification = "SuspiciousChange"
	UnauthorizedChange Classification = "UnauthorizedChange"
)

// Thresholds carries the two independent gates a change is classified
// against: block_change_threshold (percent, [0,100]) and entropy_threshold
// (bits/byte, [0,8]).
type Thresholds struct {
	BlockChangePercent float64
	EntropyThreshold   float64
}

// Classify implements spec.md §4.2's classification rules exactly.
// isUpdateMode is a flag the Orchestrator passes in from the Mode Manager's
// current state — the Integrity Engine itself has no mode awareness.
func Classify(changedCount int, changePercent, entropy float64, isUpdateMode bool, t Thresholds) Classification {
	if changedCount == 0 {
		return NoChange
	}
	if isUpdateMode {
		return AllowedChange
	}

	meetsBlockThreshold := changePercent >= t.BlockChangePercent
	meetsEntropyThreshold := entropy >= t.EntropyThreshold

	switch {
	case meetsBlockThreshold && meetsEntropyThreshold:
		return CriticalChange
	case meetsBlockThreshold != meetsEntropyThreshold:
		return SuspiciousChange
	default:
		return UnauthorizedChange
	}
}
