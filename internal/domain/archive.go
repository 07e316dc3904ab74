package domain

// ArchiveRow is one analyzed signal together with its advisory outcome,
// captured at the end of a scan cycle for long-term analysis.
type ArchiveRow struct {
	CycleAt        int64 // Unix ms, cycle completion time
	Signal         *Signal
	Recommendation *Recommendation // nil when the signal produced no advice
	Notified       bool
}
