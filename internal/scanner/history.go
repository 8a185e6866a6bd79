package scanner

import "time"

// HistoryAppender stores published results. store.SQLite implements it.
type HistoryAppender interface {
	AppendHistory(resultID string, cycle int64, at time.Time, payload any) error
}

// RecordHistory returns a publish listener that appends every result to
// h. Failures are logged and do not affect the cycle.
func RecordHistory(h HistoryAppender) func(*Result) {
	return func(r *Result) {
		if err := h.AppendHistory(r.ID, r.Cycle, r.At, r.Matrix); err != nil {
			Logf("scanner: history for cycle %d: %v", r.Cycle, err)
		}
	}
}
