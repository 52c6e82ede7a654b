package model

// TickResult summarizes one pipeline tick
type TickResult struct {
	CorrelationID string
	Fetched       int
	Processed     int
	Failed        int
	Augmented     int
	Notified      int
}

// Idle reports whether the tick made no progress: nothing was fetched, or every
// fetched document failed
func (r *TickResult) Idle() bool {
	return r == nil || r.Fetched == 0 || r.Processed == 0
}
