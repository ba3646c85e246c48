package engine

// TrailTracker is the ordered log of main-grid cells visited since the last
// teleport. The durable per-cell flag lives in GridModel; the log lets a
// renderer re-apply trail marks after a full repaint.
type TrailTracker struct {
	visits []Position
}

// NewTrailTracker creates an empty trail log
func NewTrailTracker() *TrailTracker {
	return &TrailTracker{}
}

// RecordVisit appends pos to the log
func (t *TrailTracker) RecordVisit(pos Position) {
	t.visits = append(t.visits, pos)
}

// ForEachVisited replays the log in visit order
func (t *TrailTracker) ForEachVisited(fn func(Position)) {
	for _, pos := range t.visits {
		fn(pos)
	}
}

// Positions returns a copy of the log
func (t *TrailTracker) Positions() []Position {
	out := make([]Position, len(t.visits))
	copy(out, t.visits)
	return out
}

// Len returns the number of recorded visits
func (t *TrailTracker) Len() int {
	return len(t.visits)
}

// Reset clears the log
func (t *TrailTracker) Reset() {
	t.visits = nil
}
