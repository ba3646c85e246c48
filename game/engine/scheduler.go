package engine

import "time"

// PendingMove is the handle of the move in flight
type PendingMove struct {
	ID          uint64        `json:"id"`
	Grid        GridID        `json:"grid"`
	From        Position      `json:"from"`
	To          Position      `json:"to"`
	Delay       time.Duration `json:"delay"`
	RequestedAt time.Time     `json:"requested_at"`
	Epoch       uint64        `json:"epoch"` // teleport count when requested
}

// MoveScheduler serializes move requests. It is Idle until a move is
// accepted, Pending until that move commits, and rejects every request
// while Pending. It does no locking of its own; the engine serializes access.
type MoveScheduler struct {
	clock         Clock
	moveDelay     time.Duration
	rareMoveDelay time.Duration

	state   MotionState
	pending PendingMove
	timer   Timer
	nextID  uint64
}

// NewMoveScheduler creates an idle scheduler
func NewMoveScheduler(clock Clock, moveDelay, rareMoveDelay time.Duration) *MoveScheduler {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &MoveScheduler{
		clock:         clock,
		moveDelay:     moveDelay,
		rareMoveDelay: rareMoveDelay,
	}
}

// State returns the current motion state
func (s *MoveScheduler) State() MotionState {
	return s.state
}

// Locked reports whether a move is in flight
func (s *MoveScheduler) Locked() bool {
	return s.state == Pending
}

// Pending returns the move in flight, if any
func (s *MoveScheduler) Pending() (PendingMove, bool) {
	return s.pending, s.state == Pending
}

// Delay returns how long a move onto cell takes on the given grid. Moves on
// the small grid are instant; a rare destination costs the rare delay; a
// trailed destination is free; everything else, ultra-rare included, costs
// the base delay.
func (s *MoveScheduler) Delay(grid GridID, cell Cell) time.Duration {
	switch {
	case grid == Small:
		return 0
	case cell.Kind == Rare:
		return s.rareMoveDelay
	case cell.Trailed:
		return 0
	default:
		return s.moveDelay
	}
}

// Request validates a move from one cell to another. A request while
// Pending is Busy; a request that goes nowhere is a NoOp and leaves the
// scheduler Idle. Otherwise the scheduler turns Pending and the returned
// move carries the computed delay.
func (s *MoveScheduler) Request(grid GridID, from, to Position, cell Cell, epoch uint64) (PendingMove, Outcome) {
	if s.state == Pending {
		return PendingMove{}, Busy
	}
	if from == to {
		return PendingMove{}, NoOp
	}

	s.nextID++
	s.state = Pending
	s.pending = PendingMove{
		ID:          s.nextID,
		Grid:        grid,
		From:        from,
		To:          to,
		Delay:       s.Delay(grid, cell),
		RequestedAt: s.clock.Now(),
		Epoch:       epoch,
	}
	return s.pending, Scheduled
}

// Arm starts the commit timer for the pending move. It returns false when
// the delay is zero, in which case the caller commits right away.
func (s *MoveScheduler) Arm(fire func()) bool {
	if s.state != Pending || s.pending.Delay <= 0 {
		return false
	}
	s.timer = s.clock.AfterFunc(s.pending.Delay, fire)
	return true
}

// Complete ends the Pending episode identified by id and returns its move.
// It reports false when that episode is no longer pending, so each episode
// commits at most once and a late timer cannot complete a newer move.
func (s *MoveScheduler) Complete(id uint64) (PendingMove, bool) {
	if s.state != Pending || s.pending.ID != id {
		return PendingMove{}, false
	}
	move := s.pending
	s.state = Idle
	s.pending = PendingMove{}
	s.timer = nil
	return move, true
}

// Cancel stops the outstanding timer and returns the scheduler to Idle.
// Only session teardown uses it; gameplay never aborts a scheduled move.
func (s *MoveScheduler) Cancel() bool {
	if s.state != Pending {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.Complete(s.pending.ID)
	return true
}
