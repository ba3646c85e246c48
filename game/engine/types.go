package engine

import "time"

// CellKind represents the reward state of a grid cell
type CellKind string

const (
	Normal    CellKind = "normal"
	Rare      CellKind = "rare"
	UltraRare CellKind = "ultra_rare"
)

// GridID identifies one of the two grids
type GridID string

const (
	Small GridID = "small"
	Main  GridID = "main"
)

// Other returns the grid a teleport from g lands on
func (g GridID) Other() GridID {
	if g == Small {
		return Main
	}
	return Small
}

const (
	DefaultSmallGridSize        = 5
	DefaultMainGridSize         = 20
	DefaultRareProbability      = 0.05
	DefaultUltraRareProbability = 1.0 / 2000
	DefaultMoveDelay            = 300 * time.Millisecond
	DefaultRareMoveDelay        = 1200 * time.Millisecond

	NormalScore    = 1
	RareScore      = 50
	UltraRareScore = 1000

	// Validation constants
	MinGridSize       = 1
	MaxGridSize       = 100
	MaxHistoryEntries = 1000
	MaxMoveDelayMS    = 60000
)

// Cell represents a single grid cell
type Cell struct {
	Kind    CellKind `json:"kind"`
	Trailed bool     `json:"trailed,omitempty"`
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction is a unit move on the grid
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Key is a normalized input key
type Key string

const (
	KeyUp    Key = "ArrowUp"
	KeyDown  Key = "ArrowDown"
	KeyLeft  Key = "ArrowLeft"
	KeyRight Key = "ArrowRight"
	KeySpace Key = " "
	KeyOther Key = ""
)

// Outcome is the result of handling one input
type Outcome string

const (
	Scheduled  Outcome = "scheduled"
	Busy       Outcome = "busy"
	NoOp       Outcome = "noop"
	Ignored    Outcome = "ignored"
	Teleported Outcome = "teleported"
)

// MotionState is the state of the move scheduler
type MotionState int

const (
	Idle MotionState = iota
	Pending
)

func (s MotionState) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// MarshalText encodes the state by name so snapshots read well as JSON
func (s MotionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText
func (s *MotionState) UnmarshalText(b []byte) error {
	if string(b) == "pending" {
		*s = Pending
	} else {
		*s = Idle
	}
	return nil
}

// EventType names a render notification
type EventType string

const (
	EventMove        EventType = "move"
	EventTeleport    EventType = "teleport"
	EventStaleCommit EventType = "stale_commit"
)

// RenderEvent carries everything a renderer needs to update its view after a
// committed move or a teleport without re-querying the full state
type RenderEvent struct {
	Type       EventType  `json:"type"`
	Grid       GridID     `json:"grid"`
	FromGrid   GridID     `json:"from_grid"`
	From       Position   `json:"from"`
	To         Position   `json:"to"`
	Score      int        `json:"score"`
	ScoreDelta int        `json:"score_delta"`
	Collected  CellKind   `json:"collected,omitempty"` // reward consumed by this commit
	Trail      []Position `json:"trail,omitempty"`     // trail log replay for the main grid
	Stale      bool       `json:"stale,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// RenderListener receives render notifications
type RenderListener func(RenderEvent)

// InputResult describes how the engine handled one key
type InputResult struct {
	Key     Key           `json:"key"`
	Outcome Outcome       `json:"outcome"`
	Grid    GridID        `json:"grid"`
	From    Position      `json:"from"`
	To      Position      `json:"to"`
	Delay   time.Duration `json:"delay"`
}

// GridView is a copy of one grid's cells
type GridView struct {
	ID    GridID   `json:"id"`
	Size  int      `json:"size"`
	Cells [][]Cell `json:"cells"`
}

// Snapshot is a read-only copy of the whole session state
type Snapshot struct {
	ActiveGrid GridID      `json:"active_grid"`
	Position   Position    `json:"position"`
	Score      int         `json:"score"`
	Motion     MotionState `json:"motion"`
	Pending    *Position   `json:"pending_to,omitempty"`
	Trail      []Position  `json:"trail"`
	Small      GridView    `json:"small"`
	Main       GridView    `json:"main"`
	Seed       string      `json:"seed"`
	ConfigName string      `json:"config_name"`
	TotalMoves int         `json:"total_moves"`
}

// MoveHistoryEntry represents a single handled input in the game history
type MoveHistoryEntry struct {
	Action     string   `json:"action"`
	Outcome    Outcome  `json:"outcome"`
	Grid       GridID   `json:"grid"`
	From       Position `json:"from_position"`
	To         Position `json:"to_position"`
	DelayMS    int64    `json:"delay_ms"`
	ScoreDelta int      `json:"score_delta"`
	Collected  CellKind `json:"collected,omitempty"`
	Timestamp  int64    `json:"timestamp"`
	MoveNumber int      `json:"move_number"`
}
