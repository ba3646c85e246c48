package service

import (
	"time"

	"github.com/wricardo/trailgrid/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	Seed           string             `json:"seed"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	State          *engine.Snapshot   `json:"state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// InputResponse contains the result of one key press
type InputResponse struct {
	Result  engine.InputResult `json:"result"`
	Message string             `json:"message"`
	DelayMS int64              `json:"delay_ms"`
	State   *engine.Snapshot   `json:"state"`
	Hint    *RewardHint        `json:"hint,omitempty"`
}

// RewardHint points at the closest reward left on the active grid
type RewardHint struct {
	Position engine.Position `json:"position"`
	Kind     engine.CellKind `json:"kind"`
	Distance int             `json:"distance"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename             string  `json:"filename"`
	ConfigID             string  `json:"config_id"` // The identifier to use for session creation
	Name                 string  `json:"name"`      // Display name
	Description          string  `json:"description"`
	SmallGridSize        int     `json:"small_grid_size"`
	MainGridSize         int     `json:"main_grid_size"`
	RareProbability      float64 `json:"rare_probability"`
	UltraRareProbability float64 `json:"ultra_rare_probability"`
	TeleportWhilePending string  `json:"teleport_while_pending"`
}
