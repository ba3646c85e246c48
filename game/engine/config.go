package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidConfig is returned for configurations that cannot produce a playable game
var ErrInvalidConfig = errors.New("invalid game configuration")

// Teleport policies for a teleport requested while a move is in flight
const (
	TeleportAllow = "allow" // teleport anyway; the late commit goes stale
	TeleportBlock = "block" // reject the teleport as busy
)

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	SmallGridSize        int     `json:"small_grid_size"`
	MainGridSize         int     `json:"main_grid_size"`
	RareProbability      float64 `json:"rare_probability"`
	UltraRareProbability float64 `json:"ultra_rare_probability"`
	MoveDelayMS          int     `json:"move_delay_ms"`
	RareMoveDelayMS      int     `json:"rare_move_delay_ms"`
	TeleportWhilePending string  `json:"teleport_while_pending,omitempty"`
	Seed                 string  `json:"seed,omitempty"`
}

// DefaultGameConfig returns the classic rules: a 5x5 home grid, a 20x20
// main grid, 5% rare and 1/2000 ultra-rare cells, 300ms and 1200ms moves
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:                 "classic",
		Description:          "Classic trail grid: 5x5 home grid, 20x20 main grid",
		SmallGridSize:        DefaultSmallGridSize,
		MainGridSize:         DefaultMainGridSize,
		RareProbability:      DefaultRareProbability,
		UltraRareProbability: DefaultUltraRareProbability,
		MoveDelayMS:          int(DefaultMoveDelay / time.Millisecond),
		RareMoveDelayMS:      int(DefaultRareMoveDelay / time.Millisecond),
		TeleportWhilePending: TeleportAllow,
	}
}

// MoveDelay returns the base move delay
func (c *GameConfig) MoveDelay() time.Duration {
	return time.Duration(c.MoveDelayMS) * time.Millisecond
}

// RareMoveDelay returns the delay of a move onto a rare cell
func (c *GameConfig) RareMoveDelay() time.Duration {
	return time.Duration(c.RareMoveDelayMS) * time.Millisecond
}

// BlocksTeleportWhilePending reports whether teleports wait for the move in flight
func (c *GameConfig) BlocksTeleportWhilePending() bool {
	return c.TeleportWhilePending == TeleportBlock
}

// Clone returns a copy of the configuration
func (c *GameConfig) Clone() *GameConfig {
	clone := *c
	return &clone
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := validateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func validateGameConfig(config *GameConfig) error {
	if strings.TrimSpace(config.Name) == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.SmallGridSize < MinGridSize || config.SmallGridSize > MaxGridSize {
		return fmt.Errorf("config validation: small_grid_size must be between %d and %d, got %d",
			MinGridSize, MaxGridSize, config.SmallGridSize)
	}
	if config.MainGridSize < MinGridSize || config.MainGridSize > MaxGridSize {
		return fmt.Errorf("config validation: main_grid_size must be between %d and %d, got %d",
			MinGridSize, MaxGridSize, config.MainGridSize)
	}

	// NaN fails both comparisons, so test the accepted range positively
	if !(config.RareProbability >= 0 && config.RareProbability <= 1) {
		return fmt.Errorf("config validation: rare_probability must be within [0,1], got %v", config.RareProbability)
	}
	if !(config.UltraRareProbability >= 0 && config.UltraRareProbability <= 1) {
		return fmt.Errorf("config validation: ultra_rare_probability must be within [0,1], got %v", config.UltraRareProbability)
	}

	if config.MoveDelayMS < 0 || config.MoveDelayMS > MaxMoveDelayMS {
		return fmt.Errorf("config validation: move_delay_ms must be between 0 and %d, got %d", MaxMoveDelayMS, config.MoveDelayMS)
	}
	if config.RareMoveDelayMS < 0 || config.RareMoveDelayMS > MaxMoveDelayMS {
		return fmt.Errorf("config validation: rare_move_delay_ms must be between 0 and %d, got %d", MaxMoveDelayMS, config.RareMoveDelayMS)
	}

	switch config.TeleportWhilePending {
	case "", TeleportAllow, TeleportBlock:
	default:
		return fmt.Errorf("config validation: teleport_while_pending must be %q or %q, got %q",
			TeleportAllow, TeleportBlock, config.TeleportWhilePending)
	}

	return nil
}

// ParseGameConfig decodes and validates a JSON configuration. Fields that
// are absent keep their classic defaults.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	config := DefaultGameConfig()
	config.Name = ""
	config.Description = ""
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ParseGameConfig(data)
}
