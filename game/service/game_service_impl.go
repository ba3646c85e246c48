package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/trailgrid/game/engine"
)

// ErrConfigNotFound is matched against ConfigManager errors to list alternatives
var ErrConfigNotFound = errors.New("configuration not found")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	notifier Notifier
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. The notifier, when
// not nil, receives every render event of every session.
func NewGameService(sessions SessionManager, configs ConfigManager, notifier Notifier) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		notifier: notifier,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session. An empty seed lets the engine
// use the config's seed or generate one.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName, seed string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	var opts []engine.Option
	if seed != "" {
		opts = append(opts, engine.WithSeed(seed))
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.notifier != nil {
		id := sess.ID
		notifier := s.notifier
		sess.Engine.Subscribe(func(ev engine.RenderEvent) {
			notifier.Notify(id, ev)
		})
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"config":  configID,
		"seed":    sess.Engine.Seed(),
	}).Info("session created")

	return s.sessionInfo(sess, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return s.sessionInfo(sess, s.getConfigID(sess.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session and stops its move in flight
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// HandleInput feeds one key press to the session's engine
func (s *gameServiceImpl) HandleInput(ctx context.Context, sessionID, key string) (*InputResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := sess.Engine.HandleInput(key)
	return s.inputResponse(sess, result), nil
}

// Teleport switches the session's traveler to the other grid
func (s *gameServiceImpl) Teleport(ctx context.Context, sessionID string) (*InputResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := sess.Engine.Teleport()
	return s.inputResponse(sess, result), nil
}

// GetGameState returns a snapshot of the session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	snap := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		Seed:           snap.Seed,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          &snap,
		GameConfig:     sess.Config,
	}
}

func (s *gameServiceImpl) inputResponse(sess *Session, result engine.InputResult) *InputResponse {
	snap := sess.Engine.Snapshot()
	resp := &InputResponse{
		Result:  result,
		Message: describeOutcome(result),
		DelayMS: result.Delay.Milliseconds(),
		State:   &snap,
	}
	if pos, kind, distance, ok := engine.FindNearestReward(snap); ok {
		resp.Hint = &RewardHint{Position: pos, Kind: kind, Distance: distance}
	}
	return resp
}

// describeOutcome renders an input result as a short human-readable message
func describeOutcome(result engine.InputResult) string {
	switch result.Outcome {
	case engine.Scheduled:
		if result.Delay == 0 {
			return fmt.Sprintf("Moved to (%d,%d)", result.To.X, result.To.Y)
		}
		return fmt.Sprintf("Moving to (%d,%d), arriving in %dms", result.To.X, result.To.Y, result.Delay.Milliseconds())
	case engine.Busy:
		return "A move is already in progress"
	case engine.NoOp:
		return "Blocked by the edge of the grid"
	case engine.Teleported:
		return fmt.Sprintf("Teleported to the %s grid", result.Grid)
	default:
		return "Key ignored"
	}
}
