package service

import (
	"context"
	"time"

	"github.com/wricardo/trailgrid/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName, seed string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	HandleInput(ctx context.Context, sessionID, key string) (*InputResponse, error)
	Teleport(ctx context.Context, sessionID string) (*InputResponse, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations. Create, Get and List
// return copies, so their timestamps never change under the caller.
type SessionManager interface {
	Create(id string, config *engine.GameConfig, opts ...engine.Option) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Notifier receives the render events of every session. Notify runs on the
// engine's commit path and must not block.
type Notifier interface {
	Notify(sessionID string, ev engine.RenderEvent)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(sessionID string, ev engine.RenderEvent)

// Notify calls f(sessionID, ev)
func (f NotifierFunc) Notify(sessionID string, ev engine.RenderEvent) {
	f(sessionID, ev)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Copy returns a shallow copy of s sharing its engine and config
func (s *Session) Copy() *Session {
	cp := *s
	return &cp
}
