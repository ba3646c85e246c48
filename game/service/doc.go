// Package service provides the business logic layer for the Trail Grid game.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Key input routing to each session's engine
//   - Render event fan-out to a Notifier
//   - Move history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// Notifier receives the render events of every session, tagged by session ID.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP/terminal)
// and the game engine, providing session isolation, configuration management, and
// business logic orchestration. Each session maintains its own game engine
// instance with independent state.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, hub)
//
//	// Create a new session
//	sessionInfo, err := gameService.CreateSession(ctx, "classic", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Press keys
//	resp, err := gameService.HandleInput(ctx, sessionInfo.ID, "ArrowRight")
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and maintain independent
// game state. Multiple sessions can run concurrently with different
// configurations. Deleting a session stops its move in flight.
package service
