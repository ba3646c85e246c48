// Package websocket provides WebSocket transport for the Trail Grid game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Render event fan-out to every client of a session
//   - Key input from clients
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection has a read and a write
// goroutine; the hub loop owns the client registry. Hub implements
// service.Notifier, so the game service can hand it every committed move
// and teleport without blocking the engine.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//   - Incoming: {"key": "ArrowUp"} (also "up", " ", "space")
//   - Outgoing: {"event": "state", "state": {...}} on connect and after
//     render events were dropped by a full queue,
//     {"event": "render", "render": {...}} for every render event,
//     {"event": "input", "input": {...}} in reply to a key,
//     {"event": "error", "error": "..."} on failures
//
// Usage:
//
//	hub := websocket.NewHub()
//	gameService := service.NewGameService(sessions, configs, hub)
//	hub.SetBackend(gameService)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
