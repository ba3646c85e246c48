// Package api provides the HTTP REST API for Trail Grid sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "classic", "seed": "..."})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Full snapshot of both grids
//   - POST /api/sessions/{id}/input - Press a key ({"key": "ArrowUp"})
//   - POST /api/sessions/{id}/teleport - Same as pressing space
//   - GET /api/sessions/{id}/history - Move history (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - Get one configuration
//   - POST /api/configs - Save a configuration ({"config_id": "...", "config": {...}})
//
// Other:
//   - GET /health - Liveness probe
//   - GET /ws?session={id} - WebSocket render stream
//
// Errors are returned as JSON with an HTTP status code:
//
//	{"error": "session not found: ..."}
//
// Unknown sessions and configurations map to 404, malformed bodies and
// invalid configurations to 400.
package api
