// Package mcp exposes Trail Grid to AI agents over the Model Context Protocol.
//
// The Client registers MCP tools and proxies every call to the REST API, so
// an agent plays the same sessions a browser or terminal renderer shows.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: both grids rendered as text
//   - press_key: arrow keys or space, optionally waiting for the move to land
//   - teleport
//   - move_history
//   - describe_cell
//   - list_configs, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
