package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/trailgrid/game/engine"
	"github.com/wricardo/trailgrid/game/service"
)

// Grid legend used in every text rendering
const (
	charToken     = "@"
	charNormal    = "."
	charTrailed   = "#"
	charRare      = "r"
	charUltraRare = "U"
	charPending   = "+"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Trail Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Trail Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Score as many points as possible on the 20x20 main grid. You start on a
small 5x5 grid where nothing scores; press space (teleport) to switch grids.

AVAILABLE TOOLS:
- create_session: Create a new game session
- list_sessions / get_session: Inspect sessions
- game_state: Both grids, token, trail and score
- press_key: Press ArrowUp/ArrowDown/ArrowLeft/ArrowRight or space
- teleport: Same as pressing space
- move_history: View past moves
- describe_cell: Details of one cell
- list_configs: Available configurations
- game_instructions: Full rules

NOTE: moves are not instant. press_key with wait=true sleeps until the
move lands and returns the new state.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config and seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the config to use (optional)",
				},
				"seed": map[string]interface{}{
					"type":        "string",
					"description": "Seed phrase; the same seed always produces the same grids (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with both grids rendered as text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "press_key",
		Description: "Press a key. Arrow keys schedule a move, space teleports. Keys pressed while a move is pending are ignored (busy).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"key": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight", "space"},
					"description": "Key to press",
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Wait for the scheduled move to land and return the resulting state",
				},
			},
			Required: []string{"session_id", "key"},
		},
	}, c.handlePressKey)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "teleport",
		Description: "Switch between the small and the main grid; the token lands on (0,0)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleTeleport)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the move history of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Entries per page (default 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell of a grid: its reward kind and whether it is trailed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"grid": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"small", "main"},
					"description": "Grid to inspect (default: the active grid)",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Column, 0 is the left edge",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Row, 0 is the top edge",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configName, _ := args["config_name"].(string)
	seed, _ := args["seed"].(string)

	body := map[string]string{}
	if configName != "" {
		body["config_id"] = configName
	}
	if seed != "" {
		body["seed"] = seed
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nSeed: %s\n", session.ID, session.ConfigName, session.Seed)
	if session.State != nil {
		result += "\n" + formatGameState(session.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score := 0
		if s.State != nil {
			score = s.State.Score
		}
		result += fmt.Sprintf("- %s (Config: %s, Score: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePressKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	key, _ := args["key"].(string)
	wait, _ := args["wait"].(bool)

	var resp service.InputResponse
	err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/input", sessionID), map[string]string{"key": key}, &resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatInputResponse(&resp)

	if wait && resp.Result.Outcome == engine.Scheduled && resp.DelayMS > 0 {
		select {
		case <-time.After(time.Duration(resp.DelayMS)*time.Millisecond + 20*time.Millisecond):
		case <-ctx.Done():
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}

		var state engine.Snapshot
		if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result += "\nAfter arrival:\n" + formatGameState(&state)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTeleport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var resp service.InputResponse
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/teleport", sessionID), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatInputResponse(&resp)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	query := ""
	if page, ok := args["page"].(float64); ok && page > 0 {
		query += fmt.Sprintf("&page=%d", int(page))
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query += fmt.Sprintf("&limit=%d", int(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		query += "&order=" + order
	}
	if query != "" {
		query = "?" + query[1:]
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/history%s", sessionID, query), nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	gridName, _ := args["grid"].(string)
	xf, okX := args["x"].(float64)
	yf, okY := args["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required numbers"), nil
	}

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeCell(&state, engine.GridID(gridName), int(xf), int(yf))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("- %s: %s (small %dx%d, main %dx%d, rare %.3f, ultra rare %.4f)\n",
			cfg.ConfigID, cfg.Name, cfg.SmallGridSize, cfg.SmallGridSize, cfg.MainGridSize, cfg.MainGridSize,
			cfg.RareProbability, cfg.UltraRareProbability)
		if cfg.Description != "" {
			result += fmt.Sprintf("  %s\n", cfg.Description)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Trail Grid - Complete Instructions

GAME OBJECTIVE:
Move a token around the main grid and collect points. There is no end state.

GRIDS:
- Small grid (default 5x5): where every session starts. Nothing here scores.
- Main grid (default 20x20): where points come from.
- Space teleports between the grids. The token always lands on (0,0).

GRID LEGEND:
- %s  Your token
- %s  Normal cell
- %s  Trailed cell (already walked from on the main grid)
- %s  Rare reward
- %s  Ultra rare reward
- %s  Pending move target

SCORING (main grid only):
- Arriving on an untrailed normal cell: %d point
- Rare reward: %d points (collected once)
- Ultra rare reward: %d points (collected once)
- Trailed normal cell: nothing

MOVE TIMING:
- Arrow keys schedule a move; it lands after a delay.
- Onto a rare cell: %dms. Onto an untrailed cell: %dms. Onto a trailed cell: instant.
- Small grid moves are instant.
- While a move is pending, other arrow keys are rejected (busy).
- Moving into the edge does nothing.

TRAIL:
- Every cell you leave on the main grid becomes trailed.
- Teleporting clears the trail.

STRATEGY:
- Walk over trailed cells to travel quickly.
- Teleport twice to reset the trail so cells score again.

Good luck!`,
		charToken, charNormal, charTrailed, charRare, charUltraRare, charPending,
		engine.NormalScore, engine.RareScore, engine.UltraRareScore,
		engine.DefaultRareMoveDelay.Milliseconds(), engine.DefaultMoveDelay.Milliseconds())

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nSeed: %s\nCreated: %s\nLast Accessed: %s\n",
		session.ID, session.ConfigName, session.Seed,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.State != nil {
		result += "\n" + formatGameState(session.State)
	}
	return result
}

func formatGameState(state *engine.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Active Grid: %s\n", state.ActiveGrid)
	fmt.Fprintf(&b, "Position: (%d,%d)\n", state.Position.X, state.Position.Y)
	fmt.Fprintf(&b, "Score: %d\n", state.Score)
	fmt.Fprintf(&b, "Motion: %s", state.Motion)
	if state.Pending != nil {
		fmt.Fprintf(&b, " -> (%d,%d)", state.Pending.X, state.Pending.Y)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Trail: %d cells\n", len(state.Trail))
	fmt.Fprintf(&b, "Rewards left on main: %d rare, %d ultra rare\n",
		engine.CountKind(state.Main, engine.Rare), engine.CountKind(state.Main, engine.UltraRare))

	if pos, kind, dist, ok := engine.FindNearestReward(*state); ok {
		fmt.Fprintf(&b, "Nearest reward: %s at (%d,%d), %d steps\n", kind, pos.X, pos.Y, dist)
	}

	view := state.Main
	if state.ActiveGrid == engine.Small {
		view = state.Small
	}
	fmt.Fprintf(&b, "\n%s grid (%dx%d):\n", view.ID, view.Size, view.Size)
	b.WriteString(renderGrid(view, state))

	return b.String()
}

// renderGrid draws a grid view one row per line with the token on top
func renderGrid(view engine.GridView, state *engine.Snapshot) string {
	active := view.ID == state.ActiveGrid

	var b strings.Builder
	for y, row := range view.Cells {
		for x, cell := range row {
			pos := engine.Position{X: x, Y: y}
			switch {
			case active && pos == state.Position:
				b.WriteString(charToken)
			case active && state.Pending != nil && pos == *state.Pending:
				b.WriteString(charPending)
			default:
				b.WriteString(cellChar(cell))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellChar(cell engine.Cell) string {
	switch {
	case cell.Kind == engine.UltraRare:
		return charUltraRare
	case cell.Kind == engine.Rare:
		return charRare
	case cell.Trailed:
		return charTrailed
	default:
		return charNormal
	}
}

func formatInputResponse(resp *service.InputResponse) string {
	res := resp.Result

	var b strings.Builder
	switch res.Outcome {
	case engine.Scheduled:
		fmt.Fprintf(&b, "✓ Move scheduled on %s grid: (%d,%d) -> (%d,%d), lands in %dms\n",
			res.Grid, res.From.X, res.From.Y, res.To.X, res.To.Y, resp.DelayMS)
	case engine.Teleported:
		fmt.Fprintf(&b, "✓ Teleported to the %s grid at (%d,%d)\n", res.Grid, res.To.X, res.To.Y)
	case engine.Busy:
		b.WriteString("✗ Busy: a move is still pending\n")
	case engine.NoOp:
		fmt.Fprintf(&b, "✗ Blocked by the edge at (%d,%d)\n", res.From.X, res.From.Y)
	default:
		fmt.Fprintf(&b, "✗ Key %q ignored\n", res.Key)
	}

	if resp.Message != "" {
		fmt.Fprintf(&b, "%s\n", resp.Message)
	}
	if resp.Hint != nil {
		fmt.Fprintf(&b, "Hint: nearest %s at (%d,%d), %d steps\n",
			resp.Hint.Kind, resp.Hint.Position.X, resp.Hint.Position.Y, resp.Hint.Distance)
	}
	if resp.State != nil {
		fmt.Fprintf(&b, "Score: %d\n", resp.State.Score)
	}
	return b.String()
}

func describeCell(state *engine.Snapshot, grid engine.GridID, x, y int) string {
	if grid == "" {
		grid = state.ActiveGrid
	}

	var view engine.GridView
	switch grid {
	case engine.Small:
		view = state.Small
	case engine.Main:
		view = state.Main
	default:
		return fmt.Sprintf("Unknown grid %q, use small or main", grid)
	}

	if x < 0 || y < 0 || y >= len(view.Cells) || x >= len(view.Cells[y]) {
		return fmt.Sprintf("(%d,%d) is outside the %s grid (%dx%d)", x, y, grid, view.Size, view.Size)
	}

	cell := view.Cells[y][x]
	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d) on %s grid\n", x, y, grid)
	fmt.Fprintf(&b, "Kind: %s\n", cell.Kind)
	fmt.Fprintf(&b, "Trailed: %t\n", cell.Trailed)

	fmt.Fprintf(&b, "Score on arrival: %d\n", engine.Award(grid, cell.Kind, cell.Trailed))

	if grid == state.ActiveGrid && state.Position == (engine.Position{X: x, Y: y}) {
		b.WriteString("Your token is here\n")
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Move History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		result += fmt.Sprintf("%d. %s %s on %s (%d,%d)->(%d,%d)",
			move.MoveNumber, move.Action, move.Outcome, move.Grid,
			move.From.X, move.From.Y, move.To.X, move.To.Y)
		if move.ScoreDelta != 0 {
			result += fmt.Sprintf(" +%d", move.ScoreDelta)
		}
		if move.Collected != "" {
			result += fmt.Sprintf(" [%s]", move.Collected)
		}
		result += "\n"
	}

	return result
}
