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
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/service"
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
		baseURL: baseURL,
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
		"Bus Jam Puzzle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Bus Jam Puzzle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Board every person onto a bus of their own color. Only people with a free path
to the exit row can be selected. People whose color does not match the active
bus wait in a small waiting area; if it overflows you lose.

AVAILABLE TOOLS:
- create_session: Create a new puzzle session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current puzzle state
- select_person: Select one playable person - requires intent explanation
- bulk_select: Select several people in order - requires intent explanation
- complete_movement: Finish the walk of one moving person
- complete_all: Finish every pending walk
- reset_game: Restart the level
- hint: Ask the solver for the next selection
- selection_history: View past selections
- list_levels: List available levels
- game_instructions: Get complete rules and strategy notes

NOTE: The 'intent' parameter on select tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"session_id": sessionProperty()},
		Required:   []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session with optional level selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Level id from list_levels (optional, defaults to the default level)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	// Puzzle operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current puzzle state: grid, buses, waiting area and playable people",
		InputSchema: sessionOnlySchema(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_person",
		Description: "Select a playable person. They walk to the active bus if the colors match, otherwise to the waiting area.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"person_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the person to select",
				},
				// Only for the caller's reasoning, never forwarded
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this person (serves as a rubber duck to help explain your reasoning)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Restart the level before selecting",
				},
			},
			Required: []string{"session_id", "person_id"},
		},
	}, c.handleSelect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_select",
		Description: "Select several people in order. Stops at the first rejected selection or when the game ends.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"person_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": fmt.Sprintf("Person IDs in selection order (at most %d)", engine.MaxBulkSelections),
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Restart the level before selecting",
				},
			},
			Required: []string{"session_id", "person_ids"},
		},
	}, c.handleBulkSelect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "complete_movement",
		Description: "Finish the walk of a moving person so they board or take a waiting slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"person_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the moving person",
				},
			},
			Required: []string{"session_id", "person_id"},
		},
	}, c.handleComplete)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "complete_all",
		Description: "Finish every pending walk in selection order",
		InputSchema: sessionOnlySchema(),
	}, c.handleCompleteAll)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the level from its initial layout",
		InputSchema: sessionOnlySchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Ask the solver which person to select next",
		InputSchema: sessionOnlySchema(),
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "selection_history",
		Description: "Get selection history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available puzzle levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get complete rules and strategy notes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
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

// Argument helpers. JSON numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func intSliceArg(args map[string]interface{}, key string) ([]int, error) {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	ids := make([]int, 0, len(raw))
	for i, v := range raw {
		n, ok := intArg(map[string]interface{}{"v": v}, "v")
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an integer", key, i)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.GameState != nil {
			status = string(s.GameState.Phase)
		}
		fmt.Fprintf(&b, "- %s (Level: %s, Created: %s, %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID+"/state", nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)
	personID, ok := intArg(args, "person_id")
	if !ok {
		return mcp.NewToolResultError("person_id must be an integer"), nil
	}

	var result service.SelectResult
	body := map[string]interface{}{"person_id": personID, "reset": reset}
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/select", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSelectResult(&result)), nil
}

func (c *Client) handleBulkSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	reset, _ := args["reset"].(bool)
	ids, err := intSliceArg(args, "person_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.BulkSelectResult
	body := map[string]interface{}{"person_ids": ids, "reset": reset}
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/bulk-select", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkSelectResult(sessionID, &result)), nil
}

func (c *Client) handleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	personID, ok := intArg(args, "person_id")
	if !ok {
		return mcp.NewToolResultError("person_id must be an integer"), nil
	}

	var result service.SelectResult
	body := map[string]interface{}{"person_id": personID}
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/complete", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSelectResult(&result)), nil
}

func (c *Client) handleCompleteAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.CompleteResult
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/complete-all", nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d movement(s)\n", len(result.Results))
	for _, r := range result.Results {
		fmt.Fprintf(&b, "- person %d: %s\n", r.PersonID, r.Outcome)
	}
	writeEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/reset", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var hint service.HintResult
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID+"/hint", nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHint(&hint)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	path := "/api/sessions/" + sessionID + "/history"
	var params []string
	if page, ok := intArg(args, "page"); ok {
		params = append(params, fmt.Sprintf("page=%d", page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params = append(params, fmt.Sprintf("limit=%d", limit))
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Levels (%d):\n\n", len(configs))
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, %d people, %d buses, %d waiting slots",
			cfg.ConfigID, cfg.Name, cfg.Width, cfg.Height, cfg.People, cfg.Buses, cfg.WaitingCapacity)
		if cfg.TimeLimitSeconds > 0 {
			fmt.Fprintf(&b, ", %ds limit", cfg.TimeLimitSeconds)
		}
		b.WriteString(")\n")
		if cfg.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cfg.Description)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `Bus Jam Puzzle - Complete Instructions

GAME OBJECTIVE:
Board every person on the grid onto a bus of the same color.

GRID LEGEND:
- Letters (R, B, G, Y, ...) are people; the letter is their color
- . is an empty walkable cell
- # is a wall
- x or blank is outside the play area
- The last row of the grid is the exit row, next to the bus stop

BUSES:
- Buses arrive one at a time in a fixed order. The active bus is at the stop,
  the next bus is queued behind it
- A bus leaves when it is full, and the next one pulls in
- When a bus arrives, waiting people of its color board it automatically

SELECTING PEOPLE:
- Only playable people can be selected: those on the exit row, or with a free
  path of empty cells to the exit row
- A selected person walks to the active bus when the colors match, otherwise
  to the first free waiting slot
- Selections start a walk. Use complete_movement or complete_all to finish it

LOSING:
- Selecting a mismatched person while the waiting area is full
- The waiting area is full and no bus matches anyone waiting
- No one on the grid can move and nothing is left to resolve
- The level timer runs out (timed levels only)

STRATEGY:
1. Read the bus order first; it decides everything
2. Board matching people before filling the waiting area
3. Keep at least one waiting slot free for emergencies
4. Free blocked people by clearing the cells in front of them
5. Use hint when stuck; it runs a search from the current state

VICTORY CONDITIONS:
Every person is on a bus. Good luck clearing the jam!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n",
		session.ID, session.ConfigName, session.CreatedAt.Format(time.RFC3339))
	if session.Deadline != nil {
		result += fmt.Sprintf("Deadline: %s\n", session.Deadline.Format(time.RFC3339))
	}
	return result + "\n" + formatGameState(session.GameState)
}

func formatBus(bus *engine.Bus) string {
	if bus == nil {
		return "none"
	}
	return fmt.Sprintf("%s %d/%d", bus.Color, bus.Occupancy, bus.Capacity)
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s (%dx%d)\n", state.ConfigName, state.Width, state.Height)

	if len(state.Grid) > 0 {
		b.WriteString("\nGrid (last row is the exit row):\n")
		for _, row := range state.Grid {
			b.WriteString(row)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Active bus: %s\n", formatBus(state.ActiveBus))
	fmt.Fprintf(&b, "Next bus: %s\n", formatBus(state.NextBus))
	fmt.Fprintf(&b, "Buses remaining: %d\n", state.BusesRemaining)
	fmt.Fprintf(&b, "Waiting: %s (%d/%d)\n", formatWaiting(state), state.WaitingCount, state.WaitingCapacity)
	fmt.Fprintf(&b, "Boarded: %d/%d\n", state.BoardedCount, state.TotalPeople)
	if len(state.InTransit) > 0 {
		fmt.Fprintf(&b, "Walking: %v\n", state.InTransit)
	}
	fmt.Fprintf(&b, "Playable: %s\n", formatPlayable(state))

	switch {
	case state.Victory:
		b.WriteString("\n🎉 VICTORY!\n")
	case state.GameOver:
		fmt.Fprintf(&b, "\n💀 GAME OVER (%s)\n", state.LoseReason)
	default:
		fmt.Fprintf(&b, "Phase: %s\n", state.Phase)
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	return b.String()
}

func colorOf(state *engine.GameState, id int) string {
	if id >= 0 && id < len(state.People) {
		return state.People[id].Color.String()
	}
	return "?"
}

func formatWaiting(state *engine.GameState) string {
	slots := make([]string, len(state.Waiting))
	for i, id := range state.Waiting {
		if id == engine.NoOccupant {
			slots[i] = "_"
		} else {
			slots[i] = fmt.Sprintf("%d:%s", id, colorOf(state, id))
		}
	}
	return "[" + strings.Join(slots, " ") + "]"
}

func formatPlayable(state *engine.GameState) string {
	if len(state.Playable) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(state.Playable))
	for _, id := range state.Playable {
		part := fmt.Sprintf("%d:%s", id, colorOf(state, id))
		if id < len(state.People) && state.People[id].Position != nil {
			pos := state.People[id].Position
			part += fmt.Sprintf("@(%d,%d)", pos.X, pos.Z)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func writeEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("\nEvents:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
	}
}

func formatSelectResult(result *service.SelectResult) string {
	var b strings.Builder

	r := result.Result
	if r.Accepted {
		fmt.Fprintf(&b, "✓ Person %d: %s", r.PersonID, r.Outcome)
		if r.Intent != "" {
			fmt.Fprintf(&b, " (heading to %s)", r.Intent)
		}
		b.WriteString("\n")
		if len(r.Path) > 0 {
			steps := make([]string, len(r.Path))
			for i, p := range r.Path {
				steps[i] = fmt.Sprintf("(%d,%d)", p.X, p.Z)
			}
			fmt.Fprintf(&b, "Path: %s\n", strings.Join(steps, "→"))
		}
	} else {
		fmt.Fprintf(&b, "✗ Person %d rejected: %s\n", r.PersonID, r.Reason)
	}

	if r.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", r.Message)
	}

	writeEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkSelectResult(sessionID string, result *service.BulkSelectResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Level: %s\n", sessionID, configName)
	fmt.Fprintf(&b, "Executed %d/%d selections\n", result.SelectionsExecuted, result.RequestedSelections)
	fmt.Fprintf(&b, "Boarded: %d → %d\n", result.BoardedBefore, result.BoardedAfter)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to %d selections\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on selection %d: %s (%s)\n",
			result.StoppedOnSelection, result.StoppedReason, result.StopReasonCode)
	}

	if len(result.Results) > 0 {
		b.WriteString("\nSelections:\n")
		for i, r := range result.Results {
			status := "✓"
			detail := r.Outcome
			if !r.Accepted {
				status = "✗"
				detail = r.Reason
			}
			fmt.Fprintf(&b, "%d. person %d %s %s\n", i+1, r.PersonID, detail, status)
		}
	}

	writeEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHint(hint *service.HintResult) string {
	var b strings.Builder
	if hint.NextPersonID < 0 {
		b.WriteString("No selection available\n")
	} else {
		fmt.Fprintf(&b, "Next: person %d\n", hint.NextPersonID)
	}
	if hint.Solvable {
		fmt.Fprintf(&b, "Winning plan: %v\n", hint.Plan)
	}
	fmt.Fprintf(&b, "States explored: %d\n", hint.Explored)
	if hint.BudgetHit {
		b.WriteString("Search budget exhausted\n")
	}
	if hint.Message != "" {
		fmt.Fprintf(&b, "%s\n", hint.Message)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Selection History (Page %d/%d, Total: %d)\n\n",
		history.Page, history.TotalPages, history.TotalEntries)

	for _, entry := range history.Entries {
		status := "✓"
		if !entry.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s person %d → %s %s", entry.Number, entry.Action, entry.PersonID, entry.Outcome, status)
		if entry.BusColor != "" {
			fmt.Fprintf(&b, " [bus %s]", entry.BusColor)
		}
		fmt.Fprintf(&b, " waiting=%d\n", entry.WaitingLen)
	}

	return b.String()
}
