// Package mcp exposes the bus jam puzzle to AI agents over the Model Context
// Protocol.
//
// The client is a thin proxy: every tool call is translated into a REST call
// against a running puzzle server and the JSON response is rendered as text.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: grid, buses, waiting area and playable people
//   - select_person, bulk_select: start walks (with an intent note)
//   - complete_movement, complete_all: finish walks
//   - reset_game, hint, selection_history
//   - list_levels, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
