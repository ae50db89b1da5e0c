// Package service is the business layer between the transports
// (HTTP, WebSocket, MCP) and the bus-jam engine.
//
// GameService owns multi-session play. Each session holds its own
// engine.PuzzleController guarded by the service, so callers never touch an
// engine directly. Every operation subscribes to the engine's event stream for
// its duration, converts what it sees into GameEvent values, saves the session
// and appends the events to the optional EventLog.
//
// SessionManager, ConfigManager and EventLog are interfaces so the session
// and config packages (or test mocks) can be plugged in.
//
// Timed levels carry a deadline on the Session. ExpireOverdue is called
// periodically by the server to end levels whose timer ran out.
//
// Hint runs the bounded solver on a snapshot of the session, so it never
// blocks play for longer than the snapshot copy.
package service
