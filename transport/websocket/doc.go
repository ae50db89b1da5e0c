// Package websocket pushes live session updates to viewers.
//
// A Hub keeps the viewers of each session (ids are case-insensitive) and
// runs a single event loop that owns registration and fan-out. Viewers are
// read-only: the server sends, the client only keeps the connection alive.
//
// Outgoing messages are JSON envelopes:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "game_events", "events": [...], "game_state": {...}}
//
// game_events carries the engine notifications (person_moved, person_boarded,
// bus_arrived, bus_departed, level_complete, game_lost, ...) produced by one
// operation, so a renderer can animate them in order.
//
// A client that cannot keep up with its send buffer is disconnected. Run
// stops, and closes every client, when its context is cancelled.
package websocket
