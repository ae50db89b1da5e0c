// Package api provides the HTTP REST API for the bus jam puzzle server.
//
// The api package implements:
//   - Session management endpoints
//   - Puzzle operations (select, bulk select, movement completion, reset, expire)
//   - Solver hints, paginated history and the persisted event log
//   - Level listing, lookup and upload
//   - WebSocket upgrade for live spectators
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions                       - Create session {"config_id": "default"}
//   - GET    /api/sessions?sort=&order=&limit=   - List sessions
//   - GET    /api/sessions/unified               - Several sessions side by side
//   - GET    /api/sessions/{id}                  - Get session
//   - DELETE /api/sessions/{id}                  - Delete session
//
// Puzzle Operations:
//   - GET  /api/sessions/{id}/state         - Current puzzle state
//   - POST /api/sessions/{id}/select        - {"person_id": 3, "reset": false}
//   - POST /api/sessions/{id}/bulk-select   - {"person_ids": [3, 0, 2]}
//   - POST /api/sessions/{id}/complete      - {"person_id": 3}
//   - POST /api/sessions/{id}/complete-all  - Resolve every moving person
//   - POST /api/sessions/{id}/reset         - Restart the level
//   - POST /api/sessions/{id}/expire        - Force the level timer to expire
//   - GET  /api/sessions/{id}/hint          - Next selection suggested by the solver
//   - GET  /api/sessions/{id}/history       - ?page=1&limit=20&order=desc
//   - GET  /api/sessions/{id}/events        - ?limit=50
//
// Levels:
//   - GET  /api/configs         - List levels
//   - GET  /api/configs/{name}  - Level definition
//   - POST /api/configs         - Save a level (JSON level body plus optional config_id)
//
// Errors are returned as JSON with an HTTP status code:
//
//	{"error": "session not found"}
//
// Usage:
//
//	server := api.NewServer(gameService, hub)
//	http.ListenAndServe(":8080", server)
package api
