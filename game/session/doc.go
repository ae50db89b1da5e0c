// Package session keeps live puzzle sessions and their stored copies.
//
// Manager is the in-memory registry. Session ids are case-insensitive and
// default to 4 random hex characters. Every create and access update is
// written through to a SessionPersistence when one is configured, and a
// session missing from memory is loaded back from storage on demand.
//
// Two stores are provided:
//   - FilePersistence writes one JSON document per session
//   - SQLitePersistence keeps sessions and the per-session event log in a
//     single SQLite database (pure Go driver, no cgo)
//
// Both store the engine snapshot plus the level id. Restoring a session
// reloads the level through the config manager and replays the snapshot,
// so people caught mid-movement resume exactly where they were.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("data/busjam.db", levels)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	sess, err := manager.Create("", level)
package session
