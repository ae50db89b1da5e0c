// Package engine implements the bus-jam puzzle simulation.
//
// A level is a grid of colored passengers, walls and open cells. The row with
// the largest z is the exit row where buses stop. The player selects a
// passenger; if a free path to the exit row exists the passenger walks there
// and either boards the active bus of the same color or sits in the bounded
// waiting area. A full bus departs, the queued bus arrives, and waiting
// passengers of its color board automatically.
//
// Core Types:
//
// PuzzleController implements Engine and is the only mutator of the Grid, the
// WaitingArea and the BusSequence of a level. The Pathfinder answers
// reachability questions with a breadth-first search in a fixed neighbor order,
// so paths are deterministic. LevelConfig is loaded from JSON or YAML.
//
// Usage:
//
//	config, err := engine.LoadLevelConfig("levels/intro.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	e, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := e.Select(3)     // passenger starts walking
//	e.CompleteMovement(3)     // passenger arrives at the exit row
//	state := e.GetState()
//
// Movement:
//
// Selection and arrival are separate steps so an animation layer can play the
// walk in between. The destination is checked again on arrival: a bus that
// filled up meanwhile sends the passenger to the waiting area instead. Levels
// with instant_movement set resolve arrival inside Select.
//
// Game Rules:
//
// The level is won when every passenger boarded or waits for a bus color that
// is still coming. It is lost when a passenger needs a full waiting area, when
// nobody can move and nobody waits, when waiting passengers can never be
// picked up, or when the level timer expires.
package engine
