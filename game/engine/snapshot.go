package engine

import "fmt"

// PersonSnapshot is the saved status of one person
type PersonSnapshot struct {
	ID       int          `json:"id"`
	Status   PersonStatus `json:"status"`
	Position *Position    `json:"position,omitempty"`
}

// TransitSnapshot is a saved in-flight movement
type TransitSnapshot struct {
	PersonID int         `json:"person_id"`
	Intent   Destination `json:"intent"`
	Path     []Position  `json:"path,omitempty"`
}

// Snapshot captures the mutable puzzle state so a level can be resumed.
// Static data (walls, colors, bus specs) comes from the level config.
type Snapshot struct {
	ConfigName      string            `json:"config_name"`
	People          []PersonSnapshot  `json:"people"`
	InTransit       []TransitSnapshot `json:"in_transit,omitempty"`
	Waiting         []int             `json:"waiting"`
	BusCursor       int               `json:"bus_cursor"`
	ActiveBus       int               `json:"active_bus"`
	ActiveOccupancy int               `json:"active_occupancy"`
	NextBus         int               `json:"next_bus"`
	Phase           Phase             `json:"phase"`
	WinTriggered    bool              `json:"win_triggered"`
	LoseReason      string            `json:"lose_reason,omitempty"`
	Message         string            `json:"message"`
	History         []HistoryEntry    `json:"history"`
	TotalSelections int               `json:"total_selections"`
}

// Snapshot returns a copy of the mutable state
func (e *PuzzleController) Snapshot() *Snapshot {
	s := &Snapshot{
		ConfigName:      e.config.Name,
		People:          make([]PersonSnapshot, len(e.people)),
		Waiting:         e.waiting.Slots(),
		BusCursor:       e.buses.Cursor(),
		ActiveBus:       -1,
		NextBus:         -1,
		Phase:           e.phase,
		WinTriggered:    e.winTriggered,
		LoseReason:      e.loseReason,
		Message:         e.message,
		History:         append([]HistoryEntry(nil), e.history...),
		TotalSelections: e.totalSelections,
	}

	for i, p := range e.people {
		ps := PersonSnapshot{ID: p.ID, Status: p.Status}
		if p.OnGrid() {
			pos := p.Cell.Position()
			ps.Position = &pos
		}
		s.People[i] = ps
	}
	for _, t := range e.moving {
		s.InTransit = append(s.InTransit, TransitSnapshot{
			PersonID: t.personID,
			Intent:   t.intent,
			Path:     append([]Position(nil), t.path...),
		})
	}
	if bus := e.buses.CurrentActive(); bus != nil {
		s.ActiveBus = bus.Index
		s.ActiveOccupancy = bus.Occupancy
	}
	if bus := e.buses.Next(); bus != nil {
		s.NextBus = bus.Index
	}

	return s
}

// Restore replaces the mutable state with a snapshot taken from the same level.
// The snapshot is checked in full before anything changes.
func (e *PuzzleController) Restore(s *Snapshot) error {
	if err := e.checkSnapshot(s); err != nil {
		return err
	}

	e.build()

	// Everyone leaves the grid, then grid residents are placed back
	for _, p := range e.people {
		if p.Cell != nil {
			e.grid.SetEmpty(p.Cell)
			p.Cell = nil
		}
	}

	for _, ps := range s.People {
		p := e.people[ps.ID]
		p.Status = ps.Status
		switch ps.Status {
		case OnGrid:
			cell := e.grid.CellAt(ps.Position.X, ps.Position.Z)
			e.grid.SetOccupied(cell, p.ID)
			p.Cell = cell
		case Boarded:
			e.boarded++
		}
	}

	for slot, id := range s.Waiting {
		if id != NoOccupant {
			e.waiting.place(slot, e.people[id])
		}
	}

	for _, t := range s.InTransit {
		e.moving = append(e.moving, transit{
			personID: t.PersonID,
			intent:   t.Intent,
			path:     append([]Position(nil), t.Path...),
		})
	}

	e.buses.restore(s.BusCursor, s.ActiveBus, s.ActiveOccupancy, s.NextBus)

	e.phase = s.Phase
	e.gameActive = s.Phase != LevelComplete && s.Phase != Lost
	e.winTriggered = s.WinTriggered
	e.loseReason = s.LoseReason
	e.message = s.Message
	e.history = append([]HistoryEntry(nil), s.History...)
	e.totalSelections = s.TotalSelections
	e.playableValid = false
	e.refreshPlayability()

	return nil
}

func (e *PuzzleController) checkSnapshot(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if s.ConfigName != e.config.Name {
		return fmt.Errorf("snapshot is for level '%s', not '%s'", s.ConfigName, e.config.Name)
	}
	if len(s.People) != len(e.people) {
		return fmt.Errorf("snapshot has %d people, level has %d", len(s.People), len(e.people))
	}

	switch s.Phase {
	case SpawningBuses, ActiveWaiting, MovingBuses, LevelComplete, Lost:
	default:
		return fmt.Errorf("snapshot has unknown phase '%s'", s.Phase)
	}

	status := make(map[int]PersonStatus, len(s.People))
	occupied := make(map[Position]bool)
	for i, ps := range s.People {
		if ps.ID != i {
			return fmt.Errorf("snapshot person %d has id %d", i, ps.ID)
		}
		status[ps.ID] = ps.Status
		switch ps.Status {
		case OnGrid:
			if ps.Position == nil {
				return fmt.Errorf("person %d is on the grid without a position", ps.ID)
			}
			cell := e.grid.CellAt(ps.Position.X, ps.Position.Z)
			if cell == nil || !cell.PlayArea || cell.IsWall() {
				return fmt.Errorf("person %d is placed on an invalid cell (%d,%d)", ps.ID, ps.Position.X, ps.Position.Z)
			}
			if occupied[*ps.Position] {
				return fmt.Errorf("two people share cell (%d,%d)", ps.Position.X, ps.Position.Z)
			}
			occupied[*ps.Position] = true
		case Boarded, Waiting, InTransit:
		default:
			return fmt.Errorf("person %d has unknown status '%s'", ps.ID, ps.Status)
		}
	}

	if len(s.Waiting) != e.waiting.Capacity() {
		return fmt.Errorf("snapshot has %d waiting slots, level has %d", len(s.Waiting), e.waiting.Capacity())
	}
	seen := make(map[int]bool)
	for _, id := range s.Waiting {
		if id == NoOccupant {
			continue
		}
		if status[id] != Waiting || seen[id] {
			return fmt.Errorf("waiting slot holds person %d who is not waiting", id)
		}
		seen[id] = true
	}
	for id, st := range status {
		if st == Waiting && !seen[id] {
			return fmt.Errorf("person %d is waiting without a slot", id)
		}
	}

	moving := make(map[int]bool)
	for _, t := range s.InTransit {
		if status[t.PersonID] != InTransit || moving[t.PersonID] {
			return fmt.Errorf("in-transit entry for person %d who is not moving", t.PersonID)
		}
		if t.Intent != ToBus && t.Intent != ToWaiting {
			return fmt.Errorf("in-transit entry for person %d has unknown intent '%s'", t.PersonID, t.Intent)
		}
		moving[t.PersonID] = true
	}
	for id, st := range status {
		if st == InTransit && !moving[id] {
			return fmt.Errorf("person %d is moving without an in-transit entry", id)
		}
	}

	n := e.buses.Len()
	if s.BusCursor < 0 || s.BusCursor > n {
		return fmt.Errorf("bus cursor %d out of range", s.BusCursor)
	}
	if s.ActiveBus >= s.BusCursor || s.NextBus >= s.BusCursor {
		return fmt.Errorf("live buses must have been drawn before the cursor")
	}
	if s.NextBus >= 0 && s.NextBus <= s.ActiveBus {
		return fmt.Errorf("next bus must come after the active bus")
	}
	if s.NextBus >= 0 && s.ActiveBus < 0 {
		return fmt.Errorf("next bus without an active bus")
	}
	if s.ActiveBus >= 0 {
		spec := e.config.Buses[s.ActiveBus]
		if s.ActiveOccupancy < 0 || s.ActiveOccupancy > spec.Capacity {
			return fmt.Errorf("active bus occupancy %d out of range", s.ActiveOccupancy)
		}
	}

	return nil
}
