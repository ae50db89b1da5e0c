package engine

// GetState builds a view of the puzzle without mutating it, so concurrent
// readers are safe while no mutation runs
func (e *PuzzleController) GetState() *GameState {
	state := &GameState{
		ConfigName:      e.config.Name,
		Width:           e.grid.Width(),
		Height:          e.grid.Height(),
		Grid:            RenderGrid(e.grid, e.people),
		BusesRemaining:  e.buses.Remaining(),
		BusCursor:       e.buses.Cursor(),
		Waiting:         e.waiting.Slots(),
		WaitingCapacity: e.waiting.Capacity(),
		WaitingCount:    e.waiting.OccupiedCount(),
		InTransit:       e.InTransitIDs(),
		TotalPeople:     len(e.people),
		BoardedCount:    e.boarded,
		Phase:           e.phase,
		GameActive:      e.gameActive,
		WinTriggered:    e.winTriggered,
		GameOver:        !e.gameActive,
		Victory:         e.phase == LevelComplete,
		LoseReason:      e.loseReason,
		Message:         e.message,
		Playable:        []int{},
		History:         e.history,
		TotalSelections: e.totalSelections,
	}

	if bus := e.buses.CurrentActive(); bus != nil {
		copied := *bus
		state.ActiveBus = &copied
	}
	if bus := e.buses.Next(); bus != nil {
		copied := *bus
		state.NextBus = &copied
	}

	state.People = make([]PersonView, len(e.people))
	for i, p := range e.people {
		view := PersonView{ID: p.ID, Color: p.Color, Status: p.Status}
		if p.OnGrid() {
			pos := p.Cell.Position()
			view.Position = &pos
			view.Playable = e.IsPersonPlayable(p.ID)
			if view.Playable {
				state.Playable = append(state.Playable, p.ID)
			}
		}
		state.People[i] = view
	}

	return state
}

// BulkSelect selects people in order and stops once the level ends
func (e *PuzzleController) BulkSelect(personIDs []int) []SelectResult {
	results := make([]SelectResult, 0, len(personIDs))
	for _, id := range personIDs {
		if e.IsGameOver() {
			break
		}
		results = append(results, e.Select(id))
	}
	return results
}

// StateKey encodes everything that affects future play in a compact string.
// Two controllers of the same level with equal keys behave identically.
func (e *PuzzleController) StateKey() string {
	key := make([]byte, 0, len(e.people)+e.waiting.Capacity()+8)
	for _, p := range e.people {
		switch p.Status {
		case OnGrid:
			key = append(key, 'g')
		case InTransit:
			key = append(key, 't')
		case Waiting:
			key = append(key, 'w')
		default:
			key = append(key, 'b')
		}
	}
	key = append(key, '|')
	for _, c := range e.waiting.Colors() {
		key = append(key, c.Code(), byte('0'+e.waiting.CountByColor(c)))
	}
	key = append(key, '|', byte(e.buses.Cursor()))
	if bus := e.buses.CurrentActive(); bus != nil {
		key = append(key, byte(bus.Index), byte(bus.Occupancy))
	}
	return string(key)
}
