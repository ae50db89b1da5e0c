package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for puzzle operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() *GameState
	IsGameOver() bool
	IsVictory() bool
	Phase() Phase

	// Player and driver input
	Select(personID int) SelectResult
	CompleteMovement(personID int) SelectResult
	CompleteAll() []SelectResult
	Expire() bool

	// Queries for UI layers
	IsPersonPlayable(personID int) bool
	CurrentBus() *Bus
	WaitingCount() int
	IsWaitingFull() bool

	// Notifications
	Subscribe(obs Observer) func()

	// Configuration
	GetConfig() *LevelConfig

	// Resume support
	Snapshot() *Snapshot
	Restore(snapshot *Snapshot) error

	// History
	GetHistory() []HistoryEntry
}

// SelectResult describes what a selection or a movement completion did
type SelectResult struct {
	Accepted bool        `json:"accepted"`
	PersonID int         `json:"person_id"`
	Reason   string      `json:"reason,omitempty"`
	Intent   Destination `json:"intent,omitempty"`
	Outcome  string      `json:"outcome,omitempty"` // in_transit, boarded, waiting, redirected, lost
	Path     []Position  `json:"path,omitempty"`
	Message  string      `json:"message"`
}

// Selection outcomes
const (
	OutcomeInTransit  = "in_transit"
	OutcomeBoarded    = "boarded"
	OutcomeWaiting    = "waiting"
	OutcomeRedirected = "redirected"
	OutcomeLost       = "lost"
	OutcomeRejected   = "rejected"
)

type transit struct {
	personID int
	intent   Destination
	path     []Position
}

// PuzzleController implements the Engine interface. It owns the grid, the
// waiting area and the bus sequence of one level and is their only mutator.
// It is not safe for concurrent use.
type PuzzleController struct {
	config  *LevelConfig
	grid    *Grid
	paths   *Pathfinder
	waiting *WaitingArea
	buses   *BusSequence
	people  []*Person
	moving  []transit

	// Playability cache, valid for one grid revision
	playable      []bool
	playableRev   uint64
	playableValid bool

	phase        Phase
	boarded      int
	gameActive   bool
	winTriggered bool
	loseReason   string
	message      string

	history         []HistoryEntry
	totalSelections int

	events emitter
}

// NewEngine validates the level and starts it
func NewEngine(config *LevelConfig) (*PuzzleController, error) {
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}

	e := &PuzzleController{config: config}
	e.build()
	e.start()
	return e, nil
}

// NewEngineWithDefaults starts the built-in level
func NewEngineWithDefaults() *PuzzleController {
	e, err := NewEngine(DefaultLevelConfig())
	if err != nil {
		// The built-in level is always valid
		panic(fmt.Sprintf("default level invalid: %v", err))
	}
	return e
}

// build lays out the grid, walls and people from the level config
func (e *PuzzleController) build() {
	cfg := e.config
	height := cfg.Height()
	width := cfg.Width()

	mask := make([][]bool, height)
	for z, row := range cfg.Layout {
		mask[z] = make([]bool, width)
		for x := 0; x < width && x < len(row); x++ {
			mask[z][x] = isPlayAreaCode(row[x])
		}
	}

	e.grid = NewGrid(width, height, mask)
	e.grid.SetTransform(cfg.CellSize, cfg.Origin.X, cfg.Origin.Z)
	e.paths = NewPathfinder(e.grid)
	e.waiting = NewWaitingArea(cfg.WaitingCapacity)
	e.buses = NewBusSequence(cfg.Buses)
	e.people = nil
	e.moving = nil

	for z, row := range cfg.Layout {
		for x := 0; x < width && x < len(row); x++ {
			cell := e.grid.CellAt(x, z)
			switch ch := row[x]; ch {
			case LayoutWall:
				e.grid.SetOccupied(cell, WallOccupant)
			case LayoutVoidVisible:
				e.grid.SetVisible(cell, true)
			default:
				color, ok := ColorFromCode(ch)
				if !ok {
					continue
				}
				p := &Person{
					ID:     len(e.people),
					Color:  color,
					Status: OnGrid,
					Cell:   cell,
					Start:  cell.Position(),
				}
				e.people = append(e.people, p)
				e.grid.SetOccupied(cell, p.ID)
			}
		}
	}

	e.playable = make([]bool, len(e.people))
	e.playableValid = false
	e.boarded = 0
	e.winTriggered = false
	e.loseReason = ""
}

// start spawns the first buses and opens the level for selections
func (e *PuzzleController) start() {
	e.phase = SpawningBuses
	e.gameActive = true

	e.buses.Start()
	if bus := e.buses.Arrive(); bus != nil {
		e.emitBusArrived(bus)
	}

	e.message = msgWelcome(e.config, len(e.people), e.buses.Len())
	e.events.emit(Event{Type: EventGameMessage, Message: e.message})

	e.phase = ActiveWaiting
	e.refreshPlayability()
	e.evaluate()
}

// Subscribe registers an observer and returns its unsubscribe function
func (e *PuzzleController) Subscribe(obs Observer) func() {
	return e.events.subscribe(obs)
}

// GetConfig returns the level configuration
func (e *PuzzleController) GetConfig() *LevelConfig { return e.config }

// Grid returns the play grid
func (e *PuzzleController) Grid() *Grid { return e.grid }

// Pathfinder returns the pathfinder bound to the grid
func (e *PuzzleController) Pathfinder() *Pathfinder { return e.paths }

// WaitingArea returns the waiting area
func (e *PuzzleController) WaitingArea() *WaitingArea { return e.waiting }

// Buses returns the bus sequence
func (e *PuzzleController) Buses() *BusSequence { return e.buses }

// Person returns the person with the given id, or nil
func (e *PuzzleController) Person(id int) *Person {
	if id < 0 || id >= len(e.people) {
		return nil
	}
	return e.people[id]
}

// People returns every person of the level
func (e *PuzzleController) People() []*Person { return e.people }

// Phase returns the controller state
func (e *PuzzleController) Phase() Phase { return e.phase }

// IsGameOver reports whether the level ended
func (e *PuzzleController) IsGameOver() bool { return !e.gameActive }

// IsVictory reports whether the level was won
func (e *PuzzleController) IsVictory() bool { return e.phase == LevelComplete }

// WinTriggered reports whether the win condition was latched
func (e *PuzzleController) WinTriggered() bool { return e.winTriggered }

// LoseReason returns the reason code of a lost level
func (e *PuzzleController) LoseReason() string { return e.loseReason }

// TotalPeople returns the number of people in the level
func (e *PuzzleController) TotalPeople() int { return len(e.people) }

// BoardedCount returns how many people boarded a bus
func (e *PuzzleController) BoardedCount() int { return e.boarded }

// CurrentBus returns the active bus, or nil
func (e *PuzzleController) CurrentBus() *Bus { return e.buses.CurrentActive() }

// WaitingCount returns the number of people in the waiting area
func (e *PuzzleController) WaitingCount() int { return e.waiting.OccupiedCount() }

// IsWaitingFull reports whether the waiting area is full
func (e *PuzzleController) IsWaitingFull() bool { return e.waiting.IsFull() }

// InTransitIDs returns the ids of moving people in selection order
func (e *PuzzleController) InTransitIDs() []int {
	ids := make([]int, len(e.moving))
	for i, t := range e.moving {
		ids[i] = t.personID
	}
	return ids
}

// GetHistory returns the cumulative action history
func (e *PuzzleController) GetHistory() []HistoryEntry { return e.history }

// Reset restarts the level while keeping the cumulative history and observers
func (e *PuzzleController) Reset() *GameState {
	e.build()
	e.start()
	return e.GetState()
}

// IsPersonPlayable reports whether a grid-resident person can currently move.
// Front-row people are always playable.
func (e *PuzzleController) IsPersonPlayable(personID int) bool {
	p := e.Person(personID)
	if p == nil || !p.OnGrid() {
		return false
	}
	if e.grid.IsExitRow(p.Cell.Z) {
		return true
	}
	// Reads never write the cache; every mutation refreshes it before returning
	if e.playableValid && e.playableRev == e.grid.Revision() {
		return e.playable[personID]
	}
	return e.paths.CanReachExit(p.Cell)
}

// PlayableIDs returns the ids of every playable person in id order
func (e *PuzzleController) PlayableIDs() []int {
	var ids []int
	for _, p := range e.people {
		if e.IsPersonPlayable(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// refreshPlayability recomputes the cache when the grid changed since the last run
func (e *PuzzleController) refreshPlayability() {
	rev := e.grid.Revision()
	if e.playableValid && e.playableRev == rev {
		return
	}
	for i, p := range e.people {
		switch {
		case !p.OnGrid():
			e.playable[i] = false
		case e.grid.IsExitRow(p.Cell.Z):
			e.playable[i] = true
		default:
			e.playable[i] = e.paths.CanReachExit(p.Cell)
		}
	}
	e.playableRev = rev
	e.playableValid = true
}

// Select handles a "person selected" intent from the input layer
func (e *PuzzleController) Select(personID int) SelectResult {
	result := SelectResult{PersonID: personID}

	if reason := e.rejectReason(personID); reason != "" {
		return e.reject(result, "select", reason)
	}

	p := e.people[personID]
	from := p.Cell.Position()

	var path []*Cell
	if e.grid.IsExitRow(p.Cell.Z) {
		path = []*Cell{p.Cell}
		if direct, ok := e.paths.FindPathToExit(p.Cell); ok {
			path = direct
		}
	} else {
		var ok bool
		path, ok = e.paths.FindPathToExit(p.Cell)
		if !ok {
			return e.reject(result, "select", RejectNoPath)
		}
	}

	result.Accepted = true
	result.Path = positions(path)
	result.Intent = e.intentFor(p)

	if result.Intent == ToWaiting && e.waiting.IsFull() {
		e.lose(ReasonWaitingAreaFull, msgWaitingFull(e.config))
		result.Outcome = OutcomeLost
		result.Message = e.message
		e.record("select", personID, &from, result.Outcome, true)
		return result
	}

	e.grid.SetEmpty(p.Cell)
	p.Cell = nil
	p.Status = InTransit
	e.moving = append(e.moving, transit{personID: personID, intent: result.Intent, path: result.Path})
	e.events.emit(Event{Type: EventPersonMoved, PersonID: personID, Path: result.Path})

	result.Outcome = OutcomeInTransit
	e.record("select", personID, &from, result.Outcome, true)

	if e.config.InstantMovement {
		done := e.CompleteMovement(personID)
		done.Path = result.Path
		return done
	}

	e.refreshPlayability()
	e.evaluate()
	result.Message = e.message
	return result
}

// CompleteMovement resolves the destination of a moving person against the
// current state: a bus that filled up meanwhile sends the person to the waiting
// area, and a full waiting area loses the level.
func (e *PuzzleController) CompleteMovement(personID int) SelectResult {
	result := SelectResult{PersonID: personID}

	if !e.gameActive {
		return e.reject(result, "complete", RejectGameOver)
	}
	idx := -1
	for i, t := range e.moving {
		if t.personID == personID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e.reject(result, "complete", RejectNotInTransit)
	}

	t := e.moving[idx]
	e.moving = append(e.moving[:idx], e.moving[idx+1:]...)
	p := e.people[personID]

	result.Accepted = true
	result.Intent = t.intent
	result.Path = t.path

	// A full bus still parked at the stop leaves before anyone new arrives
	if bus := e.buses.CurrentActive(); bus != nil && bus.IsFull() {
		e.cascade()
	}

	bus := e.buses.CurrentActive()
	if bus != nil && bus.Color == p.Color && e.buses.BoardPassenger(bus) {
		e.boardPerson(p, bus)
		result.Outcome = OutcomeBoarded
		if bus.IsFull() {
			e.cascade()
		} else {
			bus.settle()
		}
	} else {
		if t.intent == ToBus {
			e.events.emit(Event{Type: EventPersonRedirected, PersonID: personID, Message: msgRedirected(p.Color)})
			result.Outcome = OutcomeRedirected
		} else {
			result.Outcome = OutcomeWaiting
		}

		if !e.waiting.TryAdd(p) {
			e.lose(ReasonWaitingAreaFull, msgWaitingFull(e.config))
			result.Outcome = OutcomeLost
		} else {
			e.message = msgWaiting(p.Color, e.waiting)
			e.events.emit(Event{Type: EventPersonWaiting, PersonID: personID, Message: e.message})
		}
	}

	e.record("complete", personID, nil, result.Outcome, true)
	e.refreshPlayability()
	e.evaluate()
	result.Message = e.message
	return result
}

// CompleteAll resolves every moving person in selection order
func (e *PuzzleController) CompleteAll() []SelectResult {
	var results []SelectResult
	for len(e.moving) > 0 && e.gameActive {
		results = append(results, e.CompleteMovement(e.moving[0].personID))
	}
	return results
}

// Expire is called by the external countdown timer and loses the level
func (e *PuzzleController) Expire() bool {
	if !e.gameActive {
		return false
	}
	e.lose(ReasonTimerExpired, msgTimerExpired(e.config))
	e.record("expire", -1, nil, OutcomeLost, true)
	return true
}

// CheckWinCondition reports whether every person is processed and every waiting
// color can still be served by the active bus or an upcoming one
func (e *PuzzleController) CheckWinCondition() bool {
	if e.boarded+e.waiting.OccupiedCount() != len(e.people) {
		return false
	}
	for _, color := range e.waiting.Colors() {
		if !e.canServe(color) {
			return false
		}
	}
	return true
}

// CheckLoseCondition evaluates the settled-state lose rules and returns the
// reason code, or "" when the level can continue. A full waiting area is
// detected where a person tries to enter it.
//
// Once nobody moves and nobody is playable the level is settled for good:
// buses only leave when full, and nothing is left to fill them.
func (e *PuzzleController) CheckLoseCondition() string {
	if len(e.moving) > 0 {
		return ""
	}
	if e.anyPlayable() {
		return ""
	}

	if e.unservedColor() != nil {
		return ReasonNoBusForWaiting
	}
	if e.boarded+e.waiting.OccupiedCount() < len(e.people) {
		return ReasonNoPlayablePeople
	}
	return ""
}

// canServe reports whether the active bus or a later one takes color
func (e *PuzzleController) canServe(color Color) bool {
	if active := e.buses.CurrentActive(); active != nil && active.Color == color {
		return true
	}
	return e.buses.HasUpcoming(color)
}

// unservedColor returns the first waiting color no bus will ever take
func (e *PuzzleController) unservedColor() *Color {
	for _, color := range e.waiting.Colors() {
		if !e.canServe(color) {
			return &color
		}
	}
	return nil
}

func (e *PuzzleController) anyPlayable() bool {
	for _, p := range e.people {
		if e.IsPersonPlayable(p.ID) {
			return true
		}
	}
	return false
}

// evaluate re-runs lose and win detection after a committed mutation
func (e *PuzzleController) evaluate() {
	if !e.gameActive {
		return
	}

	switch reason := e.CheckLoseCondition(); reason {
	case "":
	case ReasonNoBusForWaiting:
		e.lose(reason, msgNoBus(e.config, *e.unservedColor()))
		return
	default:
		e.lose(reason, msgStuck(e.config))
		return
	}

	if e.CheckWinCondition() {
		e.winTriggered = true
		e.drain()
		e.complete()
	}
}

// cascade departs full buses, promotes the queued ones and boards waiting
// people of the new color until the active bus has space or none is left
func (e *PuzzleController) cascade() {
	e.phase = MovingBuses
	for {
		bus := e.buses.CurrentActive()
		if bus == nil || !bus.IsFull() {
			break
		}
		departed, promoted := e.buses.Depart()
		e.emitBusDeparted(departed)
		if promoted == nil {
			break
		}
		e.emitBusArrived(promoted)
		e.boardFromWaiting(promoted)
	}
	if e.gameActive {
		e.phase = ActiveWaiting
	}
}

// drain plays out the remaining buses once the win is latched, so the last bus
// is shown departing before the level completes
func (e *PuzzleController) drain() {
	e.phase = MovingBuses
	for {
		bus := e.buses.CurrentActive()
		if bus == nil {
			break
		}
		e.boardFromWaiting(bus)
		departed, promoted := e.buses.Depart()
		e.emitBusDeparted(departed)
		if e.waiting.IsEmpty() || promoted == nil {
			break
		}
		e.emitBusArrived(promoted)
	}
}

func (e *PuzzleController) boardFromWaiting(bus *Bus) {
	for _, p := range e.waiting.TakeByColor(bus.Color, bus.Free()) {
		if !e.buses.BoardPassenger(bus) {
			// TakeByColor never returns more than the free seats
			break
		}
		e.boardPerson(p, bus)
	}
	bus.settle()
}

func (e *PuzzleController) boardPerson(p *Person, bus *Bus) {
	p.Status = Boarded
	p.Cell = nil
	e.boarded++
	e.message = msgBoarded(p.Color, bus)
	spec := bus.Spec()
	e.events.emit(Event{Type: EventPersonBoarded, PersonID: p.ID, Bus: &spec, BusIndex: bus.Index, Message: e.message})
}

func (e *PuzzleController) complete() {
	e.phase = LevelComplete
	e.gameActive = false
	e.message = msgVictory(e.config, e.boarded+e.waiting.OccupiedCount())
	e.events.emit(Event{Type: EventLevelComplete, Message: e.message})
}

func (e *PuzzleController) lose(reason, message string) {
	e.phase = Lost
	e.gameActive = false
	e.loseReason = reason
	e.message = message
	e.events.emit(Event{Type: EventGameLost, Reason: reason, Message: message})
}

func (e *PuzzleController) emitBusArrived(bus *Bus) {
	spec := bus.Spec()
	e.message = msgBusArrived(bus)
	e.events.emit(Event{Type: EventBusArrived, Bus: &spec, BusIndex: bus.Index, Message: e.message})
}

func (e *PuzzleController) emitBusDeparted(bus *Bus) {
	if bus == nil {
		return
	}
	spec := bus.Spec()
	e.message = msgBusDeparted(bus)
	e.events.emit(Event{Type: EventBusDeparted, Bus: &spec, BusIndex: bus.Index, Message: e.message})
}

// intentFor decides the destination at selection time
func (e *PuzzleController) intentFor(p *Person) Destination {
	bus := e.buses.CurrentActive()
	if bus != nil && bus.Color == p.Color && bus.HasSpace() {
		return ToBus
	}
	return ToWaiting
}

// rejectReason checks a selection without mutating anything
func (e *PuzzleController) rejectReason(personID int) string {
	if !e.gameActive {
		return RejectGameOver
	}
	p := e.Person(personID)
	if p == nil {
		return RejectUnknown
	}
	if !p.OnGrid() {
		return RejectNotOnGrid
	}
	if !p.Cell.PlayArea {
		return RejectNotPlayArea
	}
	if !e.IsPersonPlayable(personID) {
		return RejectNotPlayable
	}
	return ""
}

func (e *PuzzleController) reject(result SelectResult, action, reason string) SelectResult {
	result.Accepted = false
	result.Reason = reason
	result.Outcome = OutcomeRejected
	result.Message = msgRejected(reason)
	e.events.emit(Event{Type: EventGameMessage, PersonID: result.PersonID, Reason: reason, Message: result.Message})
	e.record(action, result.PersonID, nil, OutcomeRejected, false)
	return result
}

// record appends to the cumulative history
func (e *PuzzleController) record(action string, personID int, from *Position, outcome string, success bool) {
	if action == "select" {
		e.totalSelections++
	}
	entry := HistoryEntry{
		Action:     action,
		PersonID:   personID,
		From:       from,
		Outcome:    outcome,
		Success:    success,
		Timestamp:  time.Now().Unix(),
		Number:     len(e.history) + 1,
		WaitingLen: e.waiting.OccupiedCount(),
	}
	if bus := e.buses.CurrentActive(); bus != nil {
		entry.BusColor = bus.Color.String()
	}
	e.history = append(e.history, entry)
}

func positions(cells []*Cell) []Position {
	out := make([]Position, len(cells))
	for i, c := range cells {
		out[i] = c.Position()
	}
	return out
}
