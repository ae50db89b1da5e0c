package engine

// BusSequence presents an authored list of buses two at a time: one active bus
// accepting passengers and at most one queued next bus.
type BusSequence struct {
	specs   []BusSpec
	cursor  int
	active  *Bus
	next    *Bus
	retired []*Bus
}

// NewBusSequence copies the specs; the sequence never changes after load
func NewBusSequence(specs []BusSpec) *BusSequence {
	copied := make([]BusSpec, len(specs))
	copy(copied, specs)
	return &BusSequence{specs: copied}
}

// Len returns the number of authored buses
func (s *BusSequence) Len() int { return len(s.specs) }

// Cursor returns how many buses have been drawn from the sequence
func (s *BusSequence) Cursor() int { return s.cursor }

// Remaining returns how many buses have not been drawn yet
func (s *BusSequence) Remaining() int { return len(s.specs) - s.cursor }

// Specs returns a copy of the authored buses
func (s *BusSequence) Specs() []BusSpec {
	copied := make([]BusSpec, len(s.specs))
	copy(copied, s.specs)
	return copied
}

// CurrentActive returns the bus accepting passengers, or nil
func (s *BusSequence) CurrentActive() *Bus { return s.active }

// Next returns the queued bus, or nil
func (s *BusSequence) Next() *Bus { return s.next }

// Retired returns the buses that already left
func (s *BusSequence) Retired() []*Bus { return s.retired }

// Exhausted reports whether no bus is left to draw and none is queued
func (s *BusSequence) Exhausted() bool {
	return s.cursor >= len(s.specs) && s.next == nil
}

// ActivateNext draws the next bus from the sequence and marks it active.
// It returns nil once the sequence is exhausted.
func (s *BusSequence) ActivateNext() *Bus {
	bus := s.draw()
	if bus == nil {
		return nil
	}
	bus.Active = true
	bus.State = Approaching
	return bus
}

// Start spawns the first active bus and the queued next bus
func (s *BusSequence) Start() *Bus {
	if s.active != nil {
		return s.active
	}
	s.active = s.ActivateNext()
	s.next = s.drawQueued()
	return s.active
}

// Arrive moves an approaching active bus into the waiting state
func (s *BusSequence) Arrive() *Bus {
	if s.active != nil && s.active.State == Approaching {
		s.active.State = BusWaiting
	}
	return s.active
}

// BoardPassenger seats one passenger on bus. Full buses refuse without mutation.
func (s *BusSequence) BoardPassenger(bus *Bus) bool {
	if bus == nil {
		return false
	}
	return bus.Board()
}

// IsFull reports whether bus has no free seat
func (s *BusSequence) IsFull(bus *Bus) bool {
	return bus != nil && bus.IsFull()
}

// HasSpace reports whether bus has a free seat
func (s *BusSequence) HasSpace(bus *Bus) bool {
	return bus != nil && bus.HasSpace()
}

// Depart retires the active bus and promotes the queued one. The promoted bus
// arrives (Approaching then Waiting) and a new queued bus is drawn. Departing with
// no active bus is a no-op.
func (s *BusSequence) Depart() (departed, promoted *Bus) {
	if s.active == nil {
		return nil, nil
	}

	departed = s.active
	departed.State = Departing
	departed.Active = false
	departed.State = Gone
	s.retired = append(s.retired, departed)
	s.active = nil

	if s.next == nil {
		return departed, nil
	}

	promoted = s.next
	promoted.Active = true
	promoted.State = Approaching
	s.active = promoted
	s.next = s.drawQueued()
	s.Arrive()

	return departed, promoted
}

// HasUpcoming reports whether a bus of color is queued or not yet drawn
func (s *BusSequence) HasUpcoming(color Color) bool {
	if s.next != nil && s.next.Color == color {
		return true
	}
	for _, spec := range s.specs[s.cursor:] {
		if spec.Color == color {
			return true
		}
	}
	return false
}

// UpcomingCapacity returns the seats of color still to come, queued bus included
func (s *BusSequence) UpcomingCapacity(color Color) int {
	seats := 0
	if s.next != nil && s.next.Color == color {
		seats += s.next.Capacity
	}
	for _, spec := range s.specs[s.cursor:] {
		if spec.Color == color {
			seats += spec.Capacity
		}
	}
	return seats
}

func (s *BusSequence) draw() *Bus {
	if s.cursor >= len(s.specs) {
		return nil
	}
	bus := newBus(s.cursor, s.specs[s.cursor])
	s.cursor++
	return bus
}

func (s *BusSequence) drawQueued() *Bus {
	bus := s.draw()
	if bus != nil {
		bus.State = BusWaiting
	}
	return bus
}

// restore rebuilds the live buses from a snapshot position
func (s *BusSequence) restore(cursor int, activeIndex, activeOccupancy, nextIndex int) {
	s.active, s.next, s.retired = nil, nil, nil
	s.cursor = cursor

	for i := 0; i < cursor && i < len(s.specs); i++ {
		if i == activeIndex || i == nextIndex {
			continue
		}
		b := newBus(i, s.specs[i])
		b.State = Gone
		s.retired = append(s.retired, b)
	}

	if activeIndex >= 0 && activeIndex < len(s.specs) {
		s.active = newBus(activeIndex, s.specs[activeIndex])
		s.active.Active = true
		s.active.Occupancy = activeOccupancy
		s.active.State = BusWaiting
	}
	if nextIndex >= 0 && nextIndex < len(s.specs) {
		s.next = newBus(nextIndex, s.specs[nextIndex])
		s.next.State = BusWaiting
	}
}
