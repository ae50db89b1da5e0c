package engine

import "fmt"

// BusState is the lifecycle stage of a bus
type BusState uint8

const (
	Approaching BusState = iota
	BusWaiting
	Boarding
	Departing
	Gone
)

var busStateNames = [...]string{"approaching", "waiting", "boarding", "departing", "gone"}

// String returns the lowercase state name
func (s BusState) String() string {
	if int(s) < len(busStateNames) {
		return busStateNames[s]
	}
	return "unknown"
}

// MarshalText encodes the state as its name
func (s BusState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *BusState) UnmarshalText(text []byte) error {
	for i, name := range busStateNames {
		if name == string(text) {
			*s = BusState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown bus state %q", text)
}

// BusSpec is one authored entry of a level's bus sequence
type BusSpec struct {
	Color    Color `json:"color" yaml:"color"`
	Capacity int   `json:"capacity" yaml:"capacity"`
}

// Bus is a spawned bus with live occupancy
type Bus struct {
	Index     int      `json:"index"`
	Color     Color    `json:"color"`
	Capacity  int      `json:"capacity"`
	Occupancy int      `json:"occupancy"`
	State     BusState `json:"state"`
	Active    bool     `json:"active"`
	Spawned   bool     `json:"spawned"`
}

func newBus(index int, spec BusSpec) *Bus {
	return &Bus{
		Index:    index,
		Color:    spec.Color,
		Capacity: spec.Capacity,
		Spawned:  true,
	}
}

// Spec returns the authored spec of the bus
func (b *Bus) Spec() BusSpec {
	return BusSpec{Color: b.Color, Capacity: b.Capacity}
}

// IsFull reports whether every seat is taken
func (b *Bus) IsFull() bool {
	return b.Occupancy >= b.Capacity
}

// HasSpace reports whether at least one seat is free
func (b *Bus) HasSpace() bool {
	return b.Occupancy < b.Capacity
}

// Free returns the number of free seats
func (b *Bus) Free() int {
	if b.IsFull() {
		return 0
	}
	return b.Capacity - b.Occupancy
}

// Board seats one passenger. A full bus refuses and is left unchanged.
func (b *Bus) Board() bool {
	if b.IsFull() {
		return false
	}
	b.Occupancy++
	b.State = Boarding
	return true
}

// settle returns a boarding bus to waiting while seats remain
func (b *Bus) settle() {
	if b.State == Boarding && b.HasSpace() {
		b.State = BusWaiting
	}
}

func (b *Bus) String() string {
	return fmt.Sprintf("%s bus #%d (%d/%d, %s)", b.Color, b.Index+1, b.Occupancy, b.Capacity, b.State)
}
