package engine

import "time"

// EventType names an outbound notification
type EventType string

const (
	EventPersonMoved      EventType = "person_moved"
	EventPersonBoarded    EventType = "person_boarded"
	EventPersonWaiting    EventType = "person_waiting"
	EventPersonRedirected EventType = "person_redirected"
	EventBusArrived       EventType = "bus_arrived"
	EventBusDeparted      EventType = "bus_departed"
	EventGameMessage      EventType = "game_message"
	EventLevelComplete    EventType = "level_complete"
	EventGameLost         EventType = "game_lost"
)

// Event is a notification for rendering, audio and UI layers. The engine never
// depends on an event being handled.
type Event struct {
	Type      EventType  `json:"type"`
	PersonID  int        `json:"person_id,omitempty"`
	Path      []Position `json:"path,omitempty"`
	Bus       *BusSpec   `json:"bus,omitempty"`
	BusIndex  int        `json:"bus_index,omitempty"`
	Message   string     `json:"message,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Observer receives engine notifications
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(ev Event)

// OnEvent calls f(ev)
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// Recorder collects every event it receives
type Recorder struct {
	Events []Event
}

// OnEvent appends ev
func (r *Recorder) OnEvent(ev Event) {
	r.Events = append(r.Events, ev)
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []EventType {
	types := make([]EventType, len(r.Events))
	for i, ev := range r.Events {
		types[i] = ev.Type
	}
	return types
}

// ChannelObserver forwards events to a channel without blocking; events are
// dropped when the channel is full.
type ChannelObserver struct {
	C       chan Event
	Dropped int
}

// NewChannelObserver creates a channel observer with the given buffer
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{C: make(chan Event, buffer)}
}

// OnEvent sends ev if the channel has room
func (o *ChannelObserver) OnEvent(ev Event) {
	select {
	case o.C <- ev:
	default:
		o.Dropped++
	}
}

type subscription struct {
	id       int
	observer Observer
}

// emitter multicasts events to subscribers in subscription order
type emitter struct {
	subs   []subscription
	nextID int
}

func (e *emitter) subscribe(obs Observer) func() {
	if obs == nil {
		return func() {}
	}
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, observer: obs})
	return func() {
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	// Copy so observers may unsubscribe while being notified
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	for _, s := range subs {
		s.observer.OnEvent(ev)
	}
}
