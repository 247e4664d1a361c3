package route

import "sync"

// Event names emitted by waypoints and routes.
const (
	EventAdd            = "add"
	EventRemove         = "remove"
	EventReset          = "reset"
	EventChange         = "change"
	EventChangeDistance = "change:distance"
)

// Event carries a state change notification.
type Event struct {
	Name     string
	Waypoint *Waypoint
	Index    int
	// Value and Delta are set for change:distance; on a route Value is the route total.
	Value float64
	Delta float64
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Emitter is an explicit observer registry. The zero value is ready to use.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

// Subscribe registers h for events named name and returns a function that removes it.
func (e *Emitter) Subscribe(name string, h Handler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[string][]subscription)
	}
	e.nextID++
	id := e.nextID
	e.subs[name] = append(e.subs[name], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(name, id) })
	}
}

func (e *Emitter) unsubscribe(name string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subs[name]
	for i, s := range subs {
		if s.id == id {
			e.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of handlers registered for name.
func (e *Emitter) SubscriberCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[name])
}

// emit calls handlers in registration order without holding the lock.
func (e *Emitter) emit(ev Event) {
	e.mu.Lock()
	subs := append([]subscription(nil), e.subs[ev.Name]...)
	e.mu.Unlock()

	for _, s := range subs {
		s.handler(ev)
	}
}
