// Package events implements the named publish/subscribe bus the engine uses
// to notify its host about document and interaction changes.
//
// Handlers run synchronously, in subscription order, on the goroutine that
// publishes. Publishing a name nobody subscribed to is a no-op.
//
// # Unsubscribing
//
// Go functions cannot be compared, so handlers are removed through the
// [Subscription] returned by [Bus.Subscribe] rather than by passing the same
// function again:
//
//	sub := bus.Subscribe(events.NodeCreated, func(e events.Event) { ... })
//	defer bus.Unsubscribe(sub)
package events

import "sync"

// Name identifies an event type.
type Name string

// Event names published by the engine.
const (
	NodeCreated     Name = "nodeCreated"
	NodeRemoved     Name = "nodeRemoved"
	NodeSelected    Name = "nodeSelected"
	NodeUnselected  Name = "nodeUnselected"
	NodeMoved       Name = "nodeMoved"
	NodeDataChanged Name = "nodeDataChanged"

	InputAdded    Name = "inputAdded"
	OutputAdded   Name = "outputAdded"
	InputRemoved  Name = "inputRemoved"
	OutputRemoved Name = "outputRemoved"

	ConnectionStart      Name = "connectionStart"
	ConnectionCreated    Name = "connectionCreated"
	ConnectionRemoved    Name = "connectionRemoved"
	ConnectionSelected   Name = "connectionSelected"
	ConnectionUnselected Name = "connectionUnselected"
	ConnectionCancel     Name = "connectionCancel"

	RerouteAdded   Name = "rerouteAdded"
	RerouteRemoved Name = "rerouteRemoved"
	RerouteMoved   Name = "rerouteMoved"

	ModuleCreated Name = "moduleCreated"
	ModuleChanged Name = "moduleChanged"
	ModuleRemoved Name = "moduleRemoved"

	Zoom      Name = "zoom"
	Translate Name = "translate"
	Import    Name = "import"
	Export    Name = "export"

	Click       Name = "click"
	ClickEnd    Name = "clickEnd"
	MouseMove   Name = "mouseMove"
	MouseUp     Name = "mouseUp"
	ContextMenu Name = "contextmenu"
	KeyDown     Name = "keydown"

	// Error carries an error raised by a gesture that has no caller to
	// return it to, such as a press on the delete box.
	Error Name = "error"
)

// Event is a published notification.
type Event struct {
	Name    Name
	Payload any
}

// Handler receives published events.
type Handler func(Event)

// Subscription identifies one registered handler.
type Subscription struct {
	name Name
	id   uint64
}

// Name returns the event name the subscription listens to.
func (s Subscription) Name() Name { return s.name }

// Valid reports whether s was returned by Subscribe.
func (s Subscription) Valid() bool { return s.id != 0 }

type entry struct {
	id uint64
	fn Handler
}

// Bus is a named event dispatcher. The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[Name][]entry
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn for name and returns its subscription.
// A nil handler is ignored and yields an invalid subscription.
func (b *Bus) Subscribe(name Name, fn Handler) Subscription {
	if fn == nil {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[Name][]entry)
	}
	b.next++
	b.handlers[name] = append(b.handlers[name], entry{id: b.next, fn: fn})
	return Subscription{name: name, id: b.next}
}

// Unsubscribe removes the handler behind sub.
// It reports whether a handler was removed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[sub.name]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(b.handlers, sub.name)
		} else {
			b.handlers[sub.name] = list
		}
		return true
	}
	return false
}

// Publish delivers payload to every handler subscribed to name.
// Handlers registered or removed during dispatch take effect on the next publish.
func (b *Bus) Publish(name Name, payload any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	list := b.handlers[name]
	b.mu.RUnlock()
	if len(list) == 0 {
		return
	}
	ev := Event{Name: name, Payload: payload}
	for _, e := range list {
		e.fn(ev)
	}
}

// Count returns the number of handlers subscribed to name.
func (b *Bus) Count(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Recorder collects events, mostly for tests and debugging hosts.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record subscribes the recorder to every name on b.
func (r *Recorder) Record(b *Bus, names ...Name) []Subscription {
	subs := make([]Subscription, 0, len(names))
	for _, n := range names {
		subs = append(subs, b.Subscribe(n, r.add))
	}
	return subs
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Name, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// All lists every event name the engine publishes.
var All = []Name{
	NodeCreated, NodeRemoved, NodeSelected, NodeUnselected, NodeMoved, NodeDataChanged,
	InputAdded, OutputAdded, InputRemoved, OutputRemoved,
	ConnectionStart, ConnectionCreated, ConnectionRemoved, ConnectionSelected,
	ConnectionUnselected, ConnectionCancel,
	RerouteAdded, RerouteRemoved, RerouteMoved,
	ModuleCreated, ModuleChanged, ModuleRemoved,
	Zoom, Translate, Import, Export,
	Click, ClickEnd, MouseMove, MouseUp, ContextMenu, KeyDown, Error,
}
