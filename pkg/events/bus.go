package events

import (
	"fmt"
	"io"
	"sync"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-session pub/sub event bus with support for global
// subscribers. Script code emits structured events; each subscriber
// (terminal writer, recorder, logger) renders them its own way.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
	}
}

// Subscribe registers a subscriber for one session's events.
func (b *Bus) Subscribe(session string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[session] = append(b.subscribers[session], sub)
}

// Unsubscribe removes a subscriber for a session.
func (b *Bus) Unsubscribe(session string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[session]
	for i, s := range subs {
		if s == sub {
			b.subscribers[session] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[session]) == 0 {
		delete(b.subscribers, session)
	}
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit sends an event to the subscribers of ev.Session and all global
// subscribers.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := b.subscribers[ev.Session]
	globals := b.global
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// Printf emits an EvText event for session.
func (b *Bus) Printf(session string, format string, args ...any) {
	b.Emit(Event{Type: EvText, Session: session, Text: fmt.Sprintf(format, args...)})
}

// SessionSubscribers returns the number of subscribers for a session.
func (b *Bus) SessionSubscribers(session string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[session])
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for session, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, session)
		} else {
			b.subscribers[session] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *Recorder) Receive(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close stops delivery to r.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Texts returns the Text of recorded events of the given types, or of all
// events when no type is given.
func (r *Recorder) Texts(types ...EventType) []string {
	var out []string
	for _, ev := range r.Events() {
		if len(types) == 0 {
			out = append(out, ev.Text)
			continue
		}
		for _, t := range types {
			if ev.Type == t {
				out = append(out, ev.Text)
				break
			}
		}
	}
	return out
}

// Writer prints event text to an io.Writer, one event per line. Errors are
// prefixed with "ERROR: ".
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *Writer) Receive(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ev.Type == EvError {
		fmt.Fprintf(w.W, "ERROR: %s\n", ev.Text)
		return
	}
	fmt.Fprintln(w.W, ev.Text)
}

func (w *Writer) Closed() bool { return false }
