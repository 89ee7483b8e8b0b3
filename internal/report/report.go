// Package report implements the pipeline's reporting sinks: a small Sink
// interface the orchestrator depends on, plus a Hub that fans one stream
// of structured events out to any number of attached sinks.
//
// The Hub follows the same register/unregister/broadcast goroutine loop
// over buffered per-subscriber channels used for live event streaming
// elsewhere, generalized from raw byte frames to typed Event values.
package report

import "fmt"

// Level is the severity of one reported event.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Event is one structured message the pipeline emits: a progress tick, a
// detected-section summary, or a warning/error.
type Event struct {
	Level     Level
	Component string
	Message   string
	Fields    map[string]any
}

// Sink is the abstract contract the orchestrator depends on. It never
// depends on the Hub directly.
type Sink interface {
	Info(component, message string, fields map[string]any)
	Warning(component, message string, fields map[string]any)
	Error(component, message string, fields map[string]any)
}

// Hub fans Event values out to any number of attached subscribers without
// the publisher knowing how many, or which, sinks are attached.
type Hub struct {
	clients    map[*subscriber]bool
	broadcast  chan Event
	register   chan *subscriber
	unregister chan *subscriber
	done       chan struct{}
}

type subscriber struct {
	events chan Event
}

// NewHub constructs an unstarted Hub; call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*subscriber]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		done:       make(chan struct{}),
	}
}

// Run drives the hub's event loop until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.clients[s] = true
		case s := <-h.unregister:
			if _, ok := h.clients[s]; ok {
				delete(h.clients, s)
				close(s.events)
			}
		case evt := <-h.broadcast:
			for s := range h.clients {
				select {
				case s.events <- evt:
				default:
				}
			}
		case <-h.done:
			for s := range h.clients {
				close(s.events)
			}
			return
		}
	}
}

// Subscribe returns a channel of events for a new subscriber. There is no
// way to detach a single subscriber; its channel is closed when the Hub
// is closed.
func (h *Hub) Subscribe() <-chan Event {
	s := &subscriber{events: make(chan Event, 64)}
	select {
	case h.register <- s:
	case <-h.done:
	}
	return s.events
}

// Publish broadcasts one event to every attached subscriber.
func (h *Hub) Publish(evt Event) {
	select {
	case h.broadcast <- evt:
	case <-h.done:
	}
}

// Close stops the hub's event loop and closes every subscriber channel.
func (h *Hub) Close() {
	close(h.done)
}

// Info publishes an informational event. Hub itself satisfies Sink, so a
// Hub can be handed to the orchestrator as its Sink.
func (h *Hub) Info(component, message string, fields map[string]any) {
	h.Publish(Event{Level: LevelInfo, Component: component, Message: message, Fields: fields})
}

func (h *Hub) Warning(component, message string, fields map[string]any) {
	h.Publish(Event{Level: LevelWarning, Component: component, Message: message, Fields: fields})
}

func (h *Hub) Error(component, message string, fields map[string]any) {
	h.Publish(Event{Level: LevelError, Component: component, Message: message, Fields: fields})
}

// NopSink discards every event; used when the caller wants no reporting.
type NopSink struct{}

func (NopSink) Info(string, string, map[string]any)    {}
func (NopSink) Warning(string, string, map[string]any) {}
func (NopSink) Error(string, string, map[string]any)   {}

// fmtFields renders fields as "k=v k2=v2" for the console sink.
func fmtFields(fields map[string]any) string {
	s := ""
	for k, v := range fields {
		s += fmt.Sprintf(" %s=%v", k, v)
	}
	return s
}
