// Package dispatch provides a small in-process signal bus. The sync engine
// announces new entities and per-entity updates on named signals; platform
// managers subscribe to the signals they care about.
package dispatch

import (
	"log/slog"
	"sync"
)

// HandlerFunc receives a signal payload.
type HandlerFunc func(payload any)

// Dispatcher routes payloads to subscribers by signal name. Safe for
// concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[int]HandlerFunc
	nextID   int
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]map[int]HandlerFunc),
	}
}

// Connect subscribes a handler to a signal and returns a function that
// removes the subscription.
func (d *Dispatcher) Connect(signal string, handler HandlerFunc) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++

	if d.handlers[signal] == nil {
		d.handlers[signal] = make(map[int]HandlerFunc)
	}
	d.handlers[signal][id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[signal], id)
		if len(d.handlers[signal]) == 0 {
			delete(d.handlers, signal)
		}
	}
}

// Send delivers a payload to every handler subscribed to the signal,
// synchronously and in unspecified order. Signals with no subscribers are
// dropped.
func (d *Dispatcher) Send(signal string, payload any) {
	d.mu.RLock()
	subscribers := make([]HandlerFunc, 0, len(d.handlers[signal]))
	for _, handler := range d.handlers[signal] {
		subscribers = append(subscribers, handler)
	}
	d.mu.RUnlock()

	if len(subscribers) == 0 {
		slog.Debug("Signal has no subscribers", "signal", signal)
		return
	}
	for _, handler := range subscribers {
		handler(payload)
	}
}
