// Package events provides a fan out of the event lines produced while
// probe runs execute. Goroutines subscribe with a unique id and receive
// every line sent until they unsubscribe.
package events

import (
	"fmt"
	"sync"
)

// Events maintains the set of subscriber channels event lines are
// fanned out to.
type Events struct {
	subscribers map[string]chan string
	mu          sync.RWMutex
}

// New constructs an Events for subscribing to and sending event lines.
func New() *Events {
	return &Events{
		subscribers: make(map[string]chan string),
	}
}

// Shutdown closes and removes every channel that was handed out by a
// call to Subscribe.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subscribers {
		delete(evt.subscribers, id)
		close(ch)
	}
}

// Subscribe takes a unique id and returns a channel event lines can be
// received on. Calling Subscribe twice with the same id returns the
// same channel.
func (evt *Events) Subscribe(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subscribers[id]
	if exists {
		return ch
	}

	// A send never blocks so a line is dropped when a subscriber's buffer
	// is full. The buffer gives slow receivers, like a websocket writer,
	// room to catch up before lines start dropping.
	const lineBuffer = 100

	evt.subscribers[id] = make(chan string, lineBuffer)
	return evt.subscribers[id]
}

// Unsubscribe closes and removes the channel that was handed out by the
// call to Subscribe.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subscribers[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subscribers, id)
	close(ch)
	return nil
}

// Send delivers the event line to every subscriber. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(line string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}
