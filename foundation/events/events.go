// Package events broadcasts ledger lifecycle messages to any registered
// listener, such as the websocket clients watching mining activity.
package events

import (
	"fmt"
	"sync"
)

// Events maintains the set of registered listener channels.
type Events struct {
	listeners map[string]chan string
	mu        sync.RWMutex
}

// New constructs an Events value for registering and receiving events.
func New() *Events {
	return &Events{
		listeners: make(map[string]chan string),
	}
}

// Shutdown closes and removes every registered listener channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.listeners {
		delete(evt.listeners, id)
		close(ch)
	}
}

// Acquire registers a listener under a unique id and returns the channel
// events are delivered on.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.listeners[id]; exists {
		return ch
	}

	// A slow websocket write must not stall the sender, so the channel is
	// buffered and Send drops messages a listener cannot keep up with.
	const messageBuffer = 100

	evt.listeners[id] = make(chan string, messageBuffer)
	return evt.listeners[id]
}

// Release closes and removes the channel registered under the specified id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.listeners[id]
	if !exists {
		return fmt.Errorf("listener id %q does not exist", id)
	}

	delete(evt.listeners, id)
	close(ch)

	return nil
}

// Send delivers a message to every registered listener without blocking on
// any of them.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.listeners {
		select {
		case ch <- s:
		default:
		}
	}
}
