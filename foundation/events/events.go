// Package events fans the node's ledger events out to every subscriber,
// such as the websocket clients of the viewer API.
package events

import (
	"fmt"
	"sync"
)

// subscriberBuffer is the number of events a subscriber can fall behind
// before events are dropped for it. Websocket writes can be slow.
const subscriberBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can subscribe to and receive events.
type Events struct {
	mu   sync.RWMutex
	subs map[string]chan string
}

// New constructs an events value with no subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns the channel the subscriber
// receives events on. Acquiring a known id returns its existing channel.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send delivers the event to every subscriber. Send never blocks, a
// subscriber that is behind misses the event.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
