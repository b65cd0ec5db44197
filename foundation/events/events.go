// Package events allows for the registering and receiving of events. The
// node fans ledger and network events out to websocket viewers with it.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of events held for a viewer that isn't
// reading. Events past the buffer are dropped for that viewer.
const messageBuffer = 100

// subscription is a registered viewer and the event prefixes it wants.
// No prefixes means every event.
type subscription struct {
	ch       chan string
	prefixes []string
}

func (s subscription) wants(event string) bool {
	if len(s.prefixes) == 0 {
		return true
	}

	for _, prefix := range s.prefixes {
		if strings.HasPrefix(event, prefix) {
			return true
		}
	}

	return false
}

// =============================================================================

// Events maintains a mapping of unique id and subscriptions so goroutines
// can register and receive events.
type Events struct {
	m  map[string]subscription
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]subscription),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. When prefixes are provided only events starting with one
// of them are delivered, like "viewer: block:" for new blocks. Acquiring an
// id that is already registered returns the existing channel.
func (evt *Events) Acquire(id string, prefixes ...string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.m[id]; exists {
		return sub.ch
	}

	sub := subscription{
		ch:       make(chan string, messageBuffer),
		prefixes: prefixes,
	}
	evt.m[id] = sub

	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)
	return nil
}

// Send signals an event to every subscription that wants it. Send will not
// block waiting for a receiver on any given channel.
func (evt *Events) Send(event string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.m {
		if !sub.wants(event) {
			continue
		}

		select {
		case sub.ch <- event:
		default:
		}
	}
}
