// Package notify carries "state changed" cues from the worker to render-side
// subscribers.
//
// The payload is deliberately not a diff: subscribers are expected to re-read
// a full snapshot from the state store. That trades redraw efficiency for the
// guarantee that a renderer never observes state inconsistent with a single
// committed worker step.
package notify

import (
	"sync"
	"time"
)

// ChangeEvent is the cue published after every worker commit.
type ChangeEvent struct {
	AppID    string    `json:"app_id,omitempty"`
	JobID    uint64    `json:"job_id"`
	Revision uint64    `json:"revision"`
	At       time.Time `json:"at"`
}

// Subscription identifies one subscriber for later cancellation.
type Subscription uint64

// Bus is the in-process notifier. Publish never blocks the worker: when a
// subscriber's buffer is full the event is coalesced into the pending one,
// which is sound because events are re-read cues, not diffs. Delivery is
// at-least-once per change batch, in commit order per subscriber.
type Bus struct {
	mu     sync.Mutex
	subs   map[Subscription]chan ChangeEvent
	nextID Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Subscription]chan ChangeEvent)}
}

// Subscribe registers a subscriber and returns its event channel and handle.
// buffer < 1 is clamped to 1 so coalescing always has a slot to land in.
func (b *Bus) Subscribe(buffer int) (<-chan ChangeEvent, Subscription) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan ChangeEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, 0
	}

	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	return ch, id
}

// Unsubscribe removes a subscriber and closes its channel. Unknown handles
// are ignored.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Publish delivers the event to every subscriber without blocking. A full
// subscriber buffer coalesces: the oldest pending cue is replaced by the new
// one so the subscriber always wakes with the latest revision.
func (b *Bus) Publish(evt ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// SubscriberCount reports active subscribers; intended for tests and status.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes the bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
