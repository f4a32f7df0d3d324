// Package notifier fans out "dataset changed" pings to subscribers.
package notifier

import (
	"sync"
	"sync/atomic"
)

// Notifier broadcasts pings to every subscriber. A ping carries no payload;
// listeners re-read whatever state they care about.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	version   atomic.Uint64
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings. Pings coalesce: a slow
// listener sees at most one pending ping. Callers must Unsubscribe.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast pings every listener without blocking and returns the new
// broadcast count.
func (n *Notifier) Broadcast() uint64 {
	v := n.version.Add(1)

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return v
}

// Version returns how many broadcasts have happened.
func (n *Notifier) Version() uint64 {
	return n.version.Load()
}

// Len returns the number of current subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
