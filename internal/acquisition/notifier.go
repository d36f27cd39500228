package acquisition

import "context"

// Notifier is the one-slot binary event bridging the data-ready edge
// watcher and the acquisition task. Signal never blocks; edges raised
// while a wake is already pending coalesce into that one wake.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Signal records at most one pending wake. Safe to call from any
// goroutine, including the edge watcher.
func (n *Notifier) Signal() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a wake is pending or the context ends. It returns
// false only on context cancellation.
func (n *Notifier) Wait(ctx context.Context) bool {
	select {
	case <-n.ch:
		return true
	case <-ctx.Done():
		return false
	}
}
