package auth

import "sync"

// ChangeKind names an auth-state transition.
type ChangeKind string

const (
	SignedIn  ChangeKind = "signed_in"
	SignedOut ChangeKind = "signed_out"
)

// Change is published when a user signs in or out.
type Change struct {
	Kind   ChangeKind
	UserID string
}

// Notifier fans auth-state changes out to subscribers.
type Notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Change)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Change))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(Change)) (unsubscribe func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers c to every subscriber on the caller's goroutine.
func (n *Notifier) Publish(c Change) {
	if n == nil {
		return
	}
	n.mu.RLock()
	fns := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
