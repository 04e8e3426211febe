package session

import (
	"sync"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	"github.com/hustlehub/hustle-hub-app/internal/observability/metrics"
)

// Subscription delivers the store's identity with replay-latest semantics: the current
// value is available immediately on subscribe, and a slow reader always finds the newest
// value waiting (older undelivered values are dropped, never the latest).
type Subscription struct {
	ch    chan domainauth.Identity
	store *Store
	once  sync.Once
}

// Subscribe registers a new subscription primed with the current identity.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan domainauth.Identity, 1), store: s}

	s.mu.Lock()
	sub.ch <- s.current
	s.subs[sub] = struct{}{}
	n := len(s.subs)
	s.mu.Unlock()

	metrics.EmitSubscribers(s.metrics, n)
	return sub
}

// C returns the channel of identity values. It is closed by Close.
func (sub *Subscription) C() <-chan domainauth.Identity {
	return sub.ch
}

// Close releases the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		delete(s.subs, sub)
		close(sub.ch)
		n := len(s.subs)
		s.mu.Unlock()

		metrics.EmitSubscribers(s.metrics, n)
	})
}

// deliver replaces any undelivered value with id. Called with the store lock held,
// which makes the store the only sender and keeps the send non-blocking.
func (sub *Subscription) deliver(id domainauth.Identity) {
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- id
}
