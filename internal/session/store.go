// Package session holds the client's single source of truth for "who is the current user".
//
// A Store starts Unknown and issues the "who am I" query at construction. Every write
// (a query resolution or SetIdentity) is tagged with a generation; a query resolution
// is applied only if no newer refresh or write was issued after it started.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
	"github.com/hustlehub/hustle-hub-app/internal/observability/metrics"
	"github.com/hustlehub/hustle-hub-app/internal/observability/statsd"
	"github.com/hustlehub/hustle-hub-app/internal/ports"
)

// StoreOptions groups dependencies for Store.
type StoreOptions struct {
	Fetcher ports.IdentityFetcher
	Logger  *slog.Logger
	Metrics statsd.Sink
	// QueryTimeout bounds each "who am I" query. Zero leaves it to the HTTP client.
	QueryTimeout time.Duration
}

// Store is the process-wide session state. Construct one per client process and inject it.
type Store struct {
	fetcher ports.IdentityFetcher
	logger  *slog.Logger
	metrics statsd.Sink
	timeout time.Duration

	// gen is the latest generation issued to a refresh or a write.
	gen atomic.Uint64

	mu         sync.Mutex
	current    domainauth.Identity
	appliedGen uint64
	applied    chan struct{} // closed and replaced on every applied write
	inflight   *query
	queued     *query
	subs       map[*Subscription]struct{}
}

type query struct {
	gen uint64
}

// NewStore constructs a Store in the Unknown state and issues the initial "who am I" query.
func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		fetcher: opts.Fetcher,
		logger:  logger,
		metrics: opts.Metrics,
		timeout: opts.QueryTimeout,
		current: domainauth.Unknown(),
		applied: make(chan struct{}),
		subs:    make(map[*Subscription]struct{}),
	}
	s.enqueue()
	return s
}

// Current returns the latest known identity. It may be Unknown.
func (s *Store) Current() domainauth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Refresh issues a "who am I" query and waits until the store reflects it or a newer write.
// Before the first resolution it joins the initial query. After that, refreshes issued while
// a query is in flight coalesce into one trailing query and the in-flight result is
// discarded. The returned error is only ever ctx.Err().
func (s *Store) Refresh(ctx context.Context) (domainauth.Identity, error) {
	gen := s.enqueue()

	for {
		s.mu.Lock()
		if s.appliedGen >= gen {
			id := s.current
			s.mu.Unlock()
			return id, nil
		}
		wait := s.applied
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return s.Current(), ctx.Err()
		}
	}
}

// SetIdentity records user as authenticated, or anonymous when user is nil, without querying.
// It supersedes any query issued before it.
func (s *Store) SetIdentity(user *domainauth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.gen.Add(1)
	// A queued query was requested before this write; its answer would be discarded anyway.
	s.queued = nil
	s.applyLocked(gen, domainauth.IdentityFromUser(user))
}

// WaitResolved blocks until the identity has left Unknown and returns it.
// If ctx ends first the subscription is released and ctx.Err() is returned.
func (s *Store) WaitResolved(ctx context.Context) (domainauth.Identity, error) {
	sub := s.Subscribe()
	defer sub.Close()

	for {
		select {
		case id, ok := <-sub.C():
			if !ok {
				return domainauth.Identity{}, context.Canceled
			}
			if id.Resolved() {
				return id, nil
			}
		case <-ctx.Done():
			return domainauth.Identity{}, ctx.Err()
		}
	}
}

// RequestRefresh schedules a "who am I" query without waiting for it.
// It follows the same joining and coalescing rules as Refresh.
func (s *Store) RequestRefresh() {
	s.enqueue()
}

// enqueue makes sure a query will run and returns the generation the caller must wait for.
// While the identity is still Unknown the in-flight query is the initial one and is joined
// rather than superseded, so its answer takes the store out of Unknown.
func (s *Store) enqueue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight != nil && !s.current.Resolved() {
		return s.inflight.gen
	}

	gen := s.gen.Add(1)
	if s.inflight == nil {
		s.inflight = &query{gen: gen}
		go s.run(s.inflight)
		return gen
	}
	if s.queued == nil {
		s.queued = &query{}
	}
	s.queued.gen = gen
	return gen
}

func (s *Store) run(q *query) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	user, err := s.fetcher.Me(ctx)
	next := domainauth.Authenticated(user)
	if err != nil {
		next = domainauth.Anonymous()
	}

	s.mu.Lock()
	result := metrics.ResultApplied
	if q.gen == s.gen.Load() {
		s.applyLocked(q.gen, next)
		if err != nil {
			result = metrics.ResultAnonymous
		}
	} else {
		result = metrics.ResultStale
	}

	s.inflight = nil
	if s.queued != nil {
		s.inflight, s.queued = s.queued, nil
		go s.run(s.inflight)
	}
	s.mu.Unlock()

	s.logQuery(q.gen, result, err)
	metrics.EmitRefresh(s.metrics, metrics.RefreshMetric{Result: result, Duration: time.Since(start), Err: err})
}

// applyLocked is the single write path. next is never Unknown.
func (s *Store) applyLocked(gen uint64, next domainauth.Identity) {
	prev := s.current
	s.current = next
	s.appliedGen = gen
	close(s.applied)
	s.applied = make(chan struct{})

	if prev == next {
		return
	}
	for sub := range s.subs {
		sub.deliver(next)
	}

	s.logger.Info("session identity changed", "from", prev.State().String(), "to", next.String(), "generation", gen)
	metrics.EmitIdentityChange(s.metrics, prev.State().String(), next.State().String())
}

func (s *Store) logQuery(gen uint64, result string, err error) {
	switch {
	case err == nil:
		s.logger.Debug("identity query resolved", "generation", gen, "result", result)
	case apperrors.IsUnauthorized(err):
		s.logger.Debug("no valid session", "generation", gen, "result", result)
	default:
		s.logger.Warn("identity query failed, treating as anonymous",
			"generation", gen, "result", result, "error", err)
	}
}
