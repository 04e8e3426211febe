// Package nav is a small navigation coordinator: it runs the guard for each requested
// page, follows redirects, and makes sure only the latest navigation takes effect.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
)

const defaultMaxRedirects = 5

var (
	// ErrSuperseded is returned when a newer navigation started before this one committed.
	ErrSuperseded = errors.New("navigation superseded")
	// ErrTooManyRedirects is returned when guards keep redirecting past the hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Admitter is the guard surface the router consults.
type Admitter interface {
	CanEnterProtected(ctx context.Context) (domainauth.Decision, error)
	CanEnterGuestOnly(ctx context.Context) (domainauth.Decision, error)
	CanEnterWithRole(ctx context.Context, roles ...domainauth.Role) (domainauth.Decision, error)
}

// Result describes a committed navigation.
type Result struct {
	Requested string
	Path      string
	Redirects []string
}

// Options groups dependencies for Router.
type Options struct {
	Guards       Admitter
	Table        Table
	Home         string
	MaxRedirects int
	// OnNavigated runs after each committed navigation.
	OnNavigated func(Result)
	Logger      *slog.Logger
}

// Router resolves paths against a Table and admits them through guards.
type Router struct {
	guards      Admitter
	table       Table
	home        string
	maxRedirect int
	onNavigated func(Result)
	logger      *slog.Logger

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current string
}

// NewRouter constructs a Router. A nil Table means DefaultTable.
func NewRouter(opts Options) *Router {
	r := &Router{
		guards:      opts.Guards,
		table:       opts.Table,
		home:        opts.Home,
		maxRedirect: opts.MaxRedirects,
		onNavigated: opts.OnNavigated,
		logger:      opts.Logger,
	}
	if r.table == nil {
		r.table = DefaultTable()
	}
	if r.home == "" {
		r.home = "/home"
	}
	if r.maxRedirect <= 0 {
		r.maxRedirect = defaultMaxRedirects
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "nav")
	return r
}

// Current returns the last committed path, or "" before the first navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolve maps target onto a known route; empty, root and unknown paths go home.
func (r *Router) Resolve(target string) string {
	p := normalize(target)
	if _, ok := r.table[p]; !ok {
		return r.home
	}
	return p
}

// Navigate admits target, following guard redirects. Starting a navigation cancels the
// one still in progress, whose guard then releases without effect.
func (r *Router) Navigate(ctx context.Context, target string) (Result, error) {
	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	r.cancel = cancel
	r.mu.Unlock()

	res := Result{Requested: target}
	p := r.Resolve(target)
	for hops := 0; ; hops++ {
		d, err := r.admit(navCtx, p)
		if err != nil {
			if ctx.Err() == nil && navCtx.Err() != nil {
				return res, ErrSuperseded
			}
			return res, err
		}
		if d.Allowed {
			break
		}
		if hops >= r.maxRedirect {
			r.logger.Warn("redirect limit reached", "requested", target, "redirects", res.Redirects)
			return res, fmt.Errorf("%w: %s", ErrTooManyRedirects, target)
		}
		next := r.Resolve(d.Redirect)
		res.Redirects = append(res.Redirects, next)
		r.logger.Debug("navigation redirected", "from", p, "to", next)
		p = next
	}

	r.mu.Lock()
	if r.seq != seq {
		r.mu.Unlock()
		return res, ErrSuperseded
	}
	r.current = p
	r.cancel = nil
	r.mu.Unlock()

	res.Path = p
	r.logger.Info("navigated", "requested", target, "path", p)
	if r.onNavigated != nil {
		r.onNavigated(res)
	}
	return res, nil
}

func (r *Router) admit(ctx context.Context, p string) (domainauth.Decision, error) {
	access := r.table[p]
	switch access.Kind {
	case Protected:
		return r.guards.CanEnterProtected(ctx)
	case GuestOnly:
		return r.guards.CanEnterGuestOnly(ctx)
	case RoleRestricted:
		return r.guards.CanEnterWithRole(ctx, access.Roles...)
	default:
		return domainauth.Allow(), nil
	}
}

// Refresher schedules a "who am I" query without waiting for its answer.
type Refresher interface {
	RequestRefresh()
}

// RefreshAfterNavigation returns an OnNavigated hook that re-checks the session after every
// committed navigation. The hook returns at once; the store owns the query.
func RefreshAfterNavigation(session Refresher) func(Result) {
	return func(Result) {
		session.RequestRefresh()
	}
}
