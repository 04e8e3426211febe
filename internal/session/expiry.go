package session

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	"github.com/hustlehub/hustle-hub-app/internal/ports"
)

const (
	defaultExpirySkew    = time.Second
	defaultExpiryMinWait = 30 * time.Second
)

// ExpiryWatcherOptions groups dependencies for ExpiryWatcher.
type ExpiryWatcherOptions struct {
	Store  *Store
	Source ports.SessionExpirySource
	Logger *slog.Logger
	// Skew is added to the reported expiry before re-checking. Defaults to 1s.
	Skew time.Duration
	// MinWait is the shortest delay between re-checks. Defaults to 30s.
	MinWait time.Duration
}

// ExpiryWatcher re-runs the "who am I" query once the current session's token expires,
// so an authenticated identity does not outlive its server-side session.
type ExpiryWatcher struct {
	store   *Store
	source  ports.SessionExpirySource
	logger  *slog.Logger
	skew    time.Duration
	minWait time.Duration
	now     func() time.Time
}

// NewExpiryWatcher constructs an ExpiryWatcher.
func NewExpiryWatcher(opts ExpiryWatcherOptions) *ExpiryWatcher {
	w := &ExpiryWatcher{
		store:   opts.Store,
		source:  opts.Source,
		logger:  opts.Logger,
		skew:    opts.Skew,
		minWait: opts.MinWait,
		now:     time.Now,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.skew <= 0 {
		w.skew = defaultExpirySkew
	}
	if w.minWait <= 0 {
		w.minWait = defaultExpiryMinWait
	}
	return w
}

// Run blocks until ctx is done, scheduling a refresh whenever the identity is
// authenticated and the session reports an expiry.
func (w *ExpiryWatcher) Run(ctx context.Context) error {
	sub := w.store.Subscribe()
	defer sub.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	schedule := func(id domainauth.Identity) {
		if timer != nil {
			timer.Stop()
			timer, fire = nil, nil
		}
		if d, ok := w.delay(id); ok {
			timer = time.NewTimer(d)
			fire = timer.C
			w.logger.Debug("session expiry scheduled", "in", d.String())
		}
	}
	defer schedule(domainauth.Unknown())

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-sub.C():
			if !ok {
				return nil
			}
			schedule(id)
		case <-fire:
			timer, fire = nil, nil
			w.logger.Info("session token expired, re-checking identity")
			id, err := w.store.Refresh(ctx)
			if err != nil {
				return nil
			}
			// An unchanged identity is not republished, so reschedule here.
			schedule(id)
		}
	}
}

func (w *ExpiryWatcher) delay(id domainauth.Identity) (time.Duration, bool) {
	if !id.IsAuthenticated() {
		return 0, false
	}
	exp, ok := w.source.SessionExpiry()
	if !ok {
		return 0, false
	}
	d := exp.Add(w.skew).Sub(w.now())
	if d < w.minWait {
		d = w.minWait
	}
	return d, true
}
