// Package guard decides whether a navigation may enter a page, based on the session identity.
//
// Every guard first waits for the identity to leave Unknown, so no decision is ever made
// on an unresolved session. A guard either allows entry or redirects; it never denies outright.
package guard

import (
	"context"
	"log/slog"
	"slices"
	"time"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	"github.com/hustlehub/hustle-hub-app/internal/observability/metrics"
	"github.com/hustlehub/hustle-hub-app/internal/observability/statsd"
)

// Guard names used in logs and metrics.
const (
	KindProtected = "protected"
	KindGuestOnly = "guest"
	KindRole      = "role"
)

// Resolver yields the session identity once it has resolved.
type Resolver interface {
	WaitResolved(ctx context.Context) (domainauth.Identity, error)
}

// Paths are the redirect targets guards use.
type Paths struct {
	Login         string
	Home          string
	ProfilePrefix string
}

// DefaultPaths returns the stock HustleHub redirect targets.
func DefaultPaths() Paths {
	return Paths{Login: "/auth", Home: "/home", ProfilePrefix: "/profile"}
}

// Options groups dependencies for Guards.
type Options struct {
	Session Resolver
	Paths   Paths
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Guards evaluates admission for protected, guest-only and role-restricted pages.
type Guards struct {
	session Resolver
	paths   Paths
	logger  *slog.Logger
	metrics statsd.Sink
}

// New constructs Guards. Empty paths fall back to DefaultPaths.
func New(opts Options) *Guards {
	paths := opts.Paths
	def := DefaultPaths()
	if paths.Login == "" {
		paths.Login = def.Login
	}
	if paths.Home == "" {
		paths.Home = def.Home
	}
	if paths.ProfilePrefix == "" {
		paths.ProfilePrefix = def.ProfilePrefix
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guards{
		session: opts.Session,
		paths:   paths,
		logger:  logger.With("component", "guard"),
		metrics: opts.Metrics,
	}
}

// CanEnterProtected admits authenticated users and sends everyone else to the login page.
// The error is non-nil only when ctx ended before the identity resolved.
func (g *Guards) CanEnterProtected(ctx context.Context) (domainauth.Decision, error) {
	return g.evaluate(ctx, KindProtected, func(id domainauth.Identity) domainauth.Decision {
		if id.IsAuthenticated() {
			return domainauth.Allow()
		}
		return domainauth.RedirectTo(g.paths.Login)
	})
}

// CanEnterGuestOnly admits anonymous users and sends authenticated ones home.
func (g *Guards) CanEnterGuestOnly(ctx context.Context) (domainauth.Decision, error) {
	return g.evaluate(ctx, KindGuestOnly, func(id domainauth.Identity) domainauth.Decision {
		if id.IsAuthenticated() {
			return domainauth.RedirectTo(g.paths.Home)
		}
		return domainauth.Allow()
	})
}

// CanEnterWithRole admits admins and users holding one of roles. Other authenticated
// users are sent to their own profile page; anonymous users to the login page.
func (g *Guards) CanEnterWithRole(ctx context.Context, roles ...domainauth.Role) (domainauth.Decision, error) {
	return g.evaluate(ctx, KindRole, func(id domainauth.Identity) domainauth.Decision {
		user, ok := id.User()
		if !ok {
			return domainauth.RedirectTo(g.paths.Login)
		}
		if user.Role == domainauth.RoleAdmin || slices.Contains(roles, user.Role) {
			return domainauth.Allow()
		}
		return domainauth.RedirectTo(user.Role.Home(g.paths.ProfilePrefix))
	})
}

func (g *Guards) evaluate(
	ctx context.Context,
	kind string,
	decide func(domainauth.Identity) domainauth.Decision,
) (domainauth.Decision, error) {
	start := time.Now()
	id, err := g.session.WaitResolved(ctx)
	if err != nil {
		g.logger.Debug("guard abandoned before identity resolved", "guard", kind, "error", err)
		metrics.EmitGuardDecision(g.metrics, metrics.GuardMetric{Guard: kind, Outcome: "abandoned", Wait: time.Since(start)})
		return domainauth.Decision{}, err
	}

	d := decide(id)
	outcome := "allow"
	if !d.Allowed {
		outcome = "redirect"
	}
	g.logger.Debug("guard decided", "guard", kind, "identity", id.String(), "decision", d.String())
	metrics.EmitGuardDecision(g.metrics, metrics.GuardMetric{Guard: kind, Outcome: outcome, Wait: time.Since(start)})
	return d, nil
}
