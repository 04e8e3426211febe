// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service and internal/session.
package ports

import (
	"context"
	"time"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
)

// IdentityFetcher performs the "who am I" query.
type IdentityFetcher interface {
	// Me returns the user for the current session, or an error when there is none.
	Me(ctx context.Context) (domainauth.User, error)
}

// AuthAPI is the remote HTTP API's auth surface.
type AuthAPI interface {
	IdentityFetcher

	Login(ctx context.Context, in domainauth.LoginInput) (domainauth.User, error)
	Register(ctx context.Context, in domainauth.RegisterInput) (domainauth.User, error)
	// Logout invalidates the server-side session. The response body carries no meaning.
	Logout(ctx context.Context) error
}

// SessionExpirySource reports when the current server session expires, if known.
type SessionExpirySource interface {
	SessionExpiry() (time.Time, bool)
}

// IdentityWriter is the single write path into the session store.
type IdentityWriter interface {
	// SetIdentity records user as authenticated, or anonymous when user is nil.
	SetIdentity(user *domainauth.User)
}
