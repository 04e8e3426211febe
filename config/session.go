package config

// SessionConfig controls when the client re-checks the session with the API.
type SessionConfig struct {
	// RefreshOnNavigate re-runs the "who am I" query after every committed navigation.
	RefreshOnNavigate bool `env:"SESSION_REFRESH_ON_NAVIGATE" envDefault:"true"`

	// WatchExpiry re-runs the query when the session token's exp claim passes.
	WatchExpiry bool `env:"SESSION_WATCH_EXPIRY" envDefault:"true"`
}
