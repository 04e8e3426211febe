package config

import "strings"

const (
	defaultLoginPath     = "/auth"
	defaultHomePath      = "/home"
	defaultProfilePrefix = "/profile"
	defaultMaxRedirects  = 5
	maxRedirectsCeiling  = 20
)

// RoutesConfig contains the page paths guards redirect to.
type RoutesConfig struct {
	LoginPath     string `env:"ROUTES_LOGIN_PATH"     envDefault:"/auth"`
	HomePath      string `env:"ROUTES_HOME_PATH"      envDefault:"/home"`
	ProfilePrefix string `env:"ROUTES_PROFILE_PREFIX" envDefault:"/profile"`
	MaxRedirects  int    `env:"ROUTES_MAX_REDIRECTS"  envDefault:"5"`
}

// Sanitize applies guardrails to route configuration values.
func (c *RoutesConfig) Sanitize() {
	c.LoginPath = sanitizePath(c.LoginPath, defaultLoginPath)
	c.HomePath = sanitizePath(c.HomePath, defaultHomePath)
	c.ProfilePrefix = sanitizePath(c.ProfilePrefix, defaultProfilePrefix)

	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.MaxRedirects > maxRedirectsCeiling {
		c.MaxRedirects = maxRedirectsCeiling
	}
}

func sanitizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
