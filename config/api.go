package config

import (
	"strings"
	"time"
)

const defaultAPITimeout = 10 * time.Second

// APIConfig contains configuration for the remote HustleHub HTTP API.
type APIConfig struct {
	// BaseURL is the API origin, e.g. "http://localhost:8000".
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds every API request, including the initial "who am I" query.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	// SessionCookie is the name of the cookie carrying the access token.
	SessionCookie string `env:"API_SESSION_COOKIE" envDefault:"hustlehub_access_token"`

	// ErrorDetailExpr is a JMESPath expression selecting the human-readable reason
	// from API error bodies.
	ErrorDetailExpr string `env:"API_ERROR_DETAIL_EXPR" envDefault:"detail"`
}

// Sanitize applies guardrails to API configuration values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
	if c.SessionCookie = strings.TrimSpace(c.SessionCookie); c.SessionCookie == "" {
		c.SessionCookie = "hustlehub_access_token"
	}
	if c.ErrorDetailExpr = strings.TrimSpace(c.ErrorDetailExpr); c.ErrorDetailExpr == "" {
		c.ErrorDetailExpr = "detail"
	}
}
