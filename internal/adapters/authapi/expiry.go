package authapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionExpiry reports the exp claim of the session cookie currently in the jar.
// The token is parsed without verification: the client only schedules a re-check with it,
// the API remains the authority on validity.
func (c *Client) SessionExpiry() (time.Time, bool) {
	if c.hc.Jar == nil {
		return time.Time{}, false
	}

	for _, ck := range c.hc.Jar.Cookies(c.base) {
		if ck.Name != c.cookieName || ck.Value == "" {
			continue
		}
		claims := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(ck.Value, claims); err != nil {
			c.logger.Debug("session cookie is not a JWT", "error", err)
			return time.Time{}, false
		}
		if claims.ExpiresAt == nil {
			return time.Time{}, false
		}
		return claims.ExpiresAt.Time, true
	}
	return time.Time{}, false
}
