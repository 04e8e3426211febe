package auth

// Package auth contains domain-level types for the client session core.
// It is pure and free of transport/adapter concerns.

import (
	"fmt"
	"path"
	"strings"
)

// Role represents a job-board authorization role.
// Keep string form so it round-trips through the API unchanged.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleApplicant, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role: %q (valid options: applicant, employer, admin)", s)
	}
	return r, nil
}

// Home returns the role-specific landing page under profilePrefix, e.g. /profile/employer.
func (r Role) Home(profilePrefix string) string {
	if profilePrefix == "" {
		profilePrefix = "/profile"
	}
	return path.Join("/", profilePrefix, string(r))
}

// User is the account record returned by the API for an authenticated session.
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// State is the resolution state of an Identity.
type State uint8

const (
	// StateUnknown means the "who am I" query has not resolved yet. It is not anonymous.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Identity is what the client knows about the current session.
// The zero value is Unknown.
type Identity struct {
	state State
	user  User
}

// Unknown returns the initial, unresolved identity.
func Unknown() Identity { return Identity{} }

// Anonymous returns a resolved identity with no valid session.
func Anonymous() Identity { return Identity{state: StateAnonymous} }

// Authenticated returns a resolved identity for u.
func Authenticated(u User) Identity { return Identity{state: StateAuthenticated, user: u} }

// IdentityFromUser maps an optional user to Authenticated or Anonymous.
func IdentityFromUser(u *User) Identity {
	if u == nil {
		return Anonymous()
	}
	return Authenticated(*u)
}

func (i Identity) State() State { return i.state }

// Resolved reports whether the identity has left Unknown.
func (i Identity) Resolved() bool { return i.state != StateUnknown }

// IsAuthenticated is false for both Anonymous and Unknown.
func (i Identity) IsAuthenticated() bool { return i.state == StateAuthenticated }

// User returns the authenticated user, if any.
func (i Identity) User() (User, bool) {
	if i.state != StateAuthenticated {
		return User{}, false
	}
	return i.user, true
}

// HasRole reports whether the identity is authenticated with exactly role r.
func (i Identity) HasRole(r Role) bool {
	return i.state == StateAuthenticated && i.user.Role == r
}

func (i Identity) String() string {
	if i.state == StateAuthenticated {
		return fmt.Sprintf("authenticated(%s#%d, %s)", i.user.Username, i.user.ID, i.user.Role)
	}
	return i.state.String()
}
