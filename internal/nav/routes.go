package nav

import (
	"path"
	"strings"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
)

// Kind says which guard protects a route.
type Kind int

const (
	Public Kind = iota
	Protected
	GuestOnly
	RoleRestricted
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case GuestOnly:
		return "guest"
	case RoleRestricted:
		return "role"
	}
	return "unknown"
}

// Access describes how a route is guarded.
type Access struct {
	Kind  Kind
	Roles []domainauth.Role
}

// Table maps clean absolute paths to their access rule.
type Table map[string]Access

// DefaultTable returns the HustleHub page map.
func DefaultTable() Table {
	public := Access{Kind: Public}
	applicant := Access{Kind: RoleRestricted, Roles: []domainauth.Role{domainauth.RoleApplicant}}
	employer := Access{Kind: RoleRestricted, Roles: []domainauth.Role{domainauth.RoleEmployer}}
	admin := Access{Kind: RoleRestricted, Roles: []domainauth.Role{domainauth.RoleAdmin}}

	return Table{
		"/home":               public,
		"/financial-literacy": public,
		"/budgeting":          public,
		"/credit":             public,
		"/investing":          public,
		"/auth":               {Kind: GuestOnly},
		"/profile":            {Kind: Protected},
		"/applications":       {Kind: Protected},
		"/profile/applicant":  applicant,
		"/apply-job":          applicant,
		"/profile/employer":   employer,
		"/employer-dashboard": employer,
		"/create-job":         employer,
		"/profile/admin":      admin,
		"/admin-dashboard":    admin,
	}
}

// normalize strips query and fragment and cleans p. Empty and root paths become "".
func normalize(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p
}
