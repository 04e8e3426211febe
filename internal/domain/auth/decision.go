package auth

// Decision is the outcome of a route guard. A denial always carries a redirect target.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow admits the navigation.
func Allow() Decision { return Decision{Allowed: true} }

// RedirectTo denies the navigation and sends the user to target instead.
func RedirectTo(target string) Decision { return Decision{Redirect: target} }

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "redirect(" + d.Redirect + ")"
}
