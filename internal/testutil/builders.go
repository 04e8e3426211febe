package testutil

import (
	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
)

// UserBuilder provides a fluent interface for building domain users for tests.
type UserBuilder struct {
	user domainauth.User
}

// NewUser creates a UserBuilder with sensible defaults (an applicant).
func NewUser() *UserBuilder {
	return &UserBuilder{
		user: domainauth.User{
			ID:       1,
			Username: "applicant",
			Email:    "applicant@example.com",
			Role:     domainauth.RoleApplicant,
		},
	}
}

// WithID sets the user ID.
func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.user.ID = id
	return b
}

// WithUsername sets the username and derives a matching email.
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.user.Username = name
	b.user.Email = name + "@example.com"
	return b
}

// WithRole sets the role.
func (b *UserBuilder) WithRole(role domainauth.Role) *UserBuilder {
	b.user.Role = role
	return b
}

// Build returns the constructed user.
func (b *UserBuilder) Build() domainauth.User {
	return b.user
}

// Ptr returns a pointer to a copy of the constructed user.
func (b *UserBuilder) Ptr() *domainauth.User {
	u := b.user
	return &u
}

// Alice is the employer used in the guard scenarios.
func Alice() domainauth.User {
	return NewUser().WithID(7).WithUsername("alice").WithRole(domainauth.RoleEmployer).Build()
}

// Admin returns an admin user.
func Admin() domainauth.User {
	return NewUser().WithID(1).WithUsername("root").WithRole(domainauth.RoleAdmin).Build()
}
