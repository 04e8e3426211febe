// Package auth contains a hand-written in-memory stand-in for the remote auth API.
// Unlike the gomock double it keeps server-side session state and can hold individual
// "who am I" calls open, which is what the race tests need.
package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
	"github.com/hustlehub/hustle-hub-app/internal/ports"
)

var _ ports.AuthAPI = (*FakeAuthAPI)(nil)

// Response scripts a single Me call.
type Response struct {
	// User is returned when non-nil. A nil User with a nil Err yields "Not authenticated".
	User *domainauth.User
	Err  error
	// Gate, when non-nil, holds the call open until it is closed or the caller's ctx ends.
	Gate chan struct{}
}

type account struct {
	user     domainauth.User
	password string
}

// FakeAuthAPI implements ports.AuthAPI with a single server-side session.
type FakeAuthAPI struct {
	// LogoutErr, when set, is returned by Logout and the server session is left intact.
	LogoutErr error

	mu       sync.Mutex
	accounts map[string]account
	session  *domainauth.User
	script   []Response
	calls    map[string]int
	nextID   int64
	started  chan string
}

// NewFakeAuthAPI returns an empty fake with no session.
func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{
		accounts: make(map[string]account),
		calls:    make(map[string]int),
		nextID:   1,
		started:  make(chan string, 64),
	}
}

// AddAccount registers credentials that Login will accept.
func (f *FakeAuthAPI) AddAccount(u domainauth.User, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[strings.ToLower(u.Email)] = account{user: u, password: password}
	if u.ID >= f.nextID {
		f.nextID = u.ID + 1
	}
}

// SetSession replaces the server-side session. nil means no session.
func (f *FakeAuthAPI) SetSession(u *domainauth.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u == nil {
		f.session = nil
		return
	}
	cp := *u
	f.session = &cp
}

// QueueMe appends scripted responses consumed by successive Me calls, ahead of the session.
func (f *FakeAuthAPI) QueueMe(rs ...Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, rs...)
}

// Calls reports how many times op ("me", "login", "register", "logout") was invoked.
func (f *FakeAuthAPI) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Started receives op names as calls begin. Notifications are dropped when nobody reads.
func (f *FakeAuthAPI) Started() <-chan string {
	return f.started
}

func (f *FakeAuthAPI) begin(op string) {
	f.calls[op]++
	select {
	case f.started <- op:
	default:
	}
}

func (f *FakeAuthAPI) Me(ctx context.Context) (domainauth.User, error) {
	f.mu.Lock()
	f.begin("me")
	var r Response
	scripted := len(f.script) > 0
	if scripted {
		r, f.script = f.script[0], f.script[1:]
	} else if f.session != nil {
		u := *f.session
		r.User = &u
	}
	f.mu.Unlock()

	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return domainauth.User{}, apperrors.MapTransportError(ctx.Err())
		}
	}

	switch {
	case r.Err != nil:
		return domainauth.User{}, r.Err
	case r.User != nil:
		return *r.User, nil
	default:
		return domainauth.User{}, apperrors.FromStatus(http.StatusUnauthorized, "Not authenticated")
	}
}

func (f *FakeAuthAPI) Login(_ context.Context, in domainauth.LoginInput) (domainauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("login")

	acct, ok := f.accounts[strings.ToLower(in.Email)]
	if !ok || acct.password != in.Password {
		return domainauth.User{}, apperrors.FromStatus(http.StatusBadRequest, "Invalid email or password")
	}
	u := acct.user
	f.session = &u
	return u, nil
}

func (f *FakeAuthAPI) Register(_ context.Context, in domainauth.RegisterInput) (domainauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("register")

	if !in.Role.Valid() {
		return domainauth.User{}, apperrors.FromStatus(http.StatusBadRequest, "Invalid role selection")
	}
	if _, taken := f.accounts[strings.ToLower(in.Email)]; taken {
		return domainauth.User{}, apperrors.FromStatus(http.StatusBadRequest, "Email already registered")
	}
	for _, a := range f.accounts {
		if a.user.Username == in.Username {
			return domainauth.User{}, apperrors.FromStatus(http.StatusBadRequest, "Username already taken")
		}
	}

	u := domainauth.User{ID: f.nextID, Username: in.Username, Email: in.Email, Role: in.Role}
	f.nextID++
	// Like the real API, registering creates the account but no session.
	f.accounts[strings.ToLower(in.Email)] = account{user: u, password: in.Password}
	return u, nil
}

func (f *FakeAuthAPI) Logout(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begin("logout")

	if f.LogoutErr != nil {
		return f.LogoutErr
	}
	f.session = nil
	return nil
}
