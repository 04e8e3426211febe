package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustlehub/hustle-hub-app/config"
	"github.com/hustlehub/hustle-hub-app/internal/bootstrap"
	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	"github.com/hustlehub/hustle-hub-app/internal/testutil"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestShell(t *testing.T, input string) (*shell, *syncBuffer, *testutil.APIServer) {
	t.Helper()
	srv := testutil.NewAPIServer(t)
	srv.SeedUser("alice", "alice@example.com", "secret123", domainauth.RoleEmployer)

	cfg := &config.AppConfig{API: config.APIConfig{BaseURL: srv.URL}}
	cfg.Sanitize()
	c, err := bootstrap.BuildContainer(bootstrap.ContainerDeps{Config: cfg})
	require.NoError(t, err)

	out := &syncBuffer{}
	return newShell(c, strings.NewReader(input), out), out, srv
}

func TestShell_Session(t *testing.T) {
	sh, out, _ := newTestShell(t, strings.Join([]string{
		"go /create-job",
		"login alice@example.com wrong",
		"login alice@example.com secret123",
		"whoami",
		"go /create-job",
		"go /apply-job",
		"logout",
		"whoami",
		"quit",
		"whoami",
	}, "\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sh.repl(ctx))

	got := out.String()
	assert.Contains(t, got, "/auth (redirected from /create-job)\n")
	assert.Contains(t, got, "login failed: Invalid email or password\n")
	assert.Contains(t, got, "welcome, alice (employer)\n")
	assert.Contains(t, got, "authenticated(alice#")
	assert.Contains(t, got, "/create-job\n")
	assert.Contains(t, got, "/profile/employer (redirected from /apply-job)\n")
	assert.Contains(t, got, "logged out\nanonymous\n")
	assert.Equal(t, 1, strings.Count(got, "anonymous\n"), "commands after quit must not run")
}

func TestShell_Register(t *testing.T) {
	sh, out, srv := newTestShell(t, "register bob bob@example.com pw employer\nrefresh\nregister bob bob2@example.com pw\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sh.repl(ctx))

	got := out.String()
	assert.Contains(t, got, "registered bob (employer)\n")
	assert.Contains(t, got, "registration failed: Username already taken\n")
	assert.Equal(t, 2, srv.Calls("POST /auth/register"))
	// The server opens no session on registration; the follow-up login does.
	assert.Equal(t, 1, srv.Calls("POST /auth/login"))
	assert.Contains(t, got, "authenticated(bob#")
}

func TestShell_UsageAndUnknown(t *testing.T) {
	sh, out, _ := newTestShell(t, "login onlyone\nfrobnicate\nhelp\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sh.repl(ctx))

	got := out.String()
	assert.Contains(t, got, "error: usage: login <email> <password>\n")
	assert.Contains(t, got, `unknown command "frobnicate"`)
	assert.Contains(t, got, "Navigate to a page")
}

func TestShell_PrintIdentities(t *testing.T) {
	sh, out, _ := newTestShell(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.printIdentities(ctx) }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[session] anonymous")
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestShell_Refresh(t *testing.T) {
	sh, out, srv := newTestShell(t, "refresh\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sh.repl(ctx))

	assert.Contains(t, out.String(), "anonymous (")
	assert.GreaterOrEqual(t, srv.Calls("GET /auth/me"), 1)
}
