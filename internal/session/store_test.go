package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	apperrors "github.com/hustlehub/hustle-hub-app/internal/errors"
	fakes "github.com/hustlehub/hustle-hub-app/internal/mocks/auth"
	"github.com/hustlehub/hustle-hub-app/internal/testutil"
)

const waitFor = 2 * time.Second

func newTestStore(t *testing.T, api *fakes.FakeAuthAPI) (*Store, *testutil.RecordingSink) {
	t.Helper()
	sink := &testutil.RecordingSink{}
	s := NewStore(StoreOptions{Fetcher: api, Metrics: sink})
	return s, sink
}

// awaitStarted blocks until the fake reports a Me call.
func awaitStarted(t *testing.T, api *fakes.FakeAuthAPI) {
	t.Helper()
	select {
	case op := <-api.Started():
		require.Equal(t, "me", op)
	case <-time.After(waitFor):
		t.Fatal("identity query was never issued")
	}
}

func (s *Store) hasQueued() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued != nil
}

func TestStore_StartsUnknownAndResolvesAuthenticated(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	alice := testutil.Alice()
	gate := make(chan struct{})
	api.QueueMe(fakes.Response{User: &alice, Gate: gate})

	s, _ := newTestStore(t, api)
	awaitStarted(t, api)
	assert.Equal(t, domainauth.StateUnknown, s.Current().State())

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	id, err := s.WaitResolved(ctx)
	require.NoError(t, err)

	u, ok := id.User()
	require.True(t, ok)
	assert.Equal(t, alice, u)
}

func TestStore_QueryFailureResolvesAnonymous(t *testing.T) {
	tests := []struct {
		name string
		resp fakes.Response
	}{
		{name: "no session", resp: fakes.Response{}},
		{name: "server unreachable", resp: fakes.Response{Err: apperrors.Unavailable("server unreachable")}},
		{name: "timeout", resp: fakes.Response{Err: apperrors.MapTransportError(context.DeadlineExceeded)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := fakes.NewFakeAuthAPI()
			api.QueueMe(tt.resp)
			s, sink := newTestStore(t, api)

			ctx, cancel := context.WithTimeout(context.Background(), waitFor)
			defer cancel()
			id, err := s.WaitResolved(ctx)
			require.NoError(t, err)
			assert.Equal(t, domainauth.StateAnonymous, id.State())

			assert.Eventually(t, func() bool { return len(sink.Find("session.refresh")) == 1 }, waitFor, 5*time.Millisecond)
			assert.Equal(t, "anonymous", sink.Find("session.refresh")[0].Tags["result"])
		})
	}
}

func TestStore_LoginBeforeInitialCheckWins(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	gate := make(chan struct{})
	// The initial check will report "no session" once released.
	api.QueueMe(fakes.Response{Gate: gate})

	s, sink := newTestStore(t, api)
	awaitStarted(t, api)

	alice := testutil.Alice()
	s.SetIdentity(&alice)
	close(gate)

	require.Eventually(t, func() bool { return len(sink.Find("session.refresh")) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, "stale", sink.Find("session.refresh")[0].Tags["result"])
	assert.Equal(t, domainauth.Authenticated(alice), s.Current())
}

// resolveInitial waits for the initial query to settle and consumes its start notification.
func resolveInitial(t *testing.T, s *Store, api *fakes.FakeAuthAPI) domainauth.Identity {
	t.Helper()
	awaitStarted(t, api)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	id, err := s.WaitResolved(ctx)
	require.NoError(t, err)
	return id
}

func TestStore_RefreshDuringInitialQueryJoinsIt(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	alice := testutil.Alice()
	gate := make(chan struct{})
	api.QueueMe(fakes.Response{User: &alice, Gate: gate})

	s, sink := newTestStore(t, api)
	awaitStarted(t, api)

	s.RequestRefresh()
	assert.False(t, s.hasQueued(), "a refresh while unknown joins the initial query")

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	id, err := s.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, domainauth.Authenticated(alice), id)
	assert.Equal(t, domainauth.Authenticated(alice), s.Current())
	assert.Equal(t, 1, api.Calls("me"))
	require.Eventually(t, func() bool { return len(sink.Find("session.refresh")) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, "applied", sink.Find("session.refresh")[0].Tags["result"])
}

func TestStore_OverlappingRefreshesLatestWins(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	alice := testutil.Alice()
	gate := make(chan struct{})
	api.QueueMe(
		fakes.Response{},                         // initial query: no session
		fakes.Response{User: &alice, Gate: gate}, // superseded
		fakes.Response{},                         // trailing query: session gone
	)

	s, _ := newTestStore(t, api)
	require.Equal(t, domainauth.Anonymous(), resolveInitial(t, s, api))

	sub := s.Subscribe()
	defer sub.Close()

	s.RequestRefresh()
	awaitStarted(t, api)

	result := make(chan domainauth.Identity, 1)
	go func() {
		id, _ := s.Refresh(context.Background())
		result <- id
	}()
	require.Eventually(t, s.hasQueued, waitFor, time.Millisecond)
	close(gate)

	select {
	case id := <-result:
		assert.Equal(t, domainauth.Anonymous(), id)
	case <-time.After(waitFor):
		t.Fatal("refresh did not return")
	}
	assert.Equal(t, 3, api.Calls("me"))

	// The superseded authenticated answer was never published.
	var seen []domainauth.Identity
	for len(sub.C()) > 0 {
		seen = append(seen, <-sub.C())
	}
	for _, id := range seen {
		assert.NotEqual(t, domainauth.StateAuthenticated, id.State())
	}
}

func TestStore_ConcurrentRefreshesCoalesce(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	gate := make(chan struct{})
	api.QueueMe(fakes.Response{}, fakes.Response{Gate: gate})

	s, _ := newTestStore(t, api)
	resolveInitial(t, s, api)

	alice := testutil.Alice()
	api.SetSession(&alice)
	s.RequestRefresh()
	awaitStarted(t, api)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan domainauth.Identity, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Refresh(context.Background())
			assert.NoError(t, err)
			results <- id
		}()
	}
	require.Eventually(t, s.hasQueued, waitFor, time.Millisecond)
	// Let every caller join before releasing the in-flight query.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	for id := range results {
		assert.Equal(t, domainauth.Authenticated(alice), id)
	}
	assert.Equal(t, 3, api.Calls("me"), "initial query, the in-flight one and a single trailing query")
}

func TestStore_SetIdentityDropsQueuedQuery(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	gate := make(chan struct{})
	api.QueueMe(fakes.Response{}, fakes.Response{Gate: gate})

	s, sink := newTestStore(t, api)
	resolveInitial(t, s, api)

	s.RequestRefresh()
	awaitStarted(t, api)

	result := make(chan domainauth.Identity, 1)
	go func() {
		id, _ := s.Refresh(context.Background())
		result <- id
	}()
	require.Eventually(t, s.hasQueued, waitFor, time.Millisecond)

	alice := testutil.Alice()
	s.SetIdentity(&alice)

	select {
	case id := <-result:
		assert.Equal(t, domainauth.Authenticated(alice), id)
	case <-time.After(waitFor):
		t.Fatal("refresh waiter was not released by SetIdentity")
	}

	close(gate)
	require.Eventually(t, func() bool { return len(sink.Find("session.refresh")) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, "stale", sink.Find("session.refresh")[1].Tags["result"])
	assert.Equal(t, 2, api.Calls("me"))
	assert.Equal(t, domainauth.Authenticated(alice), s.Current())
}

func TestStore_RequestRefreshDoesNotWait(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	alice := testutil.Alice()
	gate := make(chan struct{})
	api.QueueMe(fakes.Response{}, fakes.Response{User: &alice, Gate: gate})

	s, _ := newTestStore(t, api)
	resolveInitial(t, s, api)

	s.RequestRefresh()
	awaitStarted(t, api)
	assert.Equal(t, domainauth.Anonymous(), s.Current())

	close(gate)
	assert.Eventually(t, func() bool { return s.Current() == domainauth.Authenticated(alice) }, waitFor, 5*time.Millisecond)
}

func TestStore_RefreshHonoursContext(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	gate := make(chan struct{})
	defer close(gate)
	api.QueueMe(fakes.Response{Gate: gate})

	s, _ := newTestStore(t, api)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	id, err := s.Refresh(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domainauth.StateUnknown, id.State())
}

func TestStore_NeverReturnsToUnknown(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	s, _ := newTestStore(t, api)
	sub := s.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	var mu sync.Mutex
	var seen []domainauth.Identity
	done := make(chan struct{})
	go func() {
		defer close(done)
		for id := range sub.C() {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
		}
	}()

	alice := testutil.Alice()
	for i := range 20 {
		if i%3 == 0 {
			s.SetIdentity(&alice)
		}
		if i%5 == 0 {
			s.SetIdentity(nil)
		}
		_, err := s.Refresh(ctx)
		require.NoError(t, err)
	}
	sub.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	resolved := false
	for _, id := range seen {
		if resolved {
			assert.True(t, id.Resolved(), "identity went back to unknown")
		}
		resolved = resolved || id.Resolved()
	}
	assert.True(t, resolved)
}

func TestStore_IdentityChangeMetrics(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	s, sink := newTestStore(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := s.WaitResolved(ctx)
	require.NoError(t, err)

	alice := testutil.Alice()
	s.SetIdentity(&alice)
	s.SetIdentity(&alice)

	changes := sink.Find("session.identity_change")
	require.Len(t, changes, 2, "repeating the same identity is not a change")
	assert.Equal(t, map[string]string{"from": "unknown", "to": "anonymous"}, changes[0].Tags)
	assert.Equal(t, map[string]string{"from": "anonymous", "to": "authenticated"}, changes[1].Tags)
}
