package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/hustlehub/hustle-hub-app/internal/domain/auth"
	fakes "github.com/hustlehub/hustle-hub-app/internal/mocks/auth"
	"github.com/hustlehub/hustle-hub-app/internal/testutil"
)

func resolvedStore(t *testing.T) (*Store, *testutil.RecordingSink) {
	t.Helper()
	s, sink := newTestStore(t, fakes.NewFakeAuthAPI())
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := s.WaitResolved(ctx)
	require.NoError(t, err)
	return s, sink
}

func TestSubscription_ReplaysCurrentValue(t *testing.T) {
	s, _ := resolvedStore(t)

	sub := s.Subscribe()
	defer sub.Close()

	select {
	case id := <-sub.C():
		assert.Equal(t, domainauth.Anonymous(), id)
	default:
		t.Fatal("subscriber did not receive the current value immediately")
	}
}

func TestSubscription_SlowReaderSeesLatest(t *testing.T) {
	s, _ := resolvedStore(t)
	sub := s.Subscribe()
	defer sub.Close()

	alice := testutil.Alice()
	admin := testutil.Admin()
	s.SetIdentity(&alice)
	s.SetIdentity(nil)
	s.SetIdentity(&admin)

	require.Len(t, sub.C(), 1)
	assert.Equal(t, domainauth.Authenticated(admin), <-sub.C())
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	s, sink := resolvedStore(t)
	sub := s.Subscribe()
	<-sub.C()

	sub.Close()
	sub.Close()

	alice := testutil.Alice()
	s.SetIdentity(&alice)

	_, ok := <-sub.C()
	assert.False(t, ok)

	gauges := sink.Find("session.subscribers")
	require.NotEmpty(t, gauges)
	assert.Equal(t, float64(0), gauges[len(gauges)-1].Value)
}

func TestStore_WaitResolvedReleasesOnCancel(t *testing.T) {
	api := fakes.NewFakeAuthAPI()
	gate := make(chan struct{})
	defer close(gate)
	api.QueueMe(fakes.Response{Gate: gate})
	s, _ := newTestStore(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.WaitResolved(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.subs)
}
