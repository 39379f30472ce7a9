package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitions(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
		want State
		ok   bool
	}{
		{Disconnected, EventDial, Connecting, true},
		{Connecting, EventOpen, Connected, true},
		{Connecting, EventError, Disconnected, true},
		{Connected, EventAuthSent, Authenticating, true},
		{Authenticating, EventAuthAck, Authenticated, true},
		{Authenticating, EventAuthRejected, Disconnected, true},
		{Authenticating, EventAuthTimeout, Disconnected, true},
		{Authenticated, EventClose, Disconnected, true},
		{Authenticated, EventError, Disconnected, true},

		{Disconnected, EventAuthAck, Disconnected, false},
		{Connecting, EventAuthSent, Connecting, false},
		{Connected, EventAuthAck, Connected, false},
		{Authenticated, EventDial, Authenticated, false},
	}
	for _, tc := range cases {
		got, ok := Next(tc.from, tc.ev)
		assert.Equal(t, tc.ok, ok, "%s on %s", tc.from, tc.ev)
		assert.Equal(t, tc.want, got, "%s on %s", tc.from, tc.ev)
	}
}

func TestAuthenticatedOnlyReachableThroughAuthAck(t *testing.T) {
	for from, edges := range transitions {
		for ev, to := range edges {
			if to == Authenticated {
				assert.Equal(t, Authenticating, from)
				assert.Equal(t, EventAuthAck, ev)
			}
		}
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, MaxAttempts: 5}

	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 400*time.Millisecond, b.Delay(3))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))
	assert.Equal(t, time.Second, b.Delay(60))
}

func TestBackoffDefaults(t *testing.T) {
	b := Backoff{}.withDefaults()
	assert.Equal(t, DefaultBackoff.Initial, b.Initial)
	assert.Equal(t, DefaultBackoff.MaxAttempts, b.MaxAttempts)
	assert.Equal(t, b.Initial, Backoff{}.Delay(0))
}
