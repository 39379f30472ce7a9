package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"production_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks the server side of the protocol. The first connection is
// dropped right after its first room join.
type fakeServer struct {
	mu     sync.Mutex
	conns  int
	auths  int
	joins  map[int][]string
	reject bool
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conns++
	n := f.conns
	f.mu.Unlock()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		switch env.Type {
		case TypeAuth:
			f.mu.Lock()
			f.auths++
			reject := f.reject
			f.mu.Unlock()
			status := "authenticated"
			if reject {
				status = "unauthenticated"
			}
			reply, _ := newEnvelope(TypeConnectionStatus, statusPayload{Status: status})
			_ = conn.WriteJSON(reply)
			if reject {
				return
			}
		case TypeJoinRoom:
			var p roomPayload
			_ = json.Unmarshal(env.Payload, &p)
			f.mu.Lock()
			if f.joins == nil {
				f.joins = make(map[int][]string)
			}
			f.joins[n] = append(f.joins[n], p.Room)
			f.mu.Unlock()
			if n == 1 {
				return
			}
			event, _ := newEnvelope("event", map[string]string{"room": p.Room})
			_ = conn.WriteJSON(event)
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func staticToken(context.Context) (string, error) { return "token", nil }

func TestClientReconnectsAndRejoinsRooms(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handle))
	defer srv.Close()

	reconnected := make(chan struct{}, 1)
	messages := make(chan Envelope, 4)
	client := New(Config{
		URL:         wsURL(srv),
		TenantID:    uuid.New(),
		Token:       staticToken,
		Backoff:     Backoff{Initial: time.Millisecond, Max: 10 * time.Millisecond, MaxAttempts: 3},
		AuthTimeout: time.Second,
		Log:         logger.New("test"),
		OnMessage:   func(env Envelope) { messages <- env },
		OnReconnect: func(context.Context) { reconnected <- struct{}{} },
	})
	room := "order:" + uuid.NewString()
	require.NoError(t, client.Join(room))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case <-reconnected:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not reconnect")
	}
	select {
	case env := <-messages:
		assert.Equal(t, "event", env.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no event after reconnect")
	}
	assert.Equal(t, Authenticated, client.State())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 2, fake.auths)
	assert.Equal(t, []string{room}, fake.joins[1])
	assert.Equal(t, []string{room}, fake.joins[2])
}

func TestClientGivesUpAfterBoundedAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	var states []State
	client := New(Config{
		URL:           url,
		TenantID:      uuid.New(),
		Token:         staticToken,
		Backoff:       Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 3},
		Log:           logger.New("test"),
		OnStateChange: func(_, to State) { states = append(states, to) },
	})

	err := client.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGaveUp))
	assert.Equal(t, Disconnected, client.State())
	// One initial dial plus three retries, each connecting then failing.
	assert.Len(t, states, 8)
}

func TestClientRejectedAuthIsRetriedThenAbandoned(t *testing.T) {
	fake := &fakeServer{reject: true}
	srv := httptest.NewServer(http.HandlerFunc(fake.handle))
	defer srv.Close()

	client := New(Config{
		URL:      wsURL(srv),
		TenantID: uuid.New(),
		Token:    staticToken,
		Backoff:  Backoff{Initial: time.Millisecond, Max: time.Millisecond, MaxAttempts: 2},
		Log:      logger.New("test"),
	})

	err := client.Run(context.Background())
	assert.ErrorIs(t, err, ErrGaveUp)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 3, fake.auths)
}
