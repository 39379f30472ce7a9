package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"production_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrAuthRejected is returned for a session the server refused to
	// authenticate.
	ErrAuthRejected = errors.New("realtime: authentication rejected")
	// ErrAuthTimeout is returned when no auth acknowledgement arrived in time.
	ErrAuthTimeout = errors.New("realtime: authentication timed out")
	// ErrGaveUp is returned by Run once the backoff attempts are exhausted.
	ErrGaveUp = errors.New("realtime: reconnect attempts exhausted")
)

// TokenSource returns the bearer token used to authenticate each session.
type TokenSource func(ctx context.Context) (string, error)

// Config configures a Client.
type Config struct {
	URL         string
	TenantID    uuid.UUID
	Token       TokenSource
	Backoff     Backoff
	AuthTimeout time.Duration
	// ReadTimeout bounds silence from the server. It must exceed the server
	// heartbeat period.
	ReadTimeout time.Duration
	Dialer      *websocket.Dialer
	Log         *logger.Logger

	OnMessage     func(Envelope)
	OnStateChange func(from, to State)
	// OnReconnect runs after a session other than the first is
	// authenticated and its rooms are rejoined.
	OnReconnect func(ctx context.Context)
}

// Client maintains a realtime session. Run drives it; Join and Leave may be
// called from any goroutine.
type Client struct {
	cfg Config

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	rooms map[string]struct{}

	writeMu sync.Mutex
}

// New creates a client in the disconnected state.
func New(cfg Config) *Client {
	cfg.Backoff = cfg.Backoff.withDefaults()
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Log == nil {
		cfg.Log = logger.New("production")
	}
	return &Client{cfg: cfg, rooms: make(map[string]struct{})}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) fire(e Event) State {
	c.mu.Lock()
	from := c.state
	to, ok := Next(from, e)
	if !ok {
		c.mu.Unlock()
		c.cfg.Log.Debug("realtime client ignored event", "state", from.String(), "event", e.String())
		return from
	}
	c.state = to
	c.mu.Unlock()

	if to != from && c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(from, to)
	}
	return to
}

// Join subscribes to room now if authenticated and again after every
// reconnect.
func (c *Client) Join(room string) error {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	live := c.state == Authenticated
	c.mu.Unlock()
	if !live {
		return nil
	}
	return c.send(TypeJoinRoom, roomPayload{Room: room})
}

// Leave drops room from the subscription set.
func (c *Client) Leave(room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	live := c.state == Authenticated
	c.mu.Unlock()
	if !live {
		return nil
	}
	return c.send(TypeLeaveRoom, roomPayload{Room: room})
}

// Rooms returns the current subscription set.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// Run connects and keeps reconnecting until ctx ends or the backoff attempts
// run out. The attempt counter resets after every authenticated session.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	sessions := 0
	for {
		authed, err := c.session(ctx, sessions > 0)
		if authed {
			sessions++
			attempt = 0
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		if attempt > c.cfg.Backoff.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempt-1, err)
		}
		delay := c.cfg.Backoff.Delay(attempt)
		c.cfg.Log.Warn("realtime connection lost, retrying", "error", err, "attempt", attempt, "delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// session runs one connection to completion and reports whether it reached
// the authenticated state.
func (c *Client) session(ctx context.Context, reconnect bool) (bool, error) {
	c.fire(EventDial)
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.fire(EventError)
		return false, err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.fire(EventOpen)

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := c.authenticate(ctx, conn); err != nil {
		return false, err
	}
	if err := c.rejoin(); err != nil {
		c.fire(EventError)
		return true, err
	}
	if reconnect && c.cfg.OnReconnect != nil {
		c.cfg.OnReconnect(ctx)
	}

	for {
		env, err := c.read(conn, c.cfg.ReadTimeout)
		if err != nil {
			c.fire(EventClose)
			return true, err
		}
		switch env.Type {
		case TypePing:
			if err := c.send(TypePong, nil); err != nil {
				c.fire(EventError)
				return true, err
			}
		default:
			if c.cfg.OnMessage != nil {
				c.cfg.OnMessage(env)
			}
		}
	}
}

func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn) error {
	token, err := c.cfg.Token(ctx)
	if err != nil {
		c.fire(EventError)
		return fmt.Errorf("realtime: token: %w", err)
	}
	if err := c.send(TypeAuth, authPayload{Token: token, TenantID: c.cfg.TenantID.String()}); err != nil {
		c.fire(EventError)
		return err
	}
	c.fire(EventAuthSent)

	deadline := time.Now().Add(c.cfg.AuthTimeout)
	for {
		env, err := c.read(conn, time.Until(deadline))
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.fire(EventAuthTimeout)
				return ErrAuthTimeout
			}
			c.fire(EventClose)
			return err
		}
		switch env.Type {
		case TypeConnectionStatus:
			var status statusPayload
			if err := json.Unmarshal(env.Payload, &status); err != nil || status.Status != "authenticated" {
				c.fire(EventAuthRejected)
				return ErrAuthRejected
			}
			c.fire(EventAuthAck)
			return nil
		case TypeError:
			// The server follows a rejection with an unauthenticated status.
			continue
		case TypePing:
			continue
		}
	}
}

func (c *Client) rejoin() error {
	for _, room := range c.Rooms() {
		if err := c.send(TypeJoinRoom, roomPayload{Room: room}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) read(conn *websocket.Conn, timeout time.Duration) (Envelope, error) {
	var env Envelope
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	err := conn.ReadJSON(&env)
	return env, err
}

func (c *Client) send(typ string, payload interface{}) error {
	env, err := newEnvelope(typ, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("realtime: not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(env)
}
