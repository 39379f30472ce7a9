package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"production_backend/platform/config"
	"production_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	stateUnauthenticated int32 = iota
	stateAuthenticating
	stateAuthenticated
)

const (
	maxMessageBytes = 64 * 1024
	writeWait       = 10 * time.Second
)

// Options tune session timing and buffering.
type Options struct {
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	AuthTimeout       time.Duration
	SendBuffer        int
}

// OptionsFromConfig reads session options from configuration.
func OptionsFromConfig(cfg config.RealtimeConfig) Options {
	return Options{
		HeartbeatInterval: cfg.GetRealtimeHeartbeatInterval(),
		IdleTimeout:       cfg.GetRealtimeIdleTimeout(),
		AuthTimeout:       cfg.GetRealtimeAuthTimeout(),
		SendBuffer:        cfg.GetRealtimeSendBuffer(),
	}
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 25 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// Session is one websocket connection. All writes go through the send
// buffer drained by a single writer goroutine.
type Session struct {
	id    uuid.UUID
	hub   *Hub
	conn  *websocket.Conn
	opts  Options
	send  chan []byte
	done  chan struct{}
	state atomic.Int32
	once  sync.Once
	log   *logger.Logger

	userID   uuid.UUID
	tenantID uuid.UUID
	roles    []string
}

func newSession(hub *Hub, conn *websocket.Conn, opts Options, log *logger.Logger) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:   uuid.New(),
		hub:  hub,
		conn: conn,
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (s *Session) authenticated() bool {
	return s.state.Load() == stateAuthenticated
}

// enqueue hands data to the writer. Delivery is at most once: a full buffer
// drops the frame.
func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		s.log.Warn("realtime send buffer full, dropping frame", "sessionId", s.id, "userId", s.userID)
		return false
	}
}

func (s *Session) reply(typ string, payload interface{}) {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		s.log.Error("encode realtime reply failed", "error", err, "type", typ)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	s.enqueue(data)
}

func (s *Session) fail(code, message string) {
	s.reply(TypeError, ErrorPayload{Code: code, Message: message})
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.hub != nil {
			s.hub.unregister(s)
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// run serves the connection until it closes.
func (s *Session) run(auth Authenticator) {
	go s.writeLoop()
	s.readLoop(auth)
}

func (s *Session) readLoop(auth Authenticator) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.AuthTimeout))

	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}
		if s.authenticated() {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}
		if !s.handle(env, auth) {
			// Let the writer flush the final error before the socket closes.
			time.Sleep(50 * time.Millisecond)
			return
		}
	}
}

// handle processes one client envelope and reports whether the session
// stays open.
func (s *Session) handle(env Envelope, auth Authenticator) bool {
	switch env.Type {
	case TypeAuth:
		return s.authenticate(env, auth)
	case TypeJoinRoom, TypeLeaveRoom:
		if !s.authenticated() {
			s.fail("UNAUTHENTICATED", "authenticate before joining rooms")
			return true
		}
		var p RoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || !ValidRoom(p.Room) {
			s.fail("INVALID_ROOM", "room must be entity:id")
			return true
		}
		if env.Type == TypeJoinRoom {
			s.hub.join(s, p.Room)
			s.reply(TypeRoomJoined, p)
		} else {
			s.hub.leave(s, p.Room)
			s.reply(TypeRoomLeft, p)
		}
		return true
	case TypePing:
		s.reply(TypePong, nil)
		return true
	case TypePong:
		return true
	default:
		s.fail("UNKNOWN_TYPE", "unknown message type")
		return true
	}
}

func (s *Session) authenticate(env Envelope, auth Authenticator) bool {
	if !s.state.CompareAndSwap(stateUnauthenticated, stateAuthenticating) {
		s.fail("ALREADY_AUTHENTICATED", "session is already authenticated")
		return true
	}

	var p AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Token == "" {
		return s.rejectAuth("auth payload requires token and tenantId")
	}
	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		return s.rejectAuth("auth payload requires token and tenantId")
	}
	claims, err := auth.Authenticate(p.Token)
	if err != nil {
		return s.rejectAuth("invalid token")
	}
	if claims.TenantID == nil || *claims.TenantID != tenantID {
		return s.rejectAuth("token is not valid for this tenant")
	}

	s.userID = claims.UserID
	s.tenantID = tenantID
	s.roles = claims.Roles
	s.hub.register(s)
	s.state.Store(stateAuthenticated)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))

	s.log.AuthEvent("realtime_auth", s.id.String(), true, "")
	s.reply(TypeConnectionStatus, StatusPayload{Status: StatusAuthenticated, SessionID: s.id, UserID: s.userID})
	return true
}

func (s *Session) rejectAuth(reason string) bool {
	s.log.AuthEvent("realtime_auth", s.id.String(), false, reason)
	s.fail("UNAUTHENTICATED", reason)
	s.reply(TypeConnectionStatus, StatusPayload{Status: StatusUnauthenticated})
	return false
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			s.drain()
			return
		case data := <-s.send:
			if err := s.write(data); err != nil {
				return
			}
		case <-ticker.C:
			ping, err := heartbeat()
			if err != nil {
				return
			}
			if err := s.write(ping); err != nil {
				return
			}
		}
	}
}

// heartbeat encodes a server ping stamped with the current time.
func heartbeat() ([]byte, error) {
	env, err := NewEnvelope(TypePing, nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// drain flushes frames queued before close.
func (s *Session) drain() {
	for {
		select {
		case data := <-s.send:
			if s.write(data) != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
