// Package realtime is the Go client for the production realtime channel. It
// keeps one websocket session alive, authenticates it, restores room
// subscriptions after reconnects and reports reconnects so callers can
// reconcile persisted notifications.
package realtime

import "fmt"

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives state changes. Nothing else moves the state.
type Event int

const (
	EventDial Event = iota
	EventOpen
	EventAuthSent
	EventAuthAck
	EventAuthRejected
	EventAuthTimeout
	EventClose
	EventError
)

func (e Event) String() string {
	switch e {
	case EventDial:
		return "dial"
	case EventOpen:
		return "open"
	case EventAuthSent:
		return "auth_sent"
	case EventAuthAck:
		return "auth_ack"
	case EventAuthRejected:
		return "auth_rejected"
	case EventAuthTimeout:
		return "auth_timeout"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var transitions = map[State]map[Event]State{
	Disconnected: {
		EventDial: Connecting,
	},
	Connecting: {
		EventOpen:  Connected,
		EventClose: Disconnected,
		EventError: Disconnected,
	},
	Connected: {
		EventAuthSent: Authenticating,
		EventClose:    Disconnected,
		EventError:    Disconnected,
	},
	Authenticating: {
		EventAuthAck:      Authenticated,
		EventAuthRejected: Disconnected,
		EventAuthTimeout:  Disconnected,
		EventClose:        Disconnected,
		EventError:        Disconnected,
	},
	Authenticated: {
		EventClose: Disconnected,
		EventError: Disconnected,
	},
}

// Next returns the state reached from s on e. ok is false when e is not
// expected in s.
func Next(s State, e Event) (next State, ok bool) {
	next, ok = transitions[s][e]
	if !ok {
		return s, false
	}
	return next, true
}
