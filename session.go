package main

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/parrotd/ircd/internal/ircmsg"
)

// sessionID is an opaque per-connection handle. It is internal to the
// running process only; it is never sent on the wire.
type sessionID uint64

// regState is the session's registration state. Keeping this as a single
// tri-valued tag (rather than the two independent "authenticated" and
// "registered" booleans spec.md's data model describes) removes the
// representable-but-illegal state registered-but-not-authenticated: see
// DESIGN.md.
type regState int

const (
	stateNew regState = iota
	stateAuthed
	stateRegistered
)

// maxReadBuffer bounds how much unparsed input a session may accumulate
// before we give up on it. Without this cap a slowloris-style client that
// never sends a newline can grow its read buffer without bound.
const maxReadBuffer = 8192

// Session holds state about a single client connection. It is created on
// accept, unauthenticated and unregistered, and destroyed when the socket
// closes, the peer disconnects, QUIT is issued, or the liveness sweep
// decides it's dead.
//
// Only the coordinator goroutine (Server.eventLoop) reads or writes a Session's
// identity/state/membership fields. The session's own readLoop and
// writeLoop goroutines touch only conn, readBuf, and out.
type Session struct {
	id   sessionID
	conn net.Conn
	ip   string
	srv  *Server

	// out is the per-session outbound queue. Only the coordinator sends to
	// it; only writeLoop receives from it. Closing it signals writeLoop to
	// drain and then close the connection.
	out chan ircmsg.Message

	// readBuf accumulates bytes awaiting line framing. It belongs solely to
	// readLoop.
	readBuf []byte

	closeConn sync.Once

	state        regState
	nickname     string
	username     string
	realname     string
	modes        map[byte]struct{}
	channels     map[string]struct{} // channel name as joined -> struct{}
	lastActivity time.Time
	lastTickSeen uint64 // tick counter value as of the last readLoop activity
}

func newSession(id sessionID, conn net.Conn, srv *Server) *Session {
	host := conn.RemoteAddr().String()
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		host = tcpAddr.IP.String()
	}

	return &Session{
		id:           id,
		conn:         conn,
		ip:           host,
		srv:          srv,
		out:          make(chan ircmsg.Message, 100),
		state:        stateNew,
		modes:        make(map[byte]struct{}),
		channels:     make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("%d %s", s.id, s.conn.RemoteAddr())
}

func (s *Session) isAuthenticated() bool {
	return s.state == stateAuthed || s.state == stateRegistered
}

func (s *Session) isRegistered() bool {
	return s.state == stateRegistered
}

// displayNick is the name used in numeric replies before a nickname has
// been assigned.
func (s *Session) displayNick() string {
	if s.nickname == "" {
		return "*"
	}
	return s.nickname
}

// nickUserHost renders the nick!user@host form used as a message source
// for PRIVMSG/NOTICE. The host component is always the literal "localhost"
// regardless of the peer's resolved address, matching
// original_source/CommandHandler.cpp's hardcoded "@localhost" (see
// DESIGN.md) rather than leaking s.ip onto the wire.
func (s *Session) nickUserHost() string {
	return fmt.Sprintf("%s!~%s@localhost", s.nickname, s.username)
}

func (s *Session) userModeString() string {
	str := "+"
	for m := range s.modes {
		str += string(m)
	}
	return str
}

// send queues a message to this session's writer without blocking the
// coordinator on a slow client: if the outbound buffer is full, the
// session is abandoned rather than letting one bad client stall every
// other client's broadcasts.
func (s *Session) send(m ircmsg.Message) {
	select {
	case s.out <- m:
	default:
		s.srv.logf("Session %s: output queue full, dropping connection", s)
		s.srv.postDeadSession(s, "Output buffer full")
	}
}

// closeSocket closes the underlying socket exactly once. It is safe to
// call from both readLoop and writeLoop.
func (s *Session) closeSocket() {
	s.closeConn.Do(func() {
		_ = s.conn.Close()
	})
}
