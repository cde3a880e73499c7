package main

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parrotd/ircd/internal/ircmsg"
	"github.com/pkg/errors"
)

// Config holds the server's runtime configuration. spec.md's CLI takes only
// a port and a password; everything else is a fixed default, the way the
// teacher's Config struct carries a handful of required keys rather than
// an open-ended settings object.
type Config struct {
	ListenHost string
	ListenPort string
	ServerName string
	Password   string
}

// eventKind tags what a coordinator event represents.
type eventKind int

const (
	evNewSession eventKind = iota
	evMessage
	evDeadSession
	evTick
	evShutdown
)

// event is the only type that crosses from a per-connection goroutine (or
// the ticker, or the signal handler) into the coordinator goroutine. The
// coordinator is the sole owner of Server.sessions/nicks/channels: because
// only one goroutine ever mutates the registry, no lock is needed — see
// SPEC_FULL.md §4.1/§5.
type event struct {
	kind    eventKind
	session *Session
	command string
	params  []string
	reason  string
}

// Server is the process-wide directory: every live Session, every live
// Channel, and the secondary nickname index. It also owns the listening
// socket and the event loop that serializes all access to that state.
type Server struct {
	Config Config

	listener net.Listener
	events   chan event

	sessions map[sessionID]*Session
	nicks    map[string]*Session
	channels map[string]*Channel
	nextID   sessionID

	tickCount uint64

	stopped int32

	wg sync.WaitGroup
}

// idleTimeBeforePing and idleTimeBeforeDead drive the liveness sweep
// (spec.md §4.6), translated from "peek a byte / inspect socket error"
// into last-activity bookkeeping — see SPEC_FULL.md §4.1.
const (
	idleTimeBeforePing = 90 * time.Second
	idleTimeBeforeDead = 180 * time.Second
)

// NewServer allocates a Server ready to Run.
func NewServer(cfg Config) *Server {
	return &Server{
		Config:   cfg,
		events:   make(chan event, 4096),
		sessions: make(map[sessionID]*Session),
		nicks:    make(map[string]*Session),
		channels: make(map[string]*Channel),
	}
}

// Run listens on Config.ListenHost:ListenPort and drives the coordinator
// loop until a shutdown is observed. It returns once every session has
// been disconnected and the listener closed.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Config.ListenHost, s.Config.ListenPort))
	if err != nil {
		return errors.Wrap(err, "unable to listen")
	}
	s.listener = ln

	s.logf("Server listening on %s", ln.Addr())

	s.wg.Add(3)
	go s.acceptLoop()
	go s.tickerLoop()
	go s.watchSignals()

	s.eventLoop()

	s.wg.Wait()
	s.logf("Server shutdown cleanly.")
	return nil
}

// acceptLoop accepts TCP connections and starts each session's read/write
// goroutines. It runs until the listener is closed by the coordinator's
// shutdown handling, at which point Accept returns an error and the loop
// exits.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.logf("Listener closed: %s", err)
			return
		}

		id := s.allocateID()
		sess := newSession(id, conn, s)

		s.wg.Add(2)
		go s.readLoop(sess)
		go s.writeLoop(sess)

		s.events <- event{kind: evNewSession, session: sess}
	}
}

// allocateID hands out a unique, process-local session handle. It is only
// called from acceptLoop, which runs on a single goroutine, so no
// synchronization is needed here.
func (s *Server) allocateID() sessionID {
	s.nextID++
	return s.nextID
}

// tickerLoop fires an evTick once per second, standing in for the 1-second
// timeout on the source's select() call (spec.md §4.1 step 2).
func (s *Server) tickerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if atomic.LoadInt32(&s.stopped) == 1 {
			return
		}
		s.events <- event{kind: evTick}
	}
}

func (s *Server) stopTicker() {
	atomic.StoreInt32(&s.stopped, 1)
}

// readLoop implements spec.md §4.1/§4.2 for one session: it reads raw
// bytes into the session's read buffer, extracts complete lines across
// arbitrary fragmentation boundaries, parses each into a command and
// argument vector, and forwards the result to the coordinator. A read
// error (including EOF) reports the session dead and returns.
func (s *Server) readLoop(sess *Session) {
	defer s.wg.Done()

	scratch := make([]byte, 1024)

	for {
		n, err := sess.conn.Read(scratch)
		if n > 0 {
			sess.readBuf = append(sess.readBuf, scratch[:n]...)

			if len(sess.readBuf) > maxReadBuffer {
				s.postDeadSession(sess, "Read buffer exceeded maximum size")
				return
			}

			lines, rest := ircmsg.ExtractLines(sess.readBuf)
			sess.readBuf = rest

			for _, line := range lines {
				cmd, params := ircmsg.ParseLine(line)
				if cmd == "" {
					continue
				}
				s.events <- event{
					kind:    evMessage,
					session: sess,
					command: cmd,
					params:  params,
				}
			}
		}

		if err != nil {
			s.postDeadSession(sess, deadReason(err))
			return
		}
	}
}

// writeLoop drains a session's outbound queue, encoding and writing one
// message at a time, until the queue is closed (by the coordinator tearing
// the session down) or a write fails.
func (s *Server) writeLoop(sess *Session) {
	defer s.wg.Done()

	for msg := range sess.out {
		line, err := msg.Encode()
		if err != nil && err != ircmsg.ErrTruncated {
			s.logf("Session %s: unable to encode message: %s", sess, err)
			continue
		}

		if _, werr := writeAll(sess.conn, line); werr != nil {
			s.postDeadSession(sess, deadReason(werr))
			break
		}
	}

	sess.closeSocket()
}

func writeAll(conn net.Conn, s string) (int, error) {
	b := []byte(s)
	total := 0
	for total < len(b) {
		n, err := conn.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// postDeadSession reports that sess appears to have died, from whichever
// goroutine observed it (readLoop, writeLoop, or the coordinator itself via
// Session.send). The events channel is generously buffered so this never
// blocks its caller for long.
func (s *Server) postDeadSession(sess *Session, reason string) {
	s.events <- event{kind: evDeadSession, session: sess, reason: reason}
}

// eventLoop is the coordinator: the single goroutine that owns the
// registry and processes exactly one event at a time.
func (s *Server) eventLoop() {
	for e := range s.events {
		s.handleEvent(e)
		if e.kind == evShutdown {
			return
		}
	}
}

func (s *Server) handleEvent(e event) {
	switch e.kind {
	case evNewSession:
		s.sessions[e.session.id] = e.session
		s.logf("New connection: %s", e.session)

	case evDeadSession:
		if _, exists := s.sessions[e.session.id]; exists {
			s.disconnectSession(e.session, reasonOrDefault(e.reason))
		}

	case evMessage:
		if _, exists := s.sessions[e.session.id]; !exists {
			return
		}
		e.session.lastActivity = time.Now()
		e.session.lastTickSeen = s.tickCount
		s.dispatch(e.session, e.command, e.params)

	case evTick:
		s.tickCount++
		s.livenessSweep()

	case evShutdown:
		s.shutdownAll()
	}
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "I/O error"
	}
	return reason
}

// livenessSweep runs every tick, but both the idle PING and the
// dead-connection check act only on every third tick, matching spec.md
// §4.1 step 7 / §4.6.
func (s *Server) livenessSweep() {
	now := time.Now()
	everyThird := s.tickCount%3 == 0

	for _, sess := range s.sessions {
		idle := now.Sub(sess.lastActivity)

		if !sess.isRegistered() {
			if everyThird && idle > idleTimeBeforeDead {
				s.disconnectSession(sess, "Idle too long")
			}
			continue
		}

		if idle < idleTimeBeforePing {
			continue
		}

		if everyThird && idle > idleTimeBeforeDead {
			s.disconnectSession(sess, "Ping timeout")
			continue
		}

		if everyThird {
			s.messageClient(sess, "PING", []string{s.Config.ServerName})
		}
	}
}

// shutdownAll disconnects every session, stops accepting new connections,
// and lets Run's wait finish tearing goroutines down. This is the
// shutdown coordinator of spec.md §2.7/§6: observed once per event-loop
// iteration, acted on exactly once.
func (s *Server) shutdownAll() {
	s.logf("Shutting down: closing listener and disconnecting %d session(s)",
		len(s.sessions))

	_ = s.listener.Close()
	s.stopTicker()

	for _, sess := range s.sessions {
		s.disconnectSession(sess, "Server shutting down")
	}
}

func (s *Server) logf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

func deadReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
