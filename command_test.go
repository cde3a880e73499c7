package main

import (
	"net"
	"testing"

	"github.com/parrotd/ircd/internal/ircmsg"
)

// newTestSession builds a Session wired to a Server for direct dispatch
// calls, without running any goroutines. Sessions are tested by calling
// dispatch synchronously and draining sess.out.
func newTestSession(t *testing.T, srv *Server, id sessionID) *Session {
	t.Helper()

	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	sess := newSession(id, server, srv)
	sess.out = make(chan ircmsg.Message, 16)
	srv.sessions[id] = sess
	return sess
}

func drain(sess *Session) []ircmsg.Message {
	var msgs []ircmsg.Message
	for {
		select {
		case m := <-sess.out:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestDispatchNewStateRejectsNonPass(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})
	sess := newTestSession(t, srv, 1)

	srv.dispatch(sess, "NICK", []string{"alice"})

	msgs := drain(sess)
	if len(msgs) != 1 || msgs[0].Command != errPasswdMismatch {
		t.Fatalf("dispatch(NEW, NICK) = %+v, wanted a single %s reply", msgs, errPasswdMismatch)
	}
	if sess.state != stateNew {
		t.Errorf("session state = %v, wanted stateNew unchanged", sess.state)
	}
}

func TestDispatchPassTransitionsToAuthed(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})
	sess := newTestSession(t, srv, 1)

	srv.dispatch(sess, "PASS", []string{"secret"})

	if sess.state != stateAuthed {
		t.Fatalf("session state = %v, wanted stateAuthed", sess.state)
	}
	if msgs := drain(sess); len(msgs) != 0 {
		t.Errorf("successful PASS replied with %+v, wanted silence", msgs)
	}
}

func TestDispatchPassWrongPassword(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})
	sess := newTestSession(t, srv, 1)

	srv.dispatch(sess, "PASS", []string{"wrong"})

	if sess.state != stateNew {
		t.Fatalf("session state = %v, wanted stateNew", sess.state)
	}
	msgs := drain(sess)
	if len(msgs) != 1 || msgs[0].Command != errPasswdMismatch {
		t.Fatalf("dispatch(PASS wrong) = %+v, wanted a single %s reply", msgs, errPasswdMismatch)
	}
}

func TestDispatchAuthedRejectsUnknownCommand(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})
	sess := newTestSession(t, srv, 1)
	sess.state = stateAuthed

	srv.dispatch(sess, "JOIN", []string{"#room"})

	msgs := drain(sess)
	if len(msgs) != 1 || msgs[0].Command != errNotRegistered {
		t.Fatalf("dispatch(AUTHED, JOIN) = %+v, wanted a single %s reply", msgs, errNotRegistered)
	}
}

func TestDispatchCompletesRegistrationAfterNickAndUser(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})
	sess := newTestSession(t, srv, 1)
	sess.state = stateAuthed

	srv.dispatch(sess, "NICK", []string{"alice"})
	if sess.isRegistered() {
		t.Fatalf("session registered after NICK alone")
	}

	srv.dispatch(sess, "USER", []string{"alice", "0", "*", ":Alice A"})
	if !sess.isRegistered() {
		t.Fatalf("session not registered after NICK and USER")
	}

	msgs := drain(sess)
	if len(msgs) != 1 || msgs[0].Command != replyWelcome {
		t.Fatalf("post-registration messages = %+v, wanted a single %s reply", msgs, replyWelcome)
	}
}

func TestDispatchModeOPromotionRejectsNonMember(t *testing.T) {
	srv := NewServer(Config{ServerName: "server", Password: "secret"})

	alice := newTestSession(t, srv, 1)
	alice.state = stateRegistered
	alice.nickname = "alice"
	srv.nicks["alice"] = alice

	bob := newTestSession(t, srv, 2)
	bob.state = stateRegistered
	bob.nickname = "bob"
	srv.nicks["bob"] = bob

	ch := srv.getOrCreateChannel("#room")
	ch.addMember(alice.id)
	alice.channels["#room"] = struct{}{}

	srv.dispatch(alice, "MODE", []string{"#room", "+o", "bob"})

	if ch.isOperator(bob.id) {
		t.Fatalf("MODE +o promoted a non-member")
	}
	msgs := drain(alice)
	if len(msgs) != 1 || msgs[0].Command != errNotOnChannel {
		t.Fatalf("dispatch(MODE +o non-member) = %+v, wanted a single %s reply", msgs, errNotOnChannel)
	}
}
