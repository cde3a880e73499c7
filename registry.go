package main

import "github.com/parrotd/ircd/internal/ircmsg"

// findSessionByNick looks a session up by nickname. Comparison is byte-exact:
// spec.md §9 leaves nickname case-folding as an open question and
// documents the source as comparing byte-exact; we mirror that rather than
// adopt RFC 1459's scandinavian folding. See DESIGN.md.
func (s *Server) findSessionByNick(nick string) (*Session, bool) {
	sess, ok := s.nicks[nick]
	return sess, ok
}

func (s *Server) findChannel(name string) (*Channel, bool) {
	ch, ok := s.channels[name]
	return ch, ok
}

// getOrCreateChannel returns the named channel, creating it (empty, with
// no operators yet) if it doesn't already exist.
func (s *Server) getOrCreateChannel(name string) *Channel {
	if ch, ok := s.channels[name]; ok {
		return ch
	}
	ch := newChannel(name)
	s.channels[name] = ch
	return ch
}

// dropChannelIfEmpty removes ch from the registry once it has no members
// left, per spec.md §3's invariant.
func (s *Server) dropChannelIfEmpty(ch *Channel) {
	if len(ch.Members) == 0 {
		delete(s.channels, ch.Name)
	}
}

// partChannel removes sess from ch, deleting the channel if it is now
// empty, and keeps sess.channels in sync.
func (s *Server) partChannel(sess *Session, ch *Channel) {
	ch.removeMember(sess.id)
	delete(sess.channels, ch.Name)
	s.dropChannelIfEmpty(ch)
}

// messageClient sends a server-originated message to sess. Numeric replies
// get the client's display nick (or '*' before one is assigned) prepended
// to their parameters, per the RFC reply format.
func (s *Server) messageClient(sess *Session, command string, params []string) {
	if isNumeric(command) {
		withNick := make([]string, 0, len(params)+1)
		withNick = append(withNick, sess.displayNick())
		withNick = append(withNick, params...)
		params = withNick
	}

	sess.send(ircmsg.Message{
		Prefix:  s.Config.ServerName,
		Command: command,
		Params:  params,
	})
}

// messageFromHostmask sends a message that appears to originate from the
// "from" client, with the full nick!user@host prefix. Per spec.md §4.5 this
// form is reserved for PRIVMSG/NOTICE; every other relayed command (JOIN,
// PART, QUIT, KICK, MODE, TOPIC, INVITE) uses the bare nickname instead
// (messageFromNick), matching original_source/CommandHandler.cpp which only
// builds the "!~user@localhost" form for PRIVMSG (see DESIGN.md).
func (s *Server) messageFromHostmask(from *Session, to *Session, command string, params []string) {
	to.send(ircmsg.Message{
		Prefix:  from.nickUserHost(),
		Command: command,
		Params:  params,
	})
}

// messageFromNick sends a message that appears to originate from the
// "from" client, with a bare nickname prefix (no user/host component). This
// is the wire format spec.md §4.5 requires for JOIN, PART, QUIT, KICK,
// MODE, TOPIC, and INVITE.
func (s *Server) messageFromNick(from *Session, to *Session, command string, params []string) {
	to.send(ircmsg.Message{
		Prefix:  from.displayNick(),
		Command: command,
		Params:  params,
	})
}

// broadcastChannel sends command/params, appearing to come from "from" with
// a bare nickname prefix, to every member of ch. If excludeSender is true,
// "from" itself is skipped. Used for JOIN/PART/KICK/MODE/TOPIC; PRIVMSG
// and NOTICE route through messageFromHostmask directly instead.
func (s *Server) broadcastChannel(ch *Channel, from *Session, command string, params []string, excludeSender bool) {
	for id := range ch.Members {
		if excludeSender && id == from.id {
			continue
		}
		member, ok := s.sessions[id]
		if !ok {
			continue
		}
		s.messageFromNick(from, member, command, params)
	}
}

// disconnectSession tears a session down: if it was registered, every
// channel it belonged to is told it QUIT and the session is removed from
// each (dropping channels left empty); its nickname is freed either way.
// Finally an ERROR line is queued and the outbound channel is closed,
// which lets writeLoop drain and close the socket.
func (s *Server) disconnectSession(sess *Session, reason string) {
	if sess.isRegistered() {
		told := map[sessionID]struct{}{}

		for name := range sess.channels {
			ch, ok := s.channels[name]
			if !ok {
				continue
			}

			for id := range ch.Members {
				if _, already := told[id]; already {
					continue
				}
				if member, ok := s.sessions[id]; ok {
					s.messageFromNick(sess, member, "QUIT", []string{":" + reason})
				}
				told[id] = struct{}{}
			}

			ch.removeMember(sess.id)
			s.dropChannelIfEmpty(ch)
		}

		if _, already := told[sess.id]; !already {
			s.messageFromNick(sess, sess, "QUIT", []string{":" + reason})
		}
	}

	if sess.nickname != "" {
		if cur, ok := s.nicks[sess.nickname]; ok && cur.id == sess.id {
			delete(s.nicks, sess.nickname)
		}
	}

	sess.send(ircmsg.Message{Command: "ERROR", Params: []string{":" + reason}})
	close(sess.out)

	delete(s.sessions, sess.id)
	s.logf("Session %s disconnected: %s", sess, reason)
}
