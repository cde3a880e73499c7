package main

import (
	"strconv"
	"strings"

	"github.com/parrotd/ircd/internal/ircmsg"
)

// dispatch gates a parsed command by the session's registration state
// (spec.md §4.3) before invoking its handler.
func (s *Server) dispatch(sess *Session, cmd string, params []string) {
	switch sess.state {
	case stateNew:
		if cmd == "PASS" {
			s.cmdPass(sess, params)
			return
		}
		s.messageClient(sess, errPasswdMismatch, []string{"Password required"})

	case stateAuthed:
		switch cmd {
		case "PASS":
			s.cmdPass(sess, params)
		case "NICK":
			s.cmdNick(sess, params)
		case "USER":
			s.cmdUser(sess, params)
		default:
			s.messageClient(sess, errNotRegistered, []string{"You have not registered"})
		}

	case stateRegistered:
		s.dispatchRegistered(sess, cmd, params)
	}
}

func (s *Server) dispatchRegistered(sess *Session, cmd string, params []string) {
	switch cmd {
	case "PASS":
		s.cmdPass(sess, params)
	case "NICK":
		s.cmdNick(sess, params)
	case "USER":
		s.messageClient(sess, errAlreadyRegistred, []string{"You may not reregister"})
	case "JOIN":
		s.cmdJoin(sess, params)
	case "PART":
		s.cmdPart(sess, params)
	case "PRIVMSG":
		s.cmdPrivmsg(sess, params, "PRIVMSG")
	case "NOTICE":
		s.cmdPrivmsg(sess, params, "NOTICE")
	case "QUIT":
		s.cmdQuit(sess, params)
	case "KICK":
		s.cmdKick(sess, params)
	case "MODE":
		s.cmdMode(sess, params)
	case "TOPIC":
		s.cmdTopic(sess, params)
	case "INVITE":
		s.cmdInvite(sess, params)
	default:
		s.messageClient(sess, errUnknownCommand, []string{cmd, "Unknown command"})
	}
}

// stripLeadingColon removes one leading ':' from a trailing parameter, the
// way PRIVMSG/TOPIC/QUIT text is specified to be unwrapped in spec.md §4.5.
func stripLeadingColon(s string) string {
	if len(s) > 0 && s[0] == ':' {
		return s[1:]
	}
	return s
}

// --- registration: PASS / NICK / USER -------------------------------------

func (s *Server) cmdPass(sess *Session, params []string) {
	if sess.isAuthenticated() {
		s.messageClient(sess, errAlreadyRegistred, []string{"You may not reregister"})
		return
	}

	if len(params) == 0 || stripLeadingColon(params[0]) != s.Config.Password {
		s.messageClient(sess, errPasswdMismatch, []string{"Password incorrect"})
		return
	}

	sess.state = stateAuthed
}

func (s *Server) cmdNick(sess *Session, params []string) {
	if len(params) == 0 {
		s.messageClient(sess, errNoNicknameGiven, []string{"No nickname given"})
		return
	}

	nick := params[0]
	if !isValidNick(nick) {
		s.messageClient(sess, errErroneusNickname, []string{nick, "Erroneous nickname"})
		return
	}

	if existing, ok := s.findSessionByNick(nick); ok && existing.id != sess.id {
		s.messageClient(sess, errNicknameInUse, []string{nick, "Nickname is already in use"})
		return
	}

	oldNick := sess.nickname
	wasRegistered := sess.isRegistered()

	if oldNick != "" {
		if cur, ok := s.nicks[oldNick]; ok && cur.id == sess.id {
			delete(s.nicks, oldNick)
		}
	}
	sess.nickname = nick
	s.nicks[nick] = sess

	if wasRegistered {
		s.announceNickChange(sess, oldNick, nick)
		return
	}

	s.maybeCompleteRegistration(sess)
}

// announceNickChange tells every channel member (deduplicated, and
// including the session itself) that sess changed its nick. The source of
// the NICK message is the OLD nick, as RFC 2812 requires.
func (s *Server) announceNickChange(sess *Session, oldNick, newNick string) {
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
				member.send(oldNickMessage(oldNick, sess.username, newNick))
			}
			told[id] = struct{}{}
		}
	}

	if _, already := told[sess.id]; !already {
		sess.send(oldNickMessage(oldNick, sess.username, newNick))
	}
}

// oldNickMessage builds the ":<oldnick>!~<user>@localhost NICK :<newnick>"
// message told to everyone who needs to hear about a nick change. The host
// component is always the literal "localhost", matching nickUserHost (see
// DESIGN.md and session.go).
func oldNickMessage(oldNick, username, newNick string) ircmsg.Message {
	return ircmsg.Message{
		Prefix:  oldNick + "!~" + username + "@localhost",
		Command: "NICK",
		Params:  []string{":" + newNick},
	}
}

func (s *Server) cmdUser(sess *Session, params []string) {
	if len(params) != 4 {
		s.messageClient(sess, errNeedMoreParams, []string{"USER", "Not enough parameters"})
		return
	}

	sess.username = params[0]
	sess.realname = stripLeadingColon(params[3])

	s.maybeCompleteRegistration(sess)
}

// maybeCompleteRegistration promotes a session to REGISTERED once it has
// both a nickname and a username, per spec.md §4.3's shared NICK/USER
// post-condition, and sends the welcome numeric.
func (s *Server) maybeCompleteRegistration(sess *Session) {
	if sess.isRegistered() || sess.nickname == "" || sess.username == "" {
		return
	}

	sess.state = stateRegistered

	s.messageClient(sess, replyWelcome, []string{
		"Welcome to the IRC Network " + sess.nickname,
	})
}

// --- JOIN ------------------------------------------------------------------

func (s *Server) cmdJoin(sess *Session, params []string) {
	if len(params) == 0 {
		s.messageClient(sess, errNeedMoreParams, []string{"JOIN", "Not enough parameters"})
		return
	}

	names := strings.Split(params[0], ",")
	var keys []string
	if len(params) > 1 {
		keys = strings.Split(params[1], ",")
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(sess, name, key)
	}
}

func (s *Server) joinOne(sess *Session, name, key string) {
	if !isValidChannel(name) {
		s.messageClient(sess, errNoSuchChannel, []string{name, "No such channel"})
		return
	}

	ch := s.getOrCreateChannel(name)

	if ch.InviteOnly && !ch.isInvited(sess.id) && len(ch.Members) > 0 {
		s.messageClient(sess, errInviteOnlyChan, []string{name, "Cannot join channel (+i)"})
		return
	}

	if ch.Password != "" && stripLeadingColon(key) != ch.Password {
		s.messageClient(sess, errBadChannelKey, []string{name, "Cannot join channel (+k)"})
		return
	}

	if ch.UserLimit > 0 && len(ch.Members) >= ch.UserLimit {
		s.messageClient(sess, errChannelIsFull, []string{name, "Cannot join channel (+l)"})
		return
	}

	if ch.hasMember(sess.id) {
		return
	}

	ch.addMember(sess.id)
	sess.channels[name] = struct{}{}

	s.broadcastChannel(ch, sess, "JOIN", []string{":" + name}, false)

	if ch.Topic != "" {
		s.messageClient(sess, replyTopic, []string{name, ":" + ch.Topic})
	}

	modes, modeArgs := ch.modeLine()
	s.messageClient(sess, replyChannelModeIs, append([]string{name, modes}, modeArgs...))

	s.sendNames(sess, ch)
}

// sendNames sends the RPL_NAMREPLY/RPL_ENDOFNAMES burst for ch, prefixing
// each operator's nick with '@'.
func (s *Server) sendNames(sess *Session, ch *Channel) {
	var names []string
	for id := range ch.Members {
		member, ok := s.sessions[id]
		if !ok {
			continue
		}
		if ch.isOperator(id) {
			names = append(names, "@"+member.nickname)
		} else {
			names = append(names, member.nickname)
		}
	}

	s.messageClient(sess, replyNamReply, []string{ch.Name, ":" + strings.Join(names, " ")})
	s.messageClient(sess, replyEndOfNames, []string{ch.Name, "End of NAMES list"})
}

// --- PART --------------------------------------------------------------

func (s *Server) cmdPart(sess *Session, params []string) {
	if len(params) == 0 {
		s.messageClient(sess, errNeedMoreParams, []string{"PART", "Not enough parameters"})
		return
	}

	for _, name := range strings.Split(params[0], ",") {
		s.partOne(sess, name)
	}
}

func (s *Server) partOne(sess *Session, name string) {
	ch, ok := s.findChannel(name)
	if !ok {
		s.messageClient(sess, errNoSuchChannel, []string{name, "No such channel"})
		return
	}
	if !ch.hasMember(sess.id) {
		s.messageClient(sess, errUserNotInChannel, []string{name, "You're not on that channel"})
		return
	}

	s.broadcastChannel(ch, sess, "PART", []string{":" + name}, false)
	s.partChannel(sess, ch)
}

// --- PRIVMSG / NOTICE ----------------------------------------------------

// cmdPrivmsg implements both PRIVMSG and NOTICE. Both rejoin args[1:] with
// single spaces and strip one leading ':' — normalizing the source's
// NOTICE bug where only args[1] was used, per spec.md §9 — but NOTICE
// never produces error replies, per the RFC.
func (s *Server) cmdPrivmsg(sess *Session, params []string, command string) {
	isNotice := command == "NOTICE"

	if len(params) == 0 {
		if !isNotice {
			s.messageClient(sess, errNoRecipient, []string{"No recipient given (" + command + ")"})
		}
		return
	}
	if len(params) < 2 {
		if !isNotice {
			s.messageClient(sess, errNeedMoreParams, []string{command, "Not enough parameters"})
		}
		return
	}

	target := params[0]
	text := stripLeadingColon(strings.Join(params[1:], " "))

	if len(target) > 0 && (target[0] == '#' || target[0] == '&') {
		ch, ok := s.findChannel(target)
		if !ok || !ch.hasMember(sess.id) {
			if !isNotice {
				s.messageClient(sess, errCannotSendToChan, []string{target, "Cannot send to channel"})
			}
			return
		}
		for id := range ch.Members {
			if id == sess.id {
				continue
			}
			if member, ok := s.sessions[id]; ok {
				s.messageFromHostmask(sess, member, command, []string{target, ":" + text})
			}
		}
		return
	}

	to, ok := s.findSessionByNick(target)
	if !ok {
		if !isNotice {
			s.messageClient(sess, errNoSuchNick, []string{target, "No such nick"})
		}
		return
	}
	s.messageFromHostmask(sess, to, command, []string{target, ":" + text})
}

// --- QUIT ----------------------------------------------------------------

func (s *Server) cmdQuit(sess *Session, params []string) {
	reason := ""
	if len(params) > 0 {
		reason = stripLeadingColon(params[0])
	}
	if reason == "" {
		reason = "Client quit"
	}
	s.disconnectSession(sess, reason)
}

// --- KICK ------------------------------------------------------------------

func (s *Server) cmdKick(sess *Session, params []string) {
	if len(params) < 2 {
		s.messageClient(sess, errNeedMoreParams, []string{"KICK", "Not enough parameters"})
		return
	}

	chanName, targetNick := params[0], params[1]

	ch, ok := s.findChannel(chanName)
	if !ok {
		s.messageClient(sess, errNoSuchChannel, []string{chanName, "No such channel"})
		return
	}
	if !ch.isOperator(sess.id) {
		s.messageClient(sess, errChanOPrivsNeeded, []string{chanName, "You're not channel operator"})
		return
	}

	target, ok := s.findSessionByNick(targetNick)
	if !ok {
		s.messageClient(sess, errNoSuchNick, []string{targetNick, "No such nick"})
		return
	}
	if !ch.hasMember(target.id) {
		s.messageClient(sess, errNotOnChannel, []string{targetNick, "They aren't on that channel"})
		return
	}

	reason := targetNick
	if len(params) > 2 {
		reason = stripLeadingColon(params[2])
	}

	s.broadcastChannel(ch, sess, "KICK", []string{chanName, targetNick, ":" + reason}, false)
	s.partChannel(target, ch)
}

// --- TOPIC -----------------------------------------------------------------

func (s *Server) cmdTopic(sess *Session, params []string) {
	if len(params) == 0 {
		s.messageClient(sess, errNeedMoreParams, []string{"TOPIC", "Not enough parameters"})
		return
	}

	name := params[0]
	ch, ok := s.findChannel(name)
	if !ok {
		s.messageClient(sess, errNoSuchChannel, []string{name, "No such channel"})
		return
	}
	if !ch.hasMember(sess.id) {
		s.messageClient(sess, errUserNotInChannel, []string{name, "You're not on that channel"})
		return
	}

	if len(params) == 1 {
		if ch.Topic == "" {
			s.messageClient(sess, replyNoTopic, []string{name, "No topic is set"})
		} else {
			s.messageClient(sess, replyTopic, []string{name, ":" + ch.Topic})
		}
		return
	}

	if ch.TopicRestricted && !ch.isOperator(sess.id) {
		s.messageClient(sess, errChanOPrivsNeeded, []string{name, "You're not channel operator"})
		return
	}

	ch.Topic = stripLeadingColon(params[1])
	s.broadcastChannel(ch, sess, "TOPIC", []string{name, ":" + ch.Topic}, false)
}

// --- MODE ------------------------------------------------------------------

// cmdMode handles both channel and user MODE targets, per spec.md §4.5.
// Self-targeted user MODE (reporting/toggling the caller's own modes) is a
// natural supplement to the channel form spec.md details explicitly; a
// MODE targeting any other user is rejected with 502, since this daemon has
// no notion of one user administering another's modes.
func (s *Server) cmdMode(sess *Session, params []string) {
	if len(params) == 0 {
		s.messageClient(sess, errNeedMoreParams, []string{"MODE", "Not enough parameters"})
		return
	}

	target := params[0]
	if len(target) > 0 && (target[0] == '#' || target[0] == '&') {
		s.cmdChannelMode(sess, target, params[1:])
		return
	}

	s.cmdUserMode(sess, target, params[1:])
}

func (s *Server) cmdUserMode(sess *Session, target string, rest []string) {
	if target != sess.nickname {
		s.messageClient(sess, errUsersDontMatch, []string{"Cannot change mode for other users"})
		return
	}

	if len(rest) == 0 {
		s.messageClient(sess, replyUserModeIs, []string{sess.userModeString()})
		return
	}

	for _, change := range parseUserModeChanges(rest[0]) {
		if change.Sign == '-' {
			delete(sess.modes, change.Letter)
		} else {
			sess.modes[change.Letter] = struct{}{}
		}
	}

	s.messageClient(sess, replyUserModeIs, []string{sess.userModeString()})
}

func (s *Server) cmdChannelMode(sess *Session, name string, rest []string) {
	ch, ok := s.findChannel(name)
	if !ok {
		s.messageClient(sess, errNoSuchChannel, []string{name, "No such channel"})
		return
	}
	if !ch.isOperator(sess.id) {
		s.messageClient(sess, errChanOPrivsNeeded, []string{name, "You're not channel operator"})
		return
	}

	if len(rest) == 0 {
		modes, args := ch.modeLine()
		s.messageClient(sess, replyChannelModeIs, append([]string{name, modes}, args...))
		return
	}

	var args []string
	if len(rest) > 1 {
		args = rest[1:]
	}

	changes, missing := parseChannelModeChanges(rest[0], args)
	if missing != 0 {
		s.messageClient(sess, errNeedMoreParams, []string{"MODE", string(missing)})
		return
	}

	var applied []modeChange
	var appliedArgs []string
	for _, change := range changes {
		arg, ok := s.applyChannelModeChange(sess, ch, change)
		if !ok {
			continue
		}
		applied = append(applied, change)
		if arg != "" {
			appliedArgs = append(appliedArgs, arg)
		}
	}

	if len(applied) == 0 {
		return
	}

	broadcastParams := []string{name, modeString(applied)}
	if !containsModeLetter(applied, 'k') {
		broadcastParams = append(broadcastParams, appliedArgs...)
	}
	s.broadcastChannel(ch, sess, "MODE", broadcastParams, false)
}

// applyChannelModeChange applies one parsed mode change to ch, returning the
// argument (if any) that should be echoed in the broadcast and whether the
// change was applied at all.
func (s *Server) applyChannelModeChange(sess *Session, ch *Channel, change modeChange) (arg string, applied bool) {
	set := change.Sign == '+'

	switch change.Letter {
	case 'i':
		ch.InviteOnly = set
		return "", true
	case 't':
		ch.TopicRestricted = set
		return "", true
	case 'k':
		if set {
			ch.Password = stripLeadingColon(change.Arg)
			return ch.Password, true
		}
		ch.Password = ""
		return "", true
	case 'l':
		if set {
			n, err := strconv.Atoi(change.Arg)
			if err != nil || n <= 0 {
				return "", false
			}
			ch.UserLimit = n
			return change.Arg, true
		}
		ch.UserLimit = 0
		return "", true
	case 'o':
		target, ok := s.findSessionByNick(change.Arg)
		if !ok || !ch.hasMember(target.id) {
			s.messageClient(sess, errNotOnChannel, []string{change.Arg, "They aren't on that channel"})
			return "", false
		}
		if set {
			ch.Operators[target.id] = struct{}{}
		} else {
			delete(ch.Operators, target.id)
		}
		return change.Arg, true
	}

	return "", false
}

// --- INVITE ------------------------------------------------------------

func (s *Server) cmdInvite(sess *Session, params []string) {
	if len(params) < 2 {
		s.messageClient(sess, errNeedMoreParams, []string{"INVITE", "Not enough parameters"})
		return
	}

	targetNick, chanName := params[0], params[1]

	ch, ok := s.findChannel(chanName)
	if !ok {
		s.messageClient(sess, errNoSuchChannel, []string{chanName, "No such channel"})
		return
	}
	if !ch.hasMember(sess.id) {
		s.messageClient(sess, errUserNotInChannel, []string{chanName, "You're not on that channel"})
		return
	}

	target, ok := s.findSessionByNick(targetNick)
	if !ok {
		s.messageClient(sess, errNoSuchNick, []string{targetNick, "No such nick"})
		return
	}
	if ch.hasMember(target.id) {
		s.messageClient(sess, errUserOnChannel, []string{targetNick, "is already on channel"})
		return
	}

	ch.Invitees[target.id] = struct{}{}

	s.messageFromNick(sess, target, "INVITE", []string{targetNick, ":" + chanName})
	s.messageClient(sess, replyInviting, []string{targetNick, chanName})
}
