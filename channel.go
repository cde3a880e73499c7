package main

import "strconv"

// Channel holds everything to do with a single channel. The registry
// (Server.channels) is the sole owner; a channel with zero members is
// removed from the registry immediately when its last member leaves.
type Channel struct {
	// Name is the channel name exactly as first joined (it begins with '#'
	// or '&'); it is not case-folded.
	Name string

	Topic string

	// Members, operators, and invitees are sets of session handles. Members
	// is the authoritative membership; operators is a subset of members by
	// construction at join/promotion time; removeMember clears a departing
	// member from all three sets (spec.md §3's documented invariant).
	Members   map[sessionID]struct{}
	Operators map[sessionID]struct{}
	Invitees  map[sessionID]struct{}

	Password string

	// UserLimit is the maximum member count; 0 means unlimited.
	UserLimit int

	InviteOnly      bool
	TopicRestricted bool
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:      name,
		Members:   make(map[sessionID]struct{}),
		Operators: make(map[sessionID]struct{}),
		Invitees:  make(map[sessionID]struct{}),
	}
}

func (c *Channel) hasMember(id sessionID) bool {
	_, ok := c.Members[id]
	return ok
}

func (c *Channel) isOperator(id sessionID) bool {
	_, ok := c.Operators[id]
	return ok
}

func (c *Channel) isInvited(id sessionID) bool {
	_, ok := c.Invitees[id]
	return ok
}

// addMember adds id to the membership set. The first member to join a
// channel becomes its first operator (spec.md §3's documented invariant).
func (c *Channel) addMember(id sessionID) {
	firstJoiner := len(c.Members) == 0
	c.Members[id] = struct{}{}
	delete(c.Invitees, id)
	if firstJoiner {
		c.Operators[id] = struct{}{}
	}
}

// removeMember removes id from membership, operator, and invitee sets.
// The caller is responsible for deleting the channel from the registry
// once Members is empty.
func (c *Channel) removeMember(id sessionID) {
	delete(c.Members, id)
	delete(c.Operators, id)
	delete(c.Invitees, id)
}

// modeLine renders the channel's current mode string, including arguments
// for 'k' and 'l', as sent in a 324 RPL_CHANNELMODEIS reply.
func (c *Channel) modeLine() (modes string, args []string) {
	modes = "+"
	if c.InviteOnly {
		modes += "i"
	}
	if c.TopicRestricted {
		modes += "t"
	}
	if c.Password != "" {
		modes += "k"
		args = append(args, c.Password)
	}
	if c.UserLimit > 0 {
		modes += "l"
		args = append(args, strconv.Itoa(c.UserLimit))
	}
	return modes, args
}
