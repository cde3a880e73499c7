package main

// modeChange is one parsed (sign, letter, optional-arg) mode tuple. Parsing
// the whole mode string into a slice of these before applying anything —
// rather than mutating state letter-by-letter as we scan, as the
// original_source CommandHandler.cpp does — lets a mixed string like
// "+ok-l" be validated atomically and lets the broadcast include every
// argument the change consumed. See DESIGN.md (resolves a spec.md §9
// design note).
type modeChange struct {
	Sign   byte
	Letter byte
	Arg    string
}

// channelModeLetters are the channel mode letters the daemon understands.
// 'i' and 't' take no argument. 'k' takes an argument only when being set.
// 'o' always takes an argument (the nick to promote/demote). 'l' takes an
// argument only when being set.
const channelModeLetters = "itkol"

// parseChannelModeChanges parses modeStr (e.g. "+kl") against the
// following args, consuming one argument per 'k'-on-set, every 'o', and
// 'l'-on-set. If a required argument is missing, it returns the changes
// parsed so far along with the letter that was missing its argument; the
// caller must not apply any change in that case (spec.md §4.5: "missing
// required arg emits 461 MODE <letter>").
func parseChannelModeChanges(modeStr string, args []string) (changes []modeChange, missing byte) {
	sign := byte('+')
	ai := 0

	for i := 0; i < len(modeStr); i++ {
		c := modeStr[i]
		switch c {
		case '+', '-':
			sign = c
			continue
		case 'i', 't':
			changes = append(changes, modeChange{Sign: sign, Letter: c})
		case 'k':
			if sign == '-' {
				changes = append(changes, modeChange{Sign: sign, Letter: c})
				continue
			}
			if ai >= len(args) {
				return changes, c
			}
			changes = append(changes, modeChange{Sign: sign, Letter: c, Arg: args[ai]})
			ai++
		case 'o':
			if ai >= len(args) {
				return changes, c
			}
			changes = append(changes, modeChange{Sign: sign, Letter: c, Arg: args[ai]})
			ai++
		case 'l':
			if sign == '-' {
				changes = append(changes, modeChange{Sign: sign, Letter: c})
				continue
			}
			if ai >= len(args) {
				return changes, c
			}
			changes = append(changes, modeChange{Sign: sign, Letter: c, Arg: args[ai]})
			ai++
		default:
			// Unknown channel mode letters are silently ignored; spec.md does not
			// define a reply for them.
		}
	}

	return changes, 0
}

// userModeLetters are the user mode letters spec.md's data model allows:
// i o w r s. None take arguments.
const userModeLetters = "iowrs"

// parseUserModeChanges parses a user MODE string like "+iw-s". Letters
// outside userModeLetters are silently ignored.
func parseUserModeChanges(modeStr string) []modeChange {
	var changes []modeChange
	sign := byte('+')

	for i := 0; i < len(modeStr); i++ {
		c := modeStr[i]
		switch c {
		case '+', '-':
			sign = c
		default:
			for j := 0; j < len(userModeLetters); j++ {
				if userModeLetters[j] == c {
					changes = append(changes, modeChange{Sign: sign, Letter: c})
					break
				}
			}
		}
	}

	return changes
}

// modeString renders a slice of applied changes back into a "+xy-z"-style
// string, grouping consecutive same-sign letters under one sign token the
// way a client-issued mode string looks.
func modeString(changes []modeChange) string {
	var b []byte
	var sign byte

	for _, c := range changes {
		if c.Sign != sign {
			b = append(b, c.Sign)
			sign = c.Sign
		}
		b = append(b, c.Letter)
	}

	return string(b)
}

// containsModeLetter reports whether any change in changes is for letter k,
// used to decide whether a channel MODE broadcast must omit its argument
// (spec.md §4.5: never leak a channel password in a MODE broadcast).
func containsModeLetter(changes []modeChange, letter byte) bool {
	for _, c := range changes {
		if c.Letter == letter {
			return true
		}
	}
	return false
}
