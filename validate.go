package main

// maxNickLength and maxChannelLength follow spec.md §4.4.
const (
	maxNickLength    = 9
	maxChannelLength = 50
)

// isValidNick checks the 1-9 character, alpha-first nickname rule.
func isValidNick(n string) bool {
	if len(n) == 0 || len(n) > maxNickLength {
		return false
	}

	for i := 0; i < len(n); i++ {
		c := n[i]
		if i == 0 {
			if !isAlpha(c) {
				return false
			}
			continue
		}
		if !isAlpha(c) && !isDigit(c) && c != '-' && c != '_' {
			return false
		}
	}

	return true
}

// isValidChannel checks the '#'/'&' prefix, length, and forbidden
// character rules from spec.md §4.4. name should already be the raw
// candidate (case is preserved; comparisons elsewhere are byte-exact per
// DESIGN.md).
func isValidChannel(name string) bool {
	if len(name) == 0 || len(name) > maxChannelLength {
		return false
	}

	if name[0] != '#' && name[0] != '&' {
		return false
	}

	for i := 0; i < len(name); i++ {
		switch name[i] {
		case ' ', ',', '\x07':
			return false
		}
	}

	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
