package ircmsg

import (
	"fmt"
	"strings"
)

// Encode renders m as a raw protocol line, including a trailing CRLF.
//
// A parameter is written with a leading ':' (and must then be the last
// parameter) if it contains a space, is empty, or already starts with
// ':' — otherwise the colon would be ambiguous on the wire.
//
// If the rendered line would exceed MaxLineLength, Encode truncates the
// final parameter and returns the shortened (but still well-formed,
// CRLF-terminated) line along with ErrTruncated.
func (m Message) Encode() (string, error) {
	var b strings.Builder

	if len(m.Prefix) > 0 {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)

	if b.Len()+2 > MaxLineLength {
		return "", fmt.Errorf("ircmsg: prefix and command alone exceed MaxLineLength")
	}

	truncated := false

	for i, param := range m.Params {
		hasColon := len(param) > 0 && param[0] == ':'
		needsColon := param == "" || hasColon || strings.Contains(param, " ")
		if needsColon && !hasColon {
			param = ":" + param
		}
		if needsColon && i+1 != len(m.Params) {
			return "", fmt.Errorf("ircmsg: trailing-only parameter %q is not last", param)
		}

		if b.Len()+1+len(param)+2 > MaxLineLength {
			used := b.Len() + 1 + 2
			avail := MaxLineLength - used
			if avail > 0 {
				b.WriteByte(' ')
				b.WriteString(param[:avail])
			}
			truncated = true
			break
		}

		b.WriteByte(' ')
		b.WriteString(param)
	}

	b.WriteString("\r\n")

	if truncated {
		return b.String(), ErrTruncated
	}
	return b.String(), nil
}
