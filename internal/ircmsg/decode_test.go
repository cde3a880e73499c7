package ircmsg

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		command string
		params  []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{"nick", "NICK", nil},
		{"NICK alice", "NICK", []string{"alice"}},
		{"PRIVMSG #x :hello world", "PRIVMSG", []string{"#x", ":hello world"}},
		{"privmsg #x :  leading  spaces  ", "PRIVMSG", []string{"#x", ":  leading  spaces  "}},
		{"JOIN #a,#b key1,key2", "JOIN", []string{"#a,#b", "key1,key2"}},
		{"TOPIC #x :", "TOPIC", []string{"#x", ":"}},
		{"MODE #x +o alice", "MODE", []string{"#x", "+o", "alice"}},
	}

	for _, tt := range tests {
		cmd, params := ParseLine(tt.line)
		if cmd != tt.command || !reflect.DeepEqual(params, tt.params) {
			t.Errorf("ParseLine(%q) = (%q, %q), want (%q, %q)",
				tt.line, cmd, params, tt.command, tt.params)
		}
	}
}

func TestExtractLinesAcrossChunkBoundaries(t *testing.T) {
	whole := "NICK alice\r\nUSER alice 0 * :Alice A\r\nJOIN #room\r\n"

	wantLines, _ := ExtractLines([]byte(whole))

	// Try every way of splitting `whole` into two pieces, and confirm we
	// always get the same lines out.
	for split := 0; split <= len(whole); split++ {
		var got []string
		var buf []byte

		for _, chunk := range [][]byte{[]byte(whole[:split]), []byte(whole[split:])} {
			buf = append(buf, chunk...)
			lines, rest := ExtractLines(buf)
			got = append(got, lines...)
			buf = rest
		}

		if !reflect.DeepEqual(got, wantLines) {
			t.Fatalf("split at %d: got %q, want %q", split, got, wantLines)
		}
	}
}

func TestExtractLinesSkipsEmpty(t *testing.T) {
	lines, rest := ExtractLines([]byte("\r\n\r\nNICK alice\r\n\n"))
	if !reflect.DeepEqual(lines, []string{"NICK alice"}) {
		t.Errorf("got %q", lines)
	}
	if len(rest) != 0 {
		t.Errorf("expected no leftover, got %q", rest)
	}
}

func TestExtractLinesRetainsPartialTail(t *testing.T) {
	lines, rest := ExtractLines([]byte("NICK alice\r\nPRIVMSG #"))
	if !reflect.DeepEqual(lines, []string{"NICK alice"}) {
		t.Errorf("got %q", lines)
	}
	if string(rest) != "PRIVMSG #" {
		t.Errorf("got rest %q", rest)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m := Message{
		Prefix:  "server",
		Command: "PRIVMSG",
		Params:  []string{"#room", "hello world"},
	}
	out, err := m.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := ":server PRIVMSG #room :hello world\r\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestEncodeEmptyTrailingParam(t *testing.T) {
	m := Message{Prefix: "server", Command: "331", Params: []string{"alice", "#room", ""}}
	out, err := m.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := ":server 331 alice #room :\r\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
