package main

import "testing"

func TestIsValidNick(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"", false},
		{"a", true},
		{"alice", true},
		{"Alice_9", true},
		{"a-b-c", true},
		{"9alice", false},
		{"-alice", false},
		{"alice!", false},
		{"alice bob", false},
		{"123456789", false}, // digit-first
		{"abcdefghi", true},  // 9 chars, ok
		{"abcdefghij", false}, // 10 chars, too long
	}

	for _, test := range tests {
		if got := isValidNick(test.input); got != test.valid {
			t.Errorf("isValidNick(%q) = %v, wanted %v", test.input, got, test.valid)
		}
	}
}

func TestIsValidChannel(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"", false},
		{"#room", true},
		{"&room", true},
		{"room", false},
		{"#room with space", false},
		{"#a,b", false},
		{"#" + string(rune(7)), false},
	}

	for _, test := range tests {
		if got := isValidChannel(test.input); got != test.valid {
			t.Errorf("isValidChannel(%q) = %v, wanted %v", test.input, got, test.valid)
		}
	}

	long := "#" + string(make([]byte, 60))
	if isValidChannel(long) {
		t.Errorf("isValidChannel(%d-char name) = true, wanted false", len(long))
	}
}
