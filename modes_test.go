package main

import "testing"

func TestParseChannelModeChangesSimpleToggles(t *testing.T) {
	changes, missing := parseChannelModeChanges("+it", nil)
	if missing != 0 {
		t.Fatalf("unexpected missing arg for letter %q", missing)
	}
	if len(changes) != 2 {
		t.Fatalf("parseChannelModeChanges(+it) = %v, wanted 2 changes", changes)
	}
	if changes[0].Letter != 'i' || changes[0].Sign != '+' {
		t.Errorf("changes[0] = %+v, wanted +i", changes[0])
	}
	if changes[1].Letter != 't' || changes[1].Sign != '+' {
		t.Errorf("changes[1] = %+v, wanted +t", changes[1])
	}
}

func TestParseChannelModeChangesKeyAndLimit(t *testing.T) {
	changes, missing := parseChannelModeChanges("+kl", []string{"pw", "10"})
	if missing != 0 {
		t.Fatalf("unexpected missing arg for letter %q", missing)
	}
	if len(changes) != 2 {
		t.Fatalf("parseChannelModeChanges(+kl, [pw 10]) = %v, wanted 2 changes", changes)
	}
	if changes[0].Arg != "pw" || changes[1].Arg != "10" {
		t.Errorf("changes = %+v, wanted args pw, 10", changes)
	}
}

func TestParseChannelModeChangesMissingArg(t *testing.T) {
	changes, missing := parseChannelModeChanges("+k", nil)
	if missing != 'k' {
		t.Fatalf("parseChannelModeChanges(+k, []) missing = %q, wanted 'k'", missing)
	}
	if len(changes) != 0 {
		t.Errorf("parseChannelModeChanges(+k, []) = %v, wanted no applied changes", changes)
	}
}

func TestParseChannelModeChangesKeyClearNeedsNoArg(t *testing.T) {
	changes, missing := parseChannelModeChanges("-k", nil)
	if missing != 0 {
		t.Fatalf("unexpected missing arg for letter %q", missing)
	}
	if len(changes) != 1 || changes[0].Sign != '-' || changes[0].Letter != 'k' {
		t.Errorf("changes = %+v, wanted a single -k change", changes)
	}
}

func TestParseChannelModeChangesOpAlwaysNeedsArg(t *testing.T) {
	_, missing := parseChannelModeChanges("-o", nil)
	if missing != 'o' {
		t.Fatalf("parseChannelModeChanges(-o, []) missing = %q, wanted 'o'", missing)
	}
}

func TestParseUserModeChanges(t *testing.T) {
	changes := parseUserModeChanges("+iw-s")
	if len(changes) != 3 {
		t.Fatalf("parseUserModeChanges(+iw-s) = %v, wanted 3 changes", changes)
	}
	if changes[2].Sign != '-' || changes[2].Letter != 's' {
		t.Errorf("changes[2] = %+v, wanted -s", changes[2])
	}
}

func TestContainsModeLetter(t *testing.T) {
	changes := []modeChange{{Sign: '+', Letter: 'k', Arg: "pw"}}
	if !containsModeLetter(changes, 'k') {
		t.Errorf("containsModeLetter did not find 'k'")
	}
	if containsModeLetter(changes, 'l') {
		t.Errorf("containsModeLetter falsely found 'l'")
	}
}
