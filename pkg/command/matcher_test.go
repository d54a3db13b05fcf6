package command

import (
	"errors"
	"testing"
)

func testTable() *Table {
	return NewTable([]Entry{
		{Phrase: "jump", Action: Action{Type: TypeButton, Button: "A", Duration: DefaultButtonDuration}},
		{Phrase: "move forward", Action: Action{Type: TypeStick, Stick: "left", Y: -32768, Duration: DefaultStickDuration}},
		{Phrase: "forward", Action: Action{Type: TypeDpad, Direction: "up"}},
	})
}

func TestMatcher_ExactMatch(t *testing.T) {
	m := NewMatcher(testTable(), nil)

	action, phrase, err := m.Match("jump")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if phrase != "jump" || action.Type != TypeButton || action.Button != "A" {
		t.Errorf("Unexpected match: phrase=%q action=%+v", phrase, action)
	}
}

func TestMatcher_NormalizesInput(t *testing.T) {
	m := NewMatcher(testTable(), nil)

	action, _, err := m.Match("  JUMP \n")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if action.Button != "A" {
		t.Errorf("Expected button A, got %q", action.Button)
	}
}

func TestMatcher_ExactBeatsSubstring(t *testing.T) {
	// "move forward" contains "forward"; saying it verbatim must hit the
	// exact entry, not the earlier-ordered substring rules.
	m := NewMatcher(testTable(), nil)

	action, phrase, err := m.Match("move forward")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if phrase != "move forward" || action.Type != TypeStick {
		t.Errorf("Expected exact stick match, got phrase=%q type=%s", phrase, action.Type)
	}
}

func TestMatcher_SubstringFirstConfiguredWins(t *testing.T) {
	m := NewMatcher(testTable(), nil)

	// Noisy utterance containing both "move forward" and "jump" as
	// substrings; "jump" is configured first so it wins.
	action, phrase, err := m.Match("please jump and move forward")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if phrase != "jump" || action.Type != TypeButton {
		t.Errorf("Expected first-configured phrase, got %q (%s)", phrase, action.Type)
	}

	// Only "move forward" present: first configured phrase that actually
	// occurs wins.
	_, phrase, err = m.Match("please move forward now")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if phrase != "move forward" {
		t.Errorf("Expected \"move forward\", got %q", phrase)
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	m := NewMatcher(testTable(), nil)

	for _, text := range []string{"xyz", "", "   ", "jum"} {
		_, _, err := m.Match(text)
		if !errors.Is(err, ErrNoMatch) {
			t.Errorf("Match(%q): expected ErrNoMatch, got %v", text, err)
		}
	}
}

func TestNewTable_SkipsDuplicatesAndEmpties(t *testing.T) {
	table := NewTable([]Entry{
		{Phrase: "Jump", Action: Action{Type: TypeButton, Button: "A"}},
		{Phrase: "jump", Action: Action{Type: TypeButton, Button: "B"}},
		{Phrase: "  ", Action: Action{Type: TypeDpad, Direction: "up"}},
	})
	if table.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", table.Len())
	}
	if table.Entries()[0].Action.Button != "A" {
		t.Error("Expected first entry to win over duplicate")
	}
}
