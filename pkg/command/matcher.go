package command

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrNoMatch indicates the recognized text resolved to no configured
// command. It is informational, not a failure.
var ErrNoMatch = errors.New("command: no match")

// Entry is one configured phrase and its action.
type Entry struct {
	Phrase string
	Action Action
}

// Table holds the configured commands in file order.
type Table struct {
	entries []Entry
	exact   map[string]int
}

// NewTable builds a table from entries directly, preserving their order.
// Phrases are lowercased and trimmed. Used by tests and programmatic setup;
// production tables come from Parse.
func NewTable(entries []Entry) *Table {
	t := &Table{exact: make(map[string]int)}
	for _, e := range entries {
		phrase := strings.ToLower(strings.TrimSpace(e.Phrase))
		if phrase == "" {
			continue
		}
		if _, dup := t.exact[phrase]; dup {
			continue
		}
		t.exact[phrase] = len(t.entries)
		t.entries = append(t.entries, Entry{Phrase: phrase, Action: e.Action})
	}
	return t
}

// Len returns the number of configured commands.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns the configured commands in file order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Matcher resolves recognized text against a command table.
type Matcher struct {
	table  *Table
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given table.
func NewMatcher(table *Table, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{table: table, logger: logger}
}

// Match resolves text to an action. The text is lowercased and trimmed,
// then tried as an exact phrase; failing that, the first configured phrase
// (in file order) occurring as a substring of the text wins. Returns the
// matched phrase alongside the action, or ErrNoMatch.
//
// Substring fallback means recognizer noise ("please jump now") still
// triggers "jump". Exact match runs first so a short phrase cannot shadow
// a longer configured phrase the user said verbatim.
func (m *Matcher) Match(text string) (Action, string, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Action{}, "", ErrNoMatch
	}

	if i, ok := m.table.exact[normalized]; ok {
		return m.table.entries[i].Action, m.table.entries[i].Phrase, nil
	}

	for _, e := range m.table.entries {
		if strings.Contains(normalized, e.Phrase) {
			m.logger.Debug("substring match", "phrase", e.Phrase, "text", normalized)
			return e.Action, e.Phrase, nil
		}
	}

	return Action{}, "", ErrNoMatch
}
