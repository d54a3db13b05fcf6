package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoCommands is returned when the configuration file contains no
	// usable command entries.
	ErrNoCommands = errors.New("command: no commands configured")

	// errTooDeep guards against runaway nesting from YAML anchors.
	errTooDeep = errors.New("command: sequence nesting too deep")
)

// maxSequenceDepth bounds nested sequences, including ones built from
// YAML anchors and aliases.
const maxSequenceDepth = 16

// Load reads a command table from a YAML file.
func Load(path string, logger *slog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("command: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, logger)
}

// Parse reads a command table from YAML. The document must contain a
// top-level "commands" mapping of phrase to action descriptor. Entries
// with an unrecognized action type are skipped with a warning; structural
// problems (missing required fields, unknown fields, excessive nesting)
// are fatal.
//
// Mapping order is preserved: it determines substring-match priority.
func Parse(r io.Reader, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("command: parse yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("command: expected top-level mapping, got %s", kindName(root.Kind))
	}

	commands := mappingValue(root, "commands")
	if commands == nil {
		return nil, errors.New(`command: missing top-level "commands" mapping`)
	}
	if commands.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(`command: "commands" must be a mapping, got %s`, kindName(commands.Kind))
	}

	t := &Table{exact: make(map[string]int)}
	for i := 0; i+1 < len(commands.Content); i += 2 {
		keyNode, valNode := commands.Content[i], commands.Content[i+1]

		phrase := strings.ToLower(strings.TrimSpace(keyNode.Value))
		if phrase == "" {
			return nil, fmt.Errorf("command: empty phrase at line %d", keyNode.Line)
		}
		if _, dup := t.exact[phrase]; dup {
			return nil, fmt.Errorf("command: duplicate phrase %q at line %d", phrase, keyNode.Line)
		}

		action, ok, err := parseAction(valNode, 0)
		if err != nil {
			return nil, fmt.Errorf("command: %q: %w", phrase, err)
		}
		if !ok {
			logger.Warn("skipping command with unknown action type",
				"phrase", phrase, "line", valNode.Line)
			continue
		}

		t.exact[phrase] = len(t.entries)
		t.entries = append(t.entries, Entry{Phrase: phrase, Action: action})
	}

	if len(t.entries) == 0 {
		return nil, ErrNoCommands
	}
	logger.Info("loaded command table", "commands", len(t.entries))
	return t, nil
}

// parseAction decodes one action descriptor node. The second return is
// false when the descriptor has an unknown type and should be skipped.
func parseAction(node *yaml.Node, depth int) (Action, bool, error) {
	if depth > maxSequenceDepth {
		return Action{}, false, errTooDeep
	}
	if node.Kind == yaml.AliasNode {
		return parseAction(node.Alias, depth+1)
	}
	if node.Kind != yaml.MappingNode {
		return Action{}, false, fmt.Errorf("action at line %d must be a mapping, got %s",
			node.Line, kindName(node.Kind))
	}

	fields := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	typNode, ok := fields["type"]
	if !ok {
		return Action{}, false, fmt.Errorf("action at line %d missing required field \"type\"", node.Line)
	}

	a := Action{Type: Type(typNode.Value)}
	var allowed []string
	var err error

	switch a.Type {
	case TypeButton, TypeButtonHold:
		allowed = []string{"type", "button", "duration"}
		a.Button, err = requireString(fields, "button", node.Line)
		if err != nil {
			return Action{}, false, err
		}
		def := DefaultButtonDuration
		if a.Type == TypeButtonHold {
			def = DefaultHoldDuration
		}
		a.Duration, err = optionalDuration(fields, "duration", def)
		if err != nil {
			return Action{}, false, err
		}

	case TypeStick:
		allowed = []string{"type", "stick", "x", "y", "duration"}
		a.Stick, err = requireString(fields, "stick", node.Line)
		if err != nil {
			return Action{}, false, err
		}
		if a.X, err = optionalInt(fields, "x", 0); err != nil {
			return Action{}, false, err
		}
		if a.Y, err = optionalInt(fields, "y", 0); err != nil {
			return Action{}, false, err
		}
		a.Duration, err = optionalDuration(fields, "duration", DefaultStickDuration)
		if err != nil {
			return Action{}, false, err
		}

	case TypeTrigger:
		allowed = []string{"type", "trigger", "value"}
		a.Trigger, err = requireString(fields, "trigger", node.Line)
		if err != nil {
			return Action{}, false, err
		}
		if a.Value, err = optionalInt(fields, "value", DefaultTriggerValue); err != nil {
			return Action{}, false, err
		}

	case TypeDpad:
		allowed = []string{"type", "direction"}
		a.Direction, err = requireString(fields, "direction", node.Line)
		if err != nil {
			return Action{}, false, err
		}

	case TypeSequence:
		allowed = []string{"type", "actions"}
		list, ok := fields["actions"]
		if !ok {
			return Action{}, false, fmt.Errorf("sequence at line %d missing required field \"actions\"", node.Line)
		}
		inner := list
		if inner.Kind == yaml.AliasNode {
			inner = inner.Alias
		}
		if inner.Kind != yaml.SequenceNode {
			return Action{}, false, fmt.Errorf("\"actions\" at line %d must be a list", list.Line)
		}
		for _, child := range inner.Content {
			childAction, childOK, err := parseAction(child, depth+1)
			if err != nil {
				return Action{}, false, err
			}
			if !childOK {
				return Action{}, false, fmt.Errorf("unknown action type in sequence at line %d", child.Line)
			}
			a.Actions = append(a.Actions, childAction)
		}
		if len(a.Actions) == 0 {
			return Action{}, false, fmt.Errorf("sequence at line %d has no actions", node.Line)
		}

	default:
		return Action{}, false, nil
	}

	for name := range fields {
		known := false
		for _, k := range allowed {
			if name == k {
				known = true
				break
			}
		}
		if !known {
			return Action{}, false, fmt.Errorf("unknown field %q in %s action at line %d",
				name, a.Type, node.Line)
		}
	}

	return a, true, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func requireString(fields map[string]*yaml.Node, key string, line int) (string, error) {
	node, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("action at line %d missing required field %q", line, key)
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return "", fmt.Errorf("field %q at line %d: %w", key, node.Line, err)
	}
	return s, nil
}

func optionalInt(fields map[string]*yaml.Node, key string, def int) (int, error) {
	node, ok := fields[key]
	if !ok {
		return def, nil
	}
	var v int
	if err := node.Decode(&v); err != nil {
		return 0, fmt.Errorf("field %q at line %d: %w", key, node.Line, err)
	}
	return v, nil
}

// optionalDuration reads a millisecond integer field.
func optionalDuration(fields map[string]*yaml.Node, key string, def time.Duration) (time.Duration, error) {
	node, ok := fields[key]
	if !ok {
		return def, nil
	}
	var ms int
	if err := node.Decode(&ms); err != nil {
		return 0, fmt.Errorf("field %q at line %d: %w", key, node.Line, err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("field %q at line %d must not be negative", key, node.Line)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
