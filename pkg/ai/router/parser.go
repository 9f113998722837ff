package router

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"noa-assistant-be/pkg/store"
	"noa-assistant-be/pkg/textnorm"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrInvalidIntents = errors.New("invalid intent table")

//go:embed intents.yaml
var defaultIntents []byte

// Action is a command handled inside the current mode instead of a switch.
type Action string

const (
	ActionNone    Action = ""
	ActionRestart Action = "restart"
	ActionStatus  Action = "status"
)

// Intent is one row of the trigger table.
type Intent struct {
	Name       string       `yaml:"name"`
	Mode       store.Mode   `yaml:"mode"`
	Action     Action       `yaml:"action"`
	OnlyIn     []store.Mode `yaml:"only_in"`
	Confidence float64      `yaml:"confidence"`
	Priority   int          `yaml:"priority"`
	Exact      []string     `yaml:"exact"`
	Prefix     []string     `yaml:"prefix"`
	Patterns   []string     `yaml:"patterns"`
	Banner     string       `yaml:"banner"`
}

// AppliesIn reports whether the intent is active while the session is in mode.
func (i Intent) AppliesIn(mode store.Mode) bool {
	return len(i.OnlyIn) == 0 || lo.Contains(i.OnlyIn, mode)
}

// Table holds the intents ordered by priority, highest first.
type Table struct {
	intents []Intent
}

func DefaultTable() (*Table, error) {
	return ParseTable(defaultIntents)
}

func ParseTable(raw []byte) (*Table, error) {
	var doc struct {
		Intents []Intent `yaml:"intents"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntents, err)
	}
	if len(doc.Intents) == 0 {
		return nil, fmt.Errorf("%w: no intents", ErrInvalidIntents)
	}

	seen := make(map[string]struct{}, len(doc.Intents))
	for i := range doc.Intents {
		in := &doc.Intents[i]
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			return nil, fmt.Errorf("%w: intent %d has no name", ErrInvalidIntents, i)
		}
		if _, dup := seen[in.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate intent %q", ErrInvalidIntents, in.Name)
		}
		seen[in.Name] = struct{}{}
		if !in.Mode.Valid() {
			return nil, fmt.Errorf("%w: intent %q targets unknown mode %q", ErrInvalidIntents, in.Name, in.Mode)
		}
		if in.Action != ActionNone && in.Action != ActionRestart && in.Action != ActionStatus {
			return nil, fmt.Errorf("%w: intent %q has unknown action %q", ErrInvalidIntents, in.Name, in.Action)
		}
		if in.Confidence <= 0 || in.Confidence > 1 {
			return nil, fmt.Errorf("%w: intent %q confidence %.2f out of range", ErrInvalidIntents, in.Name, in.Confidence)
		}
		in.Exact = trimAll(in.Exact)
		in.Prefix = trimAll(in.Prefix)
		in.Patterns = trimAll(in.Patterns)
		if len(in.Exact)+len(in.Prefix)+len(in.Patterns) == 0 {
			return nil, fmt.Errorf("%w: intent %q has no patterns", ErrInvalidIntents, in.Name)
		}
	}

	sort.SliceStable(doc.Intents, func(a, b int) bool {
		return doc.Intents[a].Priority > doc.Intents[b].Priority
	})
	return &Table{intents: doc.Intents}, nil
}

// Match returns the highest priority intent active in current that message
// triggers, along with the pattern that matched. exact and prefix entries
// are anchored to the whole message; patterns may occur anywhere in it.
func (t *Table) Match(message string, current store.Mode) (Intent, string, bool) {
	for _, in := range t.intents {
		if !in.AppliesIn(current) {
			continue
		}
		if p, ok := textnorm.MatchAnchored(message, in.Exact, in.Prefix); ok {
			return in, p, true
		}
		if p, ok := textnorm.ContainsAny(message, in.Patterns); ok {
			return in, p, true
		}
	}
	return Intent{}, "", false
}

func trimAll(in []string) []string {
	return lo.Compact(lo.Map(in, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

func (t *Table) Intent(name string) (Intent, bool) {
	return lo.Find(t.intents, func(in Intent) bool { return in.Name == name })
}

// Banner is the message shown when a session enters mode, if any.
func (t *Table) Banner(mode store.Mode) string {
	in, ok := lo.Find(t.intents, func(in Intent) bool {
		return in.Mode == mode && in.Action == ActionNone && in.Banner != ""
	})
	if !ok {
		return ""
	}
	return in.Banner
}

func (t *Table) Intents() []Intent {
	return append([]Intent(nil), t.intents...)
}
