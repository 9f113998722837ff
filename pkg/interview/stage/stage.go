package stage

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type RepeatPolicy string

const (
	RepeatOnce          RepeatPolicy = "once"
	RepeatUntilNegation RepeatPolicy = "until_negation"

	DefaultFallback = "isso"
)

var ErrInvalidTable = errors.New("invalid stage table")

//go:embed stages.yaml
var defaultTable []byte

// Stage is one step of the interview. Stages without a Variable are narration.
type Stage struct {
	ID       string       `yaml:"id" json:"id"`
	Order    int          `yaml:"order" json:"order"`
	Prompt   string       `yaml:"prompt" json:"prompt"`
	Variable string       `yaml:"variable,omitempty" json:"variable,omitempty"`
	Repeat   RepeatPolicy `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Options  []string     `yaml:"options,omitempty" json:"options,omitempty"`
	Extract  string       `yaml:"extract,omitempty" json:"extract,omitempty"`
}

func (s Stage) Repeats() bool {
	return s.Repeat == RepeatUntilNegation
}

func (s Stage) IsNarration() bool {
	return s.Variable == ""
}

type document struct {
	Fallback string              `yaml:"fallback"`
	Aliases  map[string][]string `yaml:"aliases"`
	Stages   []Stage             `yaml:"stages"`
}

// Table is the ordered, immutable list of interview stages.
type Table struct {
	stages   []Stage
	aliases  map[string][]string
	fallback string
}

// Default parses the embedded interview table.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

// Load reads a table from path, or the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage table %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	stages := make([]Stage, len(doc.Stages))
	copy(stages, doc.Stages)
	for i := range stages {
		if stages[i].Repeat == "" {
			stages[i].Repeat = RepeatOnce
		}
	}
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })

	fallback := doc.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	t := &Table{
		stages:   stages,
		aliases:  doc.Aliases,
		fallback: fallback,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that orders are contiguous from 0, ids are unique and
// every repeating stage has somewhere to accumulate its answers.
func (t *Table) Validate() error {
	if len(t.stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidTable)
	}
	if strings.ContainsAny(t.fallback, "{}") {
		return fmt.Errorf("%w: fallback token %q contains braces", ErrInvalidTable, t.fallback)
	}
	ids := make(map[string]struct{}, len(t.stages))
	for i, s := range t.stages {
		if s.Order != i {
			return fmt.Errorf("%w: stage %q has order %d, expected %d", ErrInvalidTable, s.ID, s.Order, i)
		}
		if s.ID == "" {
			return fmt.Errorf("%w: stage at order %d has no id", ErrInvalidTable, i)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate stage id %q", ErrInvalidTable, s.ID)
		}
		ids[s.ID] = struct{}{}

		switch s.Repeat {
		case RepeatOnce:
		case RepeatUntilNegation:
			if s.Variable == "" {
				return fmt.Errorf("%w: repeating stage %q has no variable", ErrInvalidTable, s.ID)
			}
		default:
			return fmt.Errorf("%w: stage %q has unknown repeat policy %q", ErrInvalidTable, s.ID, s.Repeat)
		}
	}
	return nil
}

func (t *Table) Len() int {
	return len(t.stages)
}

func (t *Table) At(index int) (Stage, bool) {
	if index < 0 || index >= len(t.stages) {
		return Stage{}, false
	}
	return t.stages[index], true
}

func (t *Table) Index(id string) (int, bool) {
	for i, s := range t.stages {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// VariableStages counts the stages that capture something.
func (t *Table) VariableStages() int {
	n := 0
	for _, s := range t.stages {
		if !s.IsNarration() {
			n++
		}
	}
	return n
}

func (t *Table) Fallback() string {
	return t.fallback
}
