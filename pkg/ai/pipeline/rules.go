package pipeline

import (
	_ "embed"
	"errors"
	"fmt"

	"noa-assistant-be/pkg/store"
	"noa-assistant-be/pkg/textnorm"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRules = errors.New("invalid rule table")

//go:embed rules.yaml
var defaultRules []byte

const (
	MatchSubstring = "substring"
	MatchWord      = "word"
)

// SafetyGroup is a set of disallowed patterns sharing one set of replies.
type SafetyGroup struct {
	Name      string       `yaml:"name"`
	Match     string       `yaml:"match"`
	SkipIn    []store.Mode `yaml:"skip_in"`
	Patterns  []string     `yaml:"patterns"`
	Responses []string     `yaml:"responses"`
}

func (g SafetyGroup) matches(message string) bool {
	if g.Match == MatchWord {
		_, ok := textnorm.ContainsWord(message, g.Patterns)
		return ok
	}
	_, ok := textnorm.ContainsAny(message, g.Patterns)
	return ok
}

// Rule is a deterministic small-talk answer.
type Rule struct {
	Name      string       `yaml:"name"`
	Modes     []store.Mode `yaml:"modes"`
	Exact     []string     `yaml:"exact"`
	Prefix    []string     `yaml:"prefix"`
	Patterns  []string     `yaml:"patterns"`
	Responses []string     `yaml:"responses"`
}

func (r Rule) appliesIn(mode store.Mode) bool {
	return len(r.Modes) == 0 || lo.Contains(r.Modes, mode)
}

func (r Rule) matches(message string) bool {
	if _, ok := textnorm.MatchAnchored(message, r.Exact, r.Prefix); ok {
		return true
	}
	_, ok := textnorm.ContainsAny(message, r.Patterns)
	return ok
}

// RuleSet holds the safety groups and the local rules, both in table order.
type RuleSet struct {
	Safety []SafetyGroup `yaml:"safety"`
	Rules  []Rule        `yaml:"rules"`
}

func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRules)
}

func ParseRules(raw []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	for _, g := range rs.Safety {
		if len(g.Patterns) == 0 || len(g.Responses) == 0 {
			return nil, fmt.Errorf("%w: safety group %q needs patterns and responses", ErrInvalidRules, g.Name)
		}
		if g.Match != "" && g.Match != MatchSubstring && g.Match != MatchWord {
			return nil, fmt.Errorf("%w: safety group %q has unknown match %q", ErrInvalidRules, g.Name, g.Match)
		}
	}
	for _, r := range rs.Rules {
		if len(r.Responses) == 0 {
			return nil, fmt.Errorf("%w: rule %q has no responses", ErrInvalidRules, r.Name)
		}
		if len(r.Exact)+len(r.Prefix)+len(r.Patterns) == 0 {
			return nil, fmt.Errorf("%w: rule %q matches nothing", ErrInvalidRules, r.Name)
		}
		for _, m := range r.Modes {
			if !m.Valid() {
				return nil, fmt.Errorf("%w: rule %q lists unknown mode %q", ErrInvalidRules, r.Name, m)
			}
		}
	}
	return &rs, nil
}

// CheckSafety returns a refusal when message hits a group active in mode.
func (rs *RuleSet) CheckSafety(message string, mode store.Mode) (string, string, bool) {
	for _, g := range rs.Safety {
		if lo.Contains(g.SkipIn, mode) || !g.matches(message) {
			continue
		}
		return lo.Sample(g.Responses), g.Name, true
	}
	return "", "", false
}

// Answer returns one of the responses of the first rule that matches.
func (rs *RuleSet) Answer(message string, mode store.Mode) (string, string, bool) {
	for _, r := range rs.Rules {
		if !r.appliesIn(mode) || !r.matches(message) {
			continue
		}
		return lo.Sample(r.Responses), r.Name, true
	}
	return "", "", false
}
