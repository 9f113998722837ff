package variables

import (
	"encoding/json"
	"sort"
	"strings"
)

// Store holds the facts captured during one interview. A name maps either to a
// scalar (overwritten on every Set) or to an ordered list (grown by Append).
// Callers serialize access per session.
type Store struct {
	scalars map[string]string
	lists   map[string][]string
}

func New() *Store {
	return &Store{
		scalars: make(map[string]string),
		lists:   make(map[string][]string),
	}
}

// Set stores a scalar value, replacing any previous scalar under name.
func (s *Store) Set(name, value string) {
	s.ensure()
	s.scalars[name] = value
}

// Append adds value to the list under name and returns the new list length.
func (s *Store) Append(name, value string) int {
	s.ensure()
	s.lists[name] = append(s.lists[name], value)
	return len(s.lists[name])
}

func (s *Store) Get(name string) (string, bool) {
	if s == nil || s.scalars == nil {
		return "", false
	}
	v, ok := s.scalars[name]
	return v, ok
}

// List returns a copy of the list stored under name.
func (s *Store) List(name string) []string {
	if s == nil || s.lists == nil {
		return nil
	}
	items := s.lists[name]
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

func (s *Store) Has(name string) bool {
	if _, ok := s.Get(name); ok {
		return true
	}
	return len(s.List(name)) > 0
}

// Resolve finds the most specific value among names: the first non-empty
// scalar wins, then the first element of the first non-empty list.
func (s *Store) Resolve(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := s.Get(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	for _, name := range names {
		if items := s.List(name); len(items) > 0 {
			return items[0], true
		}
	}
	return "", false
}

// Names returns every captured variable name, sorted.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.scalars)+len(s.lists))
	for k := range s.scalars {
		seen[k] = struct{}{}
	}
	for k := range s.lists {
		seen[k] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Len() int {
	return len(s.Names())
}

func (s *Store) Reset() {
	s.scalars = make(map[string]string)
	s.lists = make(map[string][]string)
}

// Snapshot flattens the store into a map of string or []string values.
func (s *Store) Snapshot() map[string]interface{} {
	out := make(map[string]interface{})
	if s == nil {
		return out
	}
	for k, v := range s.scalars {
		out[k] = v
	}
	for k := range s.lists {
		out[k] = s.List(k)
	}
	return out
}

// Restore replaces the store contents with a snapshot produced by Snapshot
// (or decoded from its JSON form).
func (s *Store) Restore(snapshot map[string]interface{}) {
	s.Reset()
	for k, v := range snapshot {
		switch val := v.(type) {
		case string:
			s.scalars[k] = val
		case []string:
			s.lists[k] = append([]string(nil), val...)
		case []interface{}:
			for _, item := range val {
				if str, ok := item.(string); ok {
					s.lists[k] = append(s.lists[k], str)
				}
			}
		}
	}
}

func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var snapshot map[string]interface{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	s.Restore(snapshot)
	return nil
}

func (s *Store) ensure() {
	if s.scalars == nil {
		s.scalars = make(map[string]string)
	}
	if s.lists == nil {
		s.lists = make(map[string][]string)
	}
}
