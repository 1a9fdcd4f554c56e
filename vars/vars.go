// Package vars implements the shell's variable store: a string-keyed
// environment with typed getters/setters over a single string
// representation, as described in spec.md §4.1.
package vars

import (
	"fmt"
	"io"
	"strconv"
	"sync"
)

// NameError reports an empty or otherwise invalid variable name.
type NameError struct{ Name string }

func (e *NameError) Error() string {
	return fmt.Sprintf("vars: invalid variable name %q", e.Name)
}

// NotFoundError reports a lookup against a name that is unknown, or known
// but currently unset.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vars: %q is not set", e.Name)
}

// ParseError reports that a variable's string value could not be parsed
// as a signed base-10 integer in its entirety.
type ParseError struct{ Name, Value string }

func (e *ParseError) Error() string {
	return fmt.Sprintf("vars: value of %q (%q) is not an integer", e.Name, e.Value)
}

type entry struct {
	name  string
	value string
	isSet bool
}

// Store is a name -> string mapping, with entries retained (but marked
// unset) across a set-to-unset transition so that insertion order of first
// definition survives for Show. The zero value is ready to use.
type Store struct {
	mu      sync.Mutex
	entries []*entry
	index   map[string]int
}

// NewStore returns an empty, ready-to-use variable store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

func (s *Store) find(name string) *entry {
	if s.index == nil {
		return nil
	}
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return s.entries[i]
}

// GetString returns the current value of name, and false if the name is
// unknown or currently unset. The returned string is a copy; it is never
// invalidated by later mutation (unlike the C original, where the pointer
// was borrowed).
func (s *Store) GetString(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(name)
	if e == nil || !e.isSet {
		return "", false
	}
	return e.value, true
}

// GetInt succeeds only if name is set, its value is non-empty, and the
// entire string parses as a signed base-10 integer with no trailing
// characters and no leading whitespace — strict parsing, not strconv's more
// permissive variants.
func (s *Store) GetInt(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.find(name)
	if e == nil || !e.isSet {
		return 0, &NotFoundError{Name: name}
	}
	if e.value == "" || e.value[0] == '+' {
		// strconv.ParseInt permits a leading '+'; the reference only
		// accepts a leading '-'.
		return 0, &ParseError{Name: name, Value: e.value}
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		return 0, &ParseError{Name: name, Value: e.value}
	}
	return n, nil
}

// SetString creates or updates the entry for name. A nil value unsets the
// entry (the name is retained, but subsequent reads see it as unset);
// the store takes an independent copy of value.
func (s *Store) SetString(name string, value *string) error {
	if name == "" {
		return &NameError{Name: name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[string]int)
	}

	if e := s.find(name); e != nil {
		if value == nil {
			e.isSet = false
			e.value = ""
		} else {
			e.isSet = true
			e.value = *value
		}
		return nil
	}

	e := &entry{name: name}
	if value != nil {
		e.isSet = true
		e.value = *value
	}
	s.index[name] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// SetInt stores the canonical base-10 text of v: a leading '-' for
// negative values, and no leading zeros other than the single digit "0".
// strconv.FormatInt already produces exactly that representation, so
// unlike the C original there is no hand-rolled digit-counting loop here.
func (s *Store) SetInt(name string, v int64) error {
	text := strconv.FormatInt(v, 10)
	return s.SetString(name, &text)
}

// Show writes a brace-delimited debug rendering to w: "{}" if the store is
// empty, otherwise "{" + entries separated by ", " + "}", where a set
// entry renders as "name=value" and an unset entry as "name " (trailing
// space, preserved for compatibility with the reference per spec.md §9
// note 4). No trailing newline.
func (s *Store) Show(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprint(w, "{")
	for i, e := range s.entries {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		if e.isSet {
			fmt.Fprintf(w, "%s=%s", e.name, e.value)
		} else {
			fmt.Fprintf(w, "%s ", e.name)
		}
	}
	fmt.Fprint(w, "}")
}
