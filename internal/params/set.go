// Package params is the parameter store of a bring-up. Every process gets one
// immutable ParameterSet built by recursively merging ordered layers: built-in
// defaults, static configuration files, resolved description artifacts, and
// launch-argument overrides. Values are cty values, so nested mappings merge
// key by key while scalars replace each other wholesale.
package params

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Layer is one precedence level of parameters.
type Layer struct {
	// Name identifies where the values came from, e.g. a file path.
	Name   string
	Values map[string]cty.Value
}

// ConfigError reports missing or invalid parameters for a process.
type ConfigError struct {
	Process string
	Missing []string
	Err     error
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("parameters for %s: missing required keys: %s", e.Process, strings.Join(e.Missing, ", "))
	}
	if e.Process == "" {
		return fmt.Sprintf("parameters: %v", e.Err)
	}
	return fmt.Sprintf("parameters for %s: %v", e.Process, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Set is the immutable parameter payload of exactly one process.
type Set struct {
	process string
	values  map[string]cty.Value
}

// Build merges layers, lowest precedence first, and checks that every
// required dotted key is present afterwards.
func Build(process string, required []string, layers ...Layer) (*Set, error) {
	values := Merge(layers...)

	var missing []string
	for _, key := range required {
		if _, ok := lookup(values, key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ConfigError{Process: process, Missing: missing}
	}
	return &Set{process: process, values: values}, nil
}

// Process names the process that owns the set.
func (s *Set) Process() string { return s.process }

// Len is the number of top-level keys.
func (s *Set) Len() int { return len(s.values) }

// Keys returns the top-level keys in sorted order.
func (s *Set) Keys() []string { return sortedKeys(s.values) }

// Get returns the value at a dotted path.
func (s *Set) Get(path string) (cty.Value, bool) {
	return lookup(s.values, path)
}

// String returns the string at path, or "" if absent or not a string.
func (s *Set) String(path string) string {
	v, ok := s.Get(path)
	if !ok || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

// Object returns the whole set as a single cty object.
func (s *Set) Object() cty.Value {
	if len(s.values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(s.values)
}

// GoValue converts the set into plain Go maps for encoding.
func (s *Set) GoValue() (map[string]any, error) {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		gv, err := ToGo(v)
		if err != nil {
			return nil, &ConfigError{Process: s.process, Err: fmt.Errorf("%s: %w", k, err)}
		}
		out[k] = gv
	}
	return out, nil
}

// Store maps process names to their built parameter sets.
type Store struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sets: make(map[string]*Set)}
}

// Build builds the set for process and records it in the store. A process
// may be built only once.
func (st *Store) Build(process string, required []string, layers ...Layer) (*Set, error) {
	set, err := Build(process, required, layers...)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sets[process]; exists {
		return nil, &ConfigError{Process: process, Err: fmt.Errorf("parameter set already built")}
	}
	st.sets[process] = set
	return set, nil
}

// Get returns the set for process.
func (st *Store) Get(process string) (*Set, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sets[process]
	return s, ok
}

// Lookup returns the set for process or a ConfigError naming it.
func (st *Store) Lookup(process string) (*Set, error) {
	if s, ok := st.Get(process); ok {
		return s, nil
	}
	return nil, &ConfigError{Process: process, Err: fmt.Errorf("no parameter set")}
}

// Processes lists the processes with a built set, sorted.
func (st *Store) Processes() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	names := make([]string, 0, len(st.sets))
	for n := range st.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
