package cop

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps node types to the rules interested in them. Rules are
// registered during setup, then the registry is sealed and shared
// read-only between workers.
type Registry struct {
	mu     sync.RWMutex
	sealed bool
	rules  []Rule
	byName map[string]Rule
	byType map[string][]Rule
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Rule),
		byType: make(map[string][]Rule),
	}
}

// Register adds r. Names must be unique and the interest set non-empty.
func (reg *Registry) Register(r Rule) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, r.Name())
	}
	if _, ok := reg.byName[r.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name())
	}
	types := r.NodeTypes()
	if len(types) == 0 {
		return fmt.Errorf("%w: %s", ErrNoNodeTypes, r.Name())
	}

	reg.rules = append(reg.rules, r)
	reg.byName[r.Name()] = r
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		reg.byType[t] = append(reg.byType[t], r)
	}
	return nil
}

// Seal freezes the registry. Later Register calls fail.
func (reg *Registry) Seal() {
	reg.mu.Lock()
	reg.sealed = true
	reg.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (reg *Registry) Sealed() bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.sealed
}

// ForTypes returns the rules interested in nodes of type typ, in
// registration order. The slice must not be modified.
func (reg *Registry) ForTypes(typ string) []Rule {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.byType[typ]
}

// Get looks a rule up by name.
func (reg *Registry) Get(name string) (Rule, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.byName[name]
	return r, ok
}

// Rules returns every registered rule in registration order.
func (reg *Registry) Rules() []Rule {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return append([]Rule(nil), reg.rules...)
}

// Names returns the registered rule names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.rules))
	for _, r := range reg.rules {
		names = append(names, r.Name())
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered rules.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rules)
}

// Subset returns a sealed registry holding the rules keep accepts. keep
// may return a replacement rule, for example one with an overridden
// severity.
func (reg *Registry) Subset(keep func(Rule) (Rule, bool)) *Registry {
	out := NewRegistry()
	for _, r := range reg.Rules() {
		r, ok := keep(r)
		if !ok {
			continue
		}
		// names and types were validated on the way into reg
		_ = out.Register(r)
	}
	out.Seal()
	return out
}
