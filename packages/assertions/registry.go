package assertions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownPredicate is returned by Apply when a chain ends in a word
	// no plugin registered.
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrDuplicatePredicate is returned when a name is registered twice.
	ErrDuplicatePredicate = errors.New("duplicate predicate")
	// ErrUnknownChainWord is returned by Apply for a word that is neither a
	// language word nor a flag.
	ErrUnknownChainWord = errors.New("unknown chain word")
)

// Predicate is a named check. args is the raw argument list: the
// predicate's inputs followed by an optional message.
type Predicate func(a *Assumption, args ...any) bool

// Plugin installs predicates and flags on a registry.
type Plugin func(r *Registry, u Utils)

// languageWords read naturally in a chain but carry no meaning.
var languageWords = map[string]bool{
	"to": true, "be": true, "been": true, "is": true, "that": true,
	"which": true, "and": true, "has": true, "have": true, "with": true,
	"at": true, "of": true, "same": true,
}

// Registry maps predicate names and chain words to behavior.
type Registry struct {
	utils Utils

	mu         sync.RWMutex
	predicates map[string]Predicate
	flags      map[string]func(*Flags)
	errs       []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*Registry)

// WithUtils replaces the helper bundle handed to plugins. Unset functions
// fall back to the defaults.
func WithUtils(u Utils) RegistryOption {
	return func(r *Registry) {
		r.utils = u.orDefault()
	}
}

// NewRegistry creates a registry that knows the "not" flag and nothing else.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		utils:      DefaultUtils(),
		predicates: make(map[string]Predicate),
		flags:      make(map[string]func(*Flags)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.flags["not"] = func(f *Flags) { f.Not = !f.Not }
	return r
}

// Utils returns the helper bundle handed to plugins.
func (r *Registry) Utils() Utils { return r.utils }

// Add registers a predicate.
func (r *Registry) Add(name string, p Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.predicates[name]; exists {
		err := fmt.Errorf("%w: %s", ErrDuplicatePredicate, name)
		r.errs = append(r.errs, err)
		return err
	}
	r.predicates[name] = p
	return nil
}

// AddFlag registers a chain word, and its aliases, that adjusts the flags
// of the assumption it is applied to.
func (r *Registry) AddFlag(name string, set func(*Flags), aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, word := range append([]string{name}, aliases...) {
		if _, exists := r.flags[word]; exists {
			err := fmt.Errorf("%w: flag %s", ErrDuplicatePredicate, word)
			r.errs = append(r.errs, err)
			return err
		}
		r.flags[word] = set
	}
	return nil
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	return p, ok
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use installs a plugin and reports any registration errors it caused.
func (r *Registry) Use(p Plugin) error {
	r.mu.Lock()
	before := len(r.errs)
	r.mu.Unlock()

	p(r, r.utils)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return errors.Join(r.errs[before:]...)
}

// Assume starts an assertion that uses this registry's helper bundle.
func (r *Registry) Assume(t TestingT, value any) *Assumption {
	a := Assume(t, value)
	a.utils = r.utils
	return a
}

// Apply evaluates a chain such as "to have always been calledWith" against
// a. Words may be separated by spaces or dots. The last word names the
// predicate; flag words before it are applied to a copy of a.
func (r *Registry) Apply(a *Assumption, chain string, args ...any) (bool, error) {
	a.helper()

	words := strings.FieldsFunc(chain, func(c rune) bool { return c == ' ' || c == '.' })
	if len(words) == 0 {
		return false, fmt.Errorf("%w: empty chain", ErrUnknownPredicate)
	}

	name := words[len(words)-1]
	p, ok := r.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPredicate, name)
	}

	flags := a.flags
	r.mu.RLock()
	for _, word := range words[:len(words)-1] {
		if languageWords[word] {
			continue
		}
		set, ok := r.flags[word]
		if !ok {
			r.mu.RUnlock()
			return false, fmt.Errorf("%w: %q in %q", ErrUnknownChainWord, word, chain)
		}
		set(&flags)
	}
	r.mu.RUnlock()

	return p(a.WithFlags(flags), args...), nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry with the spy assertions
// installed.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		_ = defaultRegistry.Use(SpyAssertions)
	})
	return defaultRegistry
}
