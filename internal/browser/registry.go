package browser

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrLibraryNotFound is returned when no browser library is registered under a name.
var ErrLibraryNotFound = errors.New("browser library not found")

// Library is a collaborating browser library that owns open browsers and
// lends out the active one.
type Library interface {
	CurrentBrowser() (Driver, error)
}

// Registry maps library names to libraries.
type Registry struct {
	libs map[string]Library
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{libs: make(map[string]Library)}
}

// Register adds or replaces the library registered under name.
func (r *Registry) Register(name string, lib Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libs[name] = lib
}

// Lookup returns the library registered under name.
func (r *Registry) Lookup(name string) (Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lib, ok := r.libs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLibraryNotFound, name)
	}
	return lib, nil
}

// CurrentBrowser borrows the active browser from the named library.
func (r *Registry) CurrentBrowser(name string) (Driver, error) {
	lib, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	d, err := lib.CurrentBrowser()
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", name, err)
	}
	return d, nil
}

// Names returns the registered library names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
