package adapter

import (
	"fmt"
	"sync"

	"github.com/sanix-darker/streamkernel/internal/kernelerr"
)

// Registry is a thread-safe, ordered set of registered adapters: Get
// supports explicit selection by name, while Resolve additionally runs
// every detect-capable adapter, in registration order, against a
// candidate chunk.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Adapter
}

// globalRegistry is the package-level registry used by the convenience
// functions Register/Resolve/Get/Names/Clear/Unregister.
var globalRegistry = NewRegistry()

// NewRegistry creates an empty Registry. Useful for tests and for isolating
// a consensus/parallel run's adapter set from the process-wide default.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Adapter)}
}

// Register adds a into the registry. It returns a DuplicateAdapter error
// instead of panicking, so registration failure is a recoverable,
// classified error rather than a process crash.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return kernelerr.New(kernelerr.DuplicateAdapter,
			fmt.Sprintf("adapter %q is already registered", name))
	}
	r.byName[name] = a
	r.order = append(r.order, name)
	return nil
}

// Unregister removes the adapter with the given name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; !exists {
		return
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear removes every registered adapter. Intended for test isolation
// between cases that register conflicting mock adapters.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName = make(map[string]Adapter)
	r.order = nil
}

// Get resolves an adapter by explicit name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.byName[name]
	if !exists {
		return nil, kernelerr.New(kernelerr.NoAdapter,
			fmt.Sprintf("no adapter registered under name %q (registered: %v)", name, r.namesLocked()))
	}
	return a, nil
}

// Resolve picks an adapter for chunk: if name is non-empty, it behaves
// exactly like Get; otherwise it runs Detect, in registration
// order, on every detect-capable adapter against chunk. Exactly one match
// returns that adapter; zero matches fail with NoAdapter; two or more fail
// with AmbiguousAdapter listing every matching name.
func (r *Registry) Resolve(name string, chunk interface{}) (Adapter, error) {
	if name != "" {
		return r.Get(name)
	}

	r.mu.RLock()
	snapshot := make([]Adapter, 0, len(r.order))
	for _, n := range r.order {
		snapshot = append(snapshot, r.byName[n])
	}
	r.mu.RUnlock()

	var matches []Adapter
	skipped := 0
	for _, a := range snapshot {
		if !a.CanDetect() {
			skipped++
			continue
		}
		if a.Detect(chunk) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, kernelerr.New(kernelerr.NoAdapter,
			fmt.Sprintf("no adapter detected this input (%d adapter(s) skipped for lacking detect)", skipped))
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, a := range matches {
			names = append(names, a.Name())
		}
		return nil, kernelerr.New(kernelerr.AmbiguousAdapter,
			fmt.Sprintf("ambiguous input: matched adapters %v", names))
	}
}

// Names returns every registered adapter name, in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Register adds a to the global registry.
func Register(a Adapter) error { return globalRegistry.Register(a) }

// Unregister removes the named adapter from the global registry.
func Unregister(name string) { globalRegistry.Unregister(name) }

// Clear empties the global registry. Intended for test isolation.
func Clear() { globalRegistry.Clear() }

// Get resolves an adapter by name from the global registry.
func Get(name string) (Adapter, error) { return globalRegistry.Get(name) }

// Resolve resolves an adapter from the global registry per Registry.Resolve.
func Resolve(name string, chunk interface{}) (Adapter, error) {
	return globalRegistry.Resolve(name, chunk)
}

// Names returns all registered adapter names from the global registry.
func Names() []string { return globalRegistry.Names() }

// Default returns the process-wide registry, for callers that want to pass
// it explicitly (e.g. a consensus run using an isolated registry instead).
func Default() *Registry { return globalRegistry }
