package sources

import "fmt"

// Registry holds the enabled adapters in registration order. The order is
// load-bearing: aggregation and dedup downstream depend on it being
// stable across runs.
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
	}
}

// Register adds an adapter. Duplicate names are rejected.
func (r *Registry) Register(a Adapter) error {
	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.adapters = append(r.adapters, a)
	r.byName[name] = a
	return nil
}

// Get returns the adapter with the given name, nil when absent
func (r *Registry) Get(name string) Adapter {
	return r.byName[name]
}

// All returns the adapters in registration order
func (r *Registry) All() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Names returns the adapter names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Len returns the number of registered adapters
func (r *Registry) Len() int {
	return len(r.adapters)
}
