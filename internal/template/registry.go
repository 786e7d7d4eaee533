package template

import (
	"fmt"
	"sort"
	"sync"
)

// Entry is a registered template.
type Entry struct {
	Name      string
	Layout    string
	Fixed     bool
	Generator SlideGenerator
}

// Registry maps canonical template names to entries. It is built once at
// startup and handed to the Resolver.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	def     string
}

// NewRegistry returns an empty registry whose fallback is def.
func NewRegistry(def string) *Registry {
	return &Registry{entries: map[string]Entry{}, def: def}
}

// NewRegistryFromManifest registers every manifest entry using the generator kinds in kinds.
func NewRegistryFromManifest(m *Manifest, kinds map[string]GeneratorFactory) (*Registry, error) {
	r := NewRegistry(m.Default)
	for _, e := range m.Templates {
		factory, ok := kinds[e.Generator]
		if !ok {
			return nil, fmt.Errorf("template: unknown generator %s for %s", e.Generator, e.Name)
		}
		layout := e.Layout
		if layout == "" {
			layout = e.Name + ".html"
		}
		if err := r.Register(Entry{Name: e.Name, Layout: layout, Fixed: e.Fixed, Generator: factory(e.Background)}); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Get(m.Default); !ok {
		return nil, fmt.Errorf("template: default %s is not registered", m.Default)
	}
	return r, nil
}

// Register adds an entry. Returns an error if the name already exists.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("template: name is required")
	}
	if e.Generator == nil {
		return fmt.Errorf("template: generator is required for %s", e.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Name]; exists {
		return fmt.Errorf("template: %s already registered", e.Name)
	}
	r.entries[e.Name] = e
	return nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Default returns the fallback entry.
func (r *Registry) Default() Entry {
	e, _ := r.Get(r.def)
	return e
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
