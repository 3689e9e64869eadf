package source

import (
	"fmt"
	"sort"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// Named is a media source that can be selected by configuration.
type Named interface {
	ports.MediaSource
	Name() string
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]Named
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Named{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(src Named) {
	if r.sources == nil {
		r.sources = map[string]Named{}
	}
	r.sources[src.Name()] = src
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Named, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %v)", domain.ErrUnknownSource, name, r.Names())
}

// Names lists registered sources in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
