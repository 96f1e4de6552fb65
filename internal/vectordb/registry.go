package vectordb

import (
	"context"
	"sync"
)

// SchemaRegistry remembers the schema each collection was created with, for
// backends that cannot report it themselves.
type SchemaRegistry interface {
	LookupCollection(ctx context.Context, name string) (CollectionSpec, bool, error)
	RegisterCollection(ctx context.Context, spec CollectionSpec) error
}

// MemoryRegistry is a process-local SchemaRegistry.
type MemoryRegistry struct {
	mu    sync.Mutex
	specs map[string]CollectionSpec
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{specs: make(map[string]CollectionSpec)}
}

func (r *MemoryRegistry) LookupCollection(_ context.Context, name string) (CollectionSpec, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.specs[name]
	return spec, ok, nil
}

func (r *MemoryRegistry) RegisterCollection(_ context.Context, spec CollectionSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
	return nil
}
