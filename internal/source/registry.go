package source

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps source identifiers to adapter constructors. Registration is
// allowed at runtime so deployments can add origins without touching the
// pipeline.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds a source ID to a constructor, replacing any previous binding.
func (r *Registry) Register(sourceID string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[sourceID] = ctor
}

// Create instantiates the adapter registered under sourceID.
func (r *Registry) Create(sourceID string, opts Options) (Adapter, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[sourceID]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Source: sourceID, Valid: r.List()}
	}
	adapter, err := ctor(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to construct adapter for source %s: %w", sourceID, err)
	}
	return adapter, nil
}

// List returns the registered source IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
