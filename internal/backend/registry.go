package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/seantiz/monolithium/internal/model"
)

// BackendInfo pairs a backend kind with its capabilities.
type BackendInfo struct {
	Kind         model.BackendKind `json:"kind"`
	Capabilities Capabilities      `json:"capabilities"`
}

// Registry holds registered backends and resolves which one to use. Resolve
// is the only place where a backend kind turns into behaviour.
type Registry struct {
	mu       sync.RWMutex
	backends map[model.BackendKind]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[model.BackendKind]Backend),
	}
}

// Register adds a backend to the registry under its own kind.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Kind()] = b
}

// Resolve returns the backend registered for kind.
func (r *Registry) Resolve(kind model.BackendKind) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("backend %q is not registered", kind)
	}
	return b, nil
}

// List returns information about all registered backends, sorted by kind
// for a stable API response.
func (r *Registry) List() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]BackendInfo, 0, len(r.backends))
	for kind, b := range r.backends {
		infos = append(infos, BackendInfo{
			Kind:         kind,
			Capabilities: b.Capabilities(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Kind < infos[j].Kind
	})
	return infos
}
