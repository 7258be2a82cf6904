package tools

import (
	"sync"
)

// Registry acts as a central inventory for all tool definitions
// available to assistants.
type Registry struct {
	mu    sync.RWMutex           // Protects concurrent access to the tools map
	tools map[string]*Definition // Internal map of tool id to definition
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Definition),
	}
}

// Register adds a definition to the registry, keyed by id.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.ID] = def
}

// Unregister removes a definition from the registry
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, id)
}

// Get retrieves a definition by id
func (r *Registry) Get(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[id]
	return def, ok
}

// GetByName retrieves a definition by its model-facing name.
func (r *Registry) GetByName(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, def := range r.tools {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// GetAll returns all registered definitions
func (r *Registry) GetAll() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	return defs
}
