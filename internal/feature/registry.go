package feature

import (
	"fmt"
	"sort"
)

// Registry holds every known feature, keyed by ID.
type Registry struct {
	features map[string]Feature
}

// NewRegistry creates a registry with the built-in features.
func NewRegistry() *Registry {
	return NewRegistryWithFeatures(NewSkipFeature(), NewAutoLootFeature())
}

// NewRegistryWithFeatures creates a registry with custom features (for testing).
func NewRegistryWithFeatures(features ...Feature) *Registry {
	r := &Registry{features: make(map[string]Feature)}
	for _, f := range features {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a feature.
func (r *Registry) Register(f Feature) {
	r.features[f.ID()] = f
}

// Get returns a feature by ID.
func (r *Registry) Get(id string) (Feature, bool) {
	f, ok := r.features[id]
	return f, ok
}

// GetAll returns all features sorted by ID.
func (r *Registry) GetAll() []Feature {
	ids := r.List()
	out := make([]Feature, len(ids))
	for i, id := range ids {
		out[i] = r.features[id]
	}
	return out
}

// List returns all feature IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.features))
	for id := range r.features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Infos returns the serialisable view of every feature.
func (r *Registry) Infos() []Info {
	all := r.GetAll()
	out := make([]Info, len(all))
	for i, f := range all {
		out[i] = Describe(f)
	}
	return out
}

// Enable validates that id exists and is implemented.
func (r *Registry) Enable(id string) error {
	f, ok := r.features[id]
	if !ok {
		return fmt.Errorf("unknown feature %q", id)
	}
	return CheckEnable(f)
}
