package source

import (
	"fmt"
	"sort"
)

// ConfigurationError reports a lookup for a source that was never configured.
// It is fatal to the calling operation and should not be retried.
type ConfigurationError struct {
	SourceID string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown source %q: not present in registry", e.SourceID)
}

// Registry exposes immutable source profiles by identifier.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry builds a registry from the given profiles. Duplicate or invalid
// profiles are rejected.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for i := range profiles {
		p := profiles[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.profiles[p.ID]; exists {
			return nil, fmt.Errorf("duplicate source profile %q", p.ID)
		}
		r.profiles[p.ID] = &p
	}
	return r, nil
}

// Get returns the profile for the given source ID.
func (r *Registry) Get(sourceID string) (*Profile, error) {
	p, ok := r.profiles[sourceID]
	if !ok {
		return nil, &ConfigurationError{SourceID: sourceID}
	}
	return p, nil
}

// IDs returns all registered source IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.profiles)
}
