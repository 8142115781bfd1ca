package pipeline

import (
	"fmt"
	"strings"
)

// Registry maps stage names to implementations.
type Registry struct {
	stages map[string]Stage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage. Names must be non-empty and unique.
func (r *Registry) Register(s Stage) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("register stage: empty name")
	}
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("register stage %q: already registered", name)
	}
	r.stages[name] = s
	return nil
}

// MustRegister is Register for package-level wiring. It panics on error.
func (r *Registry) MustRegister(s Stage) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the stage registered under name.
func (r *Registry) Lookup(name string) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// Pipeline returns the registered stages in Order.
// Every name in Order must be registered.
func (r *Registry) Pipeline() ([]Stage, error) {
	var missing []string
	stages := make([]Stage, 0, len(Order()))
	for _, name := range Order() {
		s, ok := r.stages[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		stages = append(stages, s)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("stages not registered: %s", strings.Join(missing, ", "))
	}
	return stages, nil
}
