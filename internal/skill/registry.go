package skill

import (
	"fmt"
	"sync"

	"github.com/wastewise/wastewise/pkg/models"
)

// Registry maps skill names to implementations. Registration happens once at
// process startup; lookups fail closed with a configuration error so a
// missing entry can never be mistaken for a transient fault.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill. Registering the same name twice is a programming
// error and is rejected.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Name()]; exists {
		return fmt.Errorf("skill %q already registered", s.Name())
	}
	r.skills[s.Name()] = s
	return nil
}

// Get returns the named skill or a configuration error.
func (r *Registry) Get(name string) (Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	if !ok {
		return nil, models.NewConfigurationError("no skill registered for %q", name)
	}
	return s, nil
}

// Names returns the registered skill names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	return names
}

// ValidateComplete checks that every required skill is present. Called at
// worker startup so a misconfigured process refuses to poll at all.
func (r *Registry) ValidateComplete(required ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range required {
		if _, ok := r.skills[name]; !ok {
			return fmt.Errorf("required skill %q not registered", name)
		}
	}
	return nil
}
