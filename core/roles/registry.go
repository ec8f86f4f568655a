package roles

import (
	"fmt"
	"slices"
)

// Registry maps role identifiers to roles. It is immutable after
// construction, so concurrent reads need no locking.
type Registry struct {
	roles map[ID]*Role
	order []ID
}

func NewRegistry(roles ...*Role) (*Registry, error) {
	registry := &Registry{roles: make(map[ID]*Role, len(roles))}
	for _, role := range roles {
		if role == nil {
			return nil, fmt.Errorf("nil role")
		}
		if _, ok := registry.roles[role.ID]; ok {
			return nil, fmt.Errorf("duplicate role %q", role.ID)
		}
		for _, transition := range role.Transitions {
			if transition.Cue == nil {
				return nil, fmt.Errorf("role %q has a transition without a cue", role.ID)
			}
		}

		registry.roles[role.ID] = role
		registry.order = append(registry.order, role.ID)
	}

	for _, role := range roles {
		for _, transition := range role.Transitions {
			if _, ok := registry.roles[transition.Next]; !ok {
				return nil, fmt.Errorf("role %q transitions to %q: %w", role.ID, transition.Next, ErrUnknownRole)
			}
		}
	}

	return registry, nil
}

// DefaultRegistry returns the three tutoring roles.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(NewWelcomer(), NewQuestionPresenter(), NewStepByStepTutor())
	if err != nil {
		panic(fmt.Sprintf("default role registry: %v", err))
	}
	return registry
}

func (r *Registry) Get(id ID) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, id)
	}
	return role, nil
}

func (r *Registry) Has(id ID) bool {
	_, ok := r.roles[id]
	return ok
}

// IDs returns role identifiers in registration order.
func (r *Registry) IDs() []ID {
	return slices.Clone(r.order)
}

func (r *Registry) Info(id ID) (Info, error) {
	role, err := r.Get(id)
	if err != nil {
		return Info{}, err
	}
	return role.Info, nil
}

func (r *Registry) Len() int {
	return len(r.order)
}
