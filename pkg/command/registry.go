package command

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/workflow"
)

// Registry maps tool names to descriptors holding their default parameters.
type Registry struct {
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a descriptor under name.
func (r *Registry) Register(name string, base Spec) error {
	if base == nil {
		return errors.Wrapf(ErrInvalidValue, "descriptor for %s must be set", name)
	}

	if _, ok := r.specs[name]; ok {
		return errors.Wrapf(ErrDuplicateTool, "%s", name)
	}

	r.specs[name] = base

	return nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Bind returns the descriptor registered under name with the inputs overlaid.
func (r *Registry) Bind(name string, in map[string]any) (Spec, error) {
	base, ok := r.specs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "%s", name)
	}

	spec, err := bindDynamic(base, in)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind %s inputs", name)
	}

	return spec, nil
}

// Interface returns the workflow interface running the tool registered under name.
func (r *Registry) Interface(name string) (workflow.Interface, error) {
	base, ok := r.specs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "%s", name)
	}

	return NewInterface(name, base), nil
}
