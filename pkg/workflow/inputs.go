package workflow

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Inputs holds the values handed to an interface, keyed by input name.
type Inputs map[string]any

// Outputs holds the values produced by an interface, keyed by output name.
type Outputs map[string]any

// DecodeValue converts value into target through its YAML representation. Values produced in
// process and values reloaded from a cached result decode the same way.
func DecodeValue(value any, target any) error {
	var node yaml.Node

	err := node.Encode(value)
	if err != nil {
		return errors.Wrap(err, "unable to encode value")
	}

	err = node.Decode(target)
	if err != nil {
		return errors.Wrap(err, "unable to decode value")
	}

	return nil
}

// Has reports whether name is set.
func (in Inputs) Has(name string) bool {
	_, ok := in[name]

	return ok
}

// Decode decodes the input name into target.
func (in Inputs) Decode(name string, target any) error {
	value, ok := in[name]
	if !ok {
		return errors.Wrap(ErrMissingInput, name)
	}

	return errors.Wrapf(DecodeValue(value, target), "input %s", name)
}

// String returns the input name as a string.
func (in Inputs) String(name string) (string, error) {
	var out string

	err := in.Decode(name, &out)

	return out, err
}

// Strings returns the input name as a list of strings.
func (in Inputs) Strings(name string) ([]string, error) {
	var out []string

	err := in.Decode(name, &out)

	return out, err
}

func (in Inputs) clone() Inputs {
	out := make(Inputs, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
