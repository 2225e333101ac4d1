package command

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PathList is a list of file paths. When decoded it also accepts a single path, so the output of
// a node producing one file can feed an input expecting several.
type PathList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PathList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*p = nil

			return nil
		}
		var single string
		if err := value.Decode(&single); err != nil {
			return errors.Wrap(err, "unable to decode path")
		}
		*p = PathList{single}
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return errors.Wrap(err, "unable to decode path list")
		}
		*p = many
	default:
		return errors.Wrapf(ErrInvalidValue, "expected a path or a list of paths at line %d", value.Line)
	}

	return nil
}
