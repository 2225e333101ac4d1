package command

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Switch is an on/off parameter. Besides true and false it decodes the 0 and 1 that the tools
// themselves take on their command lines.
type Switch bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Switch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Wrapf(ErrInvalidValue, "expected a boolean at line %d", value.Line)
	}

	if value.Tag == "!!int" {
		var n int
		if err := value.Decode(&n); err != nil {
			return errors.Wrap(err, "unable to decode switch")
		}
		if n != 0 && n != 1 {
			return errors.Wrapf(ErrInvalidValue, "switch must be 0 or 1, got %d", n)
		}
		*s = n == 1

		return nil
	}

	var b bool
	if err := value.Decode(&b); err != nil {
		return errors.Wrap(err, "unable to decode switch")
	}
	*s = Switch(b)

	return nil
}
