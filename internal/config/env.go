package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// ParseEnv overlays target with the environment variables named by its env tags. Fields whose
// variable is unset keep their value.
func ParseEnv(target any) error {
	err := env.Parse(target)
	if err != nil {
		return errors.Wrap(err, "unable to parse environment")
	}

	return nil
}
