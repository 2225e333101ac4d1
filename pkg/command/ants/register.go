package ants

import "github.com/askiada/regflow/pkg/command"

// Register adds the ANTS descriptors to r under their binary names.
func Register(r *command.Registry) error {
	for _, spec := range []command.Spec{
		Registration{Dimension: DefaultDimension},
		WarpImageMultiTransform{Dimension: DefaultDimension},
		AverageImages{Dimension: DefaultDimension},
		AverageAffineTransform{Dimension: DefaultDimension},
		MultiplyImages{Dimension: DefaultDimension},
	} {
		err := r.Register(spec.Executable(), spec)
		if err != nil {
			return err
		}
	}

	return nil
}
