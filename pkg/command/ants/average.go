package ants

import (
	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// AverageImages averages images voxel by voxel, optionally normalizing their intensities first.
type AverageImages struct {
	Dimension          int              `yaml:"dimension,omitempty"`
	OutputAverageImage string           `yaml:"output_average_image,omitempty"`
	Normalize          command.Switch   `yaml:"normalize,omitempty"`
	Images             command.PathList `yaml:"images,omitempty"`
}

// DefaultAverageImage names the average when no output name is given.
const DefaultAverageImage = "average.nii"

func (AverageImages) Executable() string {
	return "AverageImages"
}

func (a AverageImages) RequiredFiles() []string {
	return a.Images
}

func (a AverageImages) Args() ([]string, error) {
	if len(a.Images) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "images")
	}

	normalize := "0"
	if a.Normalize {
		normalize = "1"
	}

	args := &command.ArgList{}
	args.Positional(dimension(a.Dimension), a.output(), normalize)
	args.Positional(a.Images...)

	return args.Args(), nil
}

func (a AverageImages) output() string {
	if a.OutputAverageImage == "" {
		return DefaultAverageImage
	}

	return a.OutputAverageImage
}

func (a AverageImages) Outputs(dir string) (map[string]any, error) {
	return map[string]any{"average_image": command.Abs(dir, a.output())}, nil
}

// AverageAffineTransform averages affine transforms into one.
type AverageAffineTransform struct {
	Dimension             int              `yaml:"dimension,omitempty"`
	OutputAffineTransform string           `yaml:"output_affine_transform,omitempty"`
	Transforms            command.PathList `yaml:"transforms,omitempty"`
}

func (AverageAffineTransform) Executable() string {
	return "AverageAffineTransform"
}

func (a AverageAffineTransform) RequiredFiles() []string {
	return a.Transforms
}

func (a AverageAffineTransform) Args() ([]string, error) {
	if a.OutputAffineTransform == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "output_affine_transform")
	}

	if len(a.Transforms) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "transforms")
	}

	args := &command.ArgList{}
	args.Positional(dimension(a.Dimension), a.OutputAffineTransform)
	args.Positional(a.Transforms...)

	return args.Args(), nil
}

func (a AverageAffineTransform) Outputs(dir string) (map[string]any, error) {
	if a.OutputAffineTransform == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "output_affine_transform")
	}

	return map[string]any{"affine_transform": command.Abs(dir, a.OutputAffineTransform)}, nil
}
