package ants

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// MultiplyImages multiplies an image by another image or by a constant.
type MultiplyImages struct {
	Dimension  int    `yaml:"dimension,omitempty"`
	FirstInput string `yaml:"first_input,omitempty"`
	// SecondInput is an image path or a number, e.g. "-0.25".
	SecondInput        string `yaml:"second_input,omitempty"`
	OutputProductImage string `yaml:"output_product_image,omitempty"`
}

func (MultiplyImages) Executable() string {
	return "MultiplyImages"
}

func (m MultiplyImages) RequiredFiles() []string {
	files := []string{m.FirstInput}
	if !isNumber(m.SecondInput) {
		files = append(files, m.SecondInput)
	}

	return files
}

func isNumber(value string) bool {
	_, err := strconv.ParseFloat(value, 64)

	return err == nil
}

func (m MultiplyImages) Args() ([]string, error) {
	for _, field := range [][2]string{
		{"first_input", m.FirstInput},
		{"second_input", m.SecondInput},
		{"output_product_image", m.OutputProductImage},
	} {
		if field[1] == "" {
			return nil, errors.Wrap(command.ErrMissingInput, field[0])
		}
	}

	args := &command.ArgList{}
	args.Positional(dimension(m.Dimension), m.FirstInput, m.SecondInput, m.OutputProductImage)

	return args.Args(), nil
}

func (m MultiplyImages) Outputs(dir string) (map[string]any, error) {
	if m.OutputProductImage == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "output_product_image")
	}

	return map[string]any{"product_image": command.Abs(dir, m.OutputProductImage)}, nil
}
