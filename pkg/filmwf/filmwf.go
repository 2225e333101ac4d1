// Package filmwf assembles the workflow correcting interleaved motion in a set of images.
package filmwf

import (
	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/cmtk"
	"github.com/askiada/regflow/pkg/workflow"
)

// Name of the workflow returned by New.
const Name = "filmWF"

// New returns the workflow running film once per image. InputSpec takes images, OutputSpec
// returns output_image, one corrected image per input in input order. Relative image paths are
// resolved against the working directory. film holds the parameters shared by every image;
// cmtk.NewFilm gives the tool defaults.
func New(images []string, film cmtk.Film) (*workflow.Workflow, error) {
	if len(images) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "images")
	}

	images, err := command.AbsPaths(images)
	if err != nil {
		return nil, err
	}

	wf, err := workflow.New(Name)
	if err != nil {
		return nil, err
	}

	inputSpec := workflow.NewNode("InputSpec", workflow.Identity("images"), workflow.WithoutSubmitting()).
		Set("images", images)
	outputSpec := workflow.NewNode("OutputSpec", workflow.Identity("output_image"), workflow.WithoutSubmitting())
	node := workflow.NewMapNode("Film", command.NewInterface("film", film), []string{"input_image"})

	err = wf.Connect(inputSpec, "images", node, "input_image")
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect images")
	}

	err = wf.Connect(node, "image", outputSpec, "output_image")
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect output image")
	}

	return wf, nil
}
