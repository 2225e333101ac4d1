package drawer

import (
	"io"

	"github.com/askiada/regflow/pkg/workflow/measure"
	"github.com/askiada/regflow/pkg/workflow/model"
)

// Drawer is an interface that defines the methods for drawing a workflow.
type Drawer interface {
	// AddStep adds a node to the workflow drawer.
	AddStep(stepName string) error
	// AddLink adds a link between parent and children nodes.
	AddLink(parentStepName, childrenStepName string) error
	// SetStatus colours a node according to its final status.
	SetStatus(stepName string, status model.Status) error
	// AddMeasure adds a measure to the workflow drawer.
	AddMeasure(measure measure.Measure) error
	// Render writes the graph in DOT format.
	Render(wrt io.Writer) error
	// Draw creates a file with the workflow graph.
	Draw() error
}
