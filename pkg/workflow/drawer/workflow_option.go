package drawer

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/workflow/measure"
	"github.com/askiada/regflow/pkg/workflow/model"
)

type workflowDrawer struct {
	Drawer
	m measure.Measure

	mu       sync.Mutex
	statuses map[string]model.Status
}

func (wd *workflowDrawer) New() error {
	err := wd.AddStep(model.StartNode)
	if err != nil {
		return errors.Wrap(err, "unable to add start node to drawer")
	}
	err = wd.AddStep(model.EndNode)
	if err != nil {
		return errors.Wrap(err, "unable to add end node to drawer")
	}

	return nil
}

func (wd *workflowDrawer) PrepareNode(parents []*model.NodeInfo, node *model.NodeInfo) error {
	err := wd.AddStep(node.Name)
	if err != nil {
		return err
	}

	if len(parents) == 0 {
		err = wd.AddLink(model.StartNode, node.Name)
		if err != nil {
			return err
		}
	}

	for _, parent := range parents {
		err = wd.AddLink(parent.Name, node.Name)
		if err != nil {
			return err
		}
	}

	if node.Terminal {
		err = wd.AddLink(node.Name, model.EndNode)
		if err != nil {
			return err
		}
	}

	return nil
}

func (wd *workflowDrawer) OnNodeStart(_ *model.NodeInfo, _ map[string]time.Duration) error {
	return nil
}

func (wd *workflowDrawer) OnJobDone(_ *model.NodeInfo, _ time.Duration, _ bool) error {
	return nil
}

func (wd *workflowDrawer) OnNodeDone(node *model.NodeInfo, status model.Status, _ time.Duration) error {
	wd.mu.Lock()
	defer wd.mu.Unlock()

	wd.statuses[node.Name] = status

	return nil
}

func (wd *workflowDrawer) Finish() error {
	wd.mu.Lock()
	defer wd.mu.Unlock()

	for name, status := range wd.statuses {
		err := wd.SetStatus(name, status)
		if err != nil {
			return errors.Wrap(err, "unable to set node status")
		}
	}

	if wd.m != nil {
		err := wd.AddMeasure(wd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := wd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw workflow")
	}

	return nil
}

// WorkflowDrawer returns a workflow option drawing the executed graph once the run is over.
// measure may be nil.
func WorkflowDrawer(drawer Drawer, measure measure.Measure) model.WorkflowOption {
	return &workflowDrawer{Drawer: drawer, m: measure, statuses: make(map[string]model.Status)}
}
