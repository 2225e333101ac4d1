package measure

import (
	"time"

	"github.com/askiada/regflow/pkg/workflow/model"
)

type workflowMeasure struct {
	Measure
}

func (wm *workflowMeasure) New() error {
	wm.AddMetric(model.StartNode)
	wm.AddMetric(model.EndNode)

	return nil
}

func (wm *workflowMeasure) PrepareNode(_ []*model.NodeInfo, node *model.NodeInfo) error {
	wm.AddMetric(node.Name)

	return nil
}

func (wm *workflowMeasure) OnNodeStart(node *model.NodeInfo, waits map[string]time.Duration) error {
	mt := wm.GetMetric(node.Name)
	for parent, elapsed := range waits {
		mt.AddWaitDuration(parent, elapsed)
	}

	return nil
}

func (wm *workflowMeasure) OnJobDone(node *model.NodeInfo, computationDuration time.Duration, cached bool) error {
	mt := wm.GetMetric(node.Name)
	if cached {
		mt.AddCached()

		return nil
	}
	mt.AddDuration(computationDuration)

	return nil
}

func (wm *workflowMeasure) OnNodeDone(node *model.NodeInfo, _ model.Status, totalDuration time.Duration) error {
	wm.GetMetric(node.Name).SetTotalDuration(totalDuration)

	return nil
}

func (wm *workflowMeasure) Finish() error {
	return nil
}

// WorkflowMeasure returns a workflow option recording node metrics into measure.
func WorkflowMeasure(measure Measure) model.WorkflowOption {
	return &workflowMeasure{measure}
}
