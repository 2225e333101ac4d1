package measure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/regflow/pkg/workflow/measure"
	"github.com/askiada/regflow/pkg/workflow/model"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	mt := m.AddMetric("BeginANTS")

	assert.Zero(t, mt.AVGDuration())

	mt.AddDuration(2 * time.Second)
	mt.AddDuration(4 * time.Second)
	mt.AddCached()
	mt.AddWaitDuration("InputSpec", 1500*time.Microsecond+7)
	mt.SetTotalDuration(6 * time.Second)

	assert.Equal(t, 3*time.Second, mt.AVGDuration())
	assert.Equal(t, int64(2), mt.Jobs())
	assert.Equal(t, int64(1), mt.Cached())
	assert.Equal(t, 6*time.Second, mt.GetTotalDuration())
	assert.Equal(t, map[string]time.Duration{"InputSpec": 2 * time.Millisecond}, mt.AllWaits())

	assert.Same(t, mt, m.GetMetric("BeginANTS"))
	assert.Len(t, m.AllMetrics(), 1)

	m.GetMetric("created")
	assert.Len(t, m.AllMetrics(), 2)
}

func TestWorkflowMeasure(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	opt := measure.WorkflowMeasure(m)

	node := &model.NodeInfo{Name: "wf.avg", Type: model.NodeTypeNode}

	assert.NoError(t, opt.New())
	assert.NoError(t, opt.PrepareNode(nil, node))
	assert.NoError(t, opt.OnNodeStart(node, map[string]time.Duration{"wf.ants": time.Millisecond}))
	assert.NoError(t, opt.OnJobDone(node, time.Second, false))
	assert.NoError(t, opt.OnJobDone(node, 0, true))
	assert.NoError(t, opt.OnNodeDone(node, model.StatusSucceeded, 2*time.Second))
	assert.NoError(t, opt.Finish())

	mt := m.GetMetric("wf.avg")
	assert.Equal(t, int64(1), mt.Jobs())
	assert.Equal(t, int64(1), mt.Cached())
	assert.Equal(t, 2*time.Second, mt.GetTotalDuration())
	assert.Contains(t, mt.AllWaits(), "wf.ants")
	assert.Len(t, m.AllMetrics(), 3)
}
