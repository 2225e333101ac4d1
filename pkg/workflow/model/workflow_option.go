package model

import "time"

// WorkflowOption defines the interface for options observing a workflow run.
// Hooks may be called from several goroutines at once.
type WorkflowOption interface {
	// New initialises the workflow option.
	New() error

	workflowNodeOption
	workflowJobOption

	// Finish runs after the workflow is finished, whether it succeeded or not.
	Finish() error
}

// workflowNodeOption defines the interface for node options at the workflow level.
type workflowNodeOption interface {
	// PrepareNode runs once per node, in topological order, before anything runs.
	PrepareNode(parents []*NodeInfo, node *NodeInfo) error
	// OnNodeStart runs when all parents are done. waits holds, per parent, the time elapsed since
	// the parent finished.
	OnNodeStart(node *NodeInfo, waits map[string]time.Duration) error
	// OnNodeDone runs when the node reached its final status.
	OnNodeDone(node *NodeInfo, status Status, totalDuration time.Duration) error
}

// workflowJobOption defines the interface for job options at the workflow level.
type workflowJobOption interface {
	// OnJobDone runs after each job of a node. A map node runs one job per element.
	OnJobDone(node *NodeInfo, computationDuration time.Duration, cached bool) error
}
