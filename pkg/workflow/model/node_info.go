package model

type NodeType string

const (
	NodeTypeNode NodeType = "node"
	NodeTypeMap  NodeType = "mapnode"
)

// Names of the synthetic vertices bracketing a workflow graph.
const (
	StartNode = "start"
	EndNode   = "end"
)

// Status is the final state of a node after a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusCached    Status = "cached"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// NodeInfo describes a node of a flattened workflow.
type NodeInfo struct {
	Type NodeType
	// Name is the dotted path of the node from the root workflow.
	Name string
	// Interface is a short description of what the node runs.
	Interface string
	// Terminal is true when no other node consumes the outputs of the node.
	Terminal bool
}
