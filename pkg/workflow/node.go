package workflow

import (
	"fmt"
	"strings"

	"github.com/askiada/regflow/pkg/workflow/model"
)

// Node runs an interface once per workflow run, or once per element for a map node.
type Node struct {
	name       string
	iface      Interface
	inputs     Inputs
	iterFields []string

	// PluginArgs overrides the default qsub arguments for the jobs of this node.
	PluginArgs string
	// RunWithoutSubmitting runs the jobs of this node in process, even on a cluster plugin.
	RunWithoutSubmitting bool
}

// NodeOption configures a node.
type NodeOption func(n *Node)

// WithPluginArgs sets the qsub arguments of the jobs of the node.
func WithPluginArgs(qsubArgs string) NodeOption {
	return func(n *Node) {
		n.PluginArgs = qsubArgs
	}
}

// WithoutSubmitting keeps the jobs of the node in process.
func WithoutSubmitting() NodeOption {
	return func(n *Node) {
		n.RunWithoutSubmitting = true
	}
}

// NewNode creates a node running iface.
func NewNode(name string, iface Interface, opts ...NodeOption) *Node {
	n := &Node{
		name:   name,
		iface:  iface,
		inputs: Inputs{},
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// NewMapNode creates a node running iface once per element of the iterFields inputs.
// All iterFields inputs must be lists of the same length; outputs are lists in element order.
func NewMapNode(name string, iface Interface, iterFields []string, opts ...NodeOption) *Node {
	n := NewNode(name, iface, opts...)
	n.iterFields = append([]string(nil), iterFields...)

	return n
}

// Name returns the name of the node within its workflow.
func (n *Node) Name() string {
	return n.name
}

// IsMap reports whether the node is a map node.
func (n *Node) IsMap() bool {
	return len(n.iterFields) > 0
}

// Set sets a static input. Connected inputs take precedence over static ones.
func (n *Node) Set(field string, value any) *Node {
	n.inputs[field] = value

	return n
}

// Input returns the static input field.
func (n *Node) Input(field string) (any, bool) {
	value, ok := n.inputs[field]

	return value, ok
}

func (n *Node) clone() *Node {
	c := *n
	c.inputs = n.inputs.clone()
	c.iterFields = append([]string(nil), n.iterFields...)

	return &c
}

func (n *Node) vertexName() string {
	return n.name
}

func (n *Node) info(path string) *model.NodeInfo {
	typ := model.NodeTypeNode
	if n.IsMap() {
		typ = model.NodeTypeMap
	}

	return &model.NodeInfo{
		Type:      typ,
		Name:      path,
		Interface: describe(n.iface),
	}
}

func describe(iface Interface) string {
	if fp, ok := iface.(Fingerprinter); ok {
		desc, _, _ := strings.Cut(fp.Fingerprint(), "\n")

		return desc
	}

	return fmt.Sprintf("%T", iface)
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, ".")
}
