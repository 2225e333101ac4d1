package workflow

import (
	"strings"

	"github.com/pkg/errors"
)

// Vertex is either a *Node or a *Workflow used as a sub-workflow.
type Vertex interface {
	vertexName() string
}

type connection struct {
	src, srcField string
	dst, dstField string
}

// Workflow is a named graph of nodes and sub-workflows connected field to field.
type Workflow struct {
	name     string
	nodes    map[string]*Node
	subs     map[string]*Workflow
	order    []string
	conns    []connection
	inbounds map[string]struct{}
}

// New creates an empty workflow.
func New(name string) (*Workflow, error) {
	if !validName(name) {
		return nil, errors.Wrapf(ErrInvalidName, "workflow %q", name)
	}

	return &Workflow{
		name:     name,
		nodes:    make(map[string]*Node),
		subs:     make(map[string]*Workflow),
		inbounds: make(map[string]struct{}),
	}, nil
}

// Name returns the name of the workflow.
func (w *Workflow) Name() string {
	return w.name
}

func (w *Workflow) vertexName() string {
	return w.name
}

// Add adds nodes to the workflow.
func (w *Workflow) Add(nodes ...*Node) error {
	for _, n := range nodes {
		if n == nil {
			return ErrNodeMustBeSet
		}

		err := w.register(n.name, func() { w.nodes[n.name] = n })
		if err != nil {
			return err
		}
	}

	return nil
}

// AddWorkflow adds sub-workflows. Their nodes are addressed as "<sub>.<node>".
func (w *Workflow) AddWorkflow(subs ...*Workflow) error {
	for _, sub := range subs {
		if sub == nil {
			return ErrWorkflowMustBeSet
		}
		if sub == w {
			return errors.Wrapf(ErrCycle, "workflow %s cannot contain itself", w.name)
		}

		err := w.register(sub.name, func() { w.subs[sub.name] = sub })
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) register(name string, add func()) error {
	if !validName(name) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}

	if _, ok := w.nodes[name]; ok {
		return errors.Wrapf(ErrDuplicateNode, "%s in workflow %s", name, w.name)
	}

	if _, ok := w.subs[name]; ok {
		return errors.Wrapf(ErrDuplicateNode, "%s in workflow %s", name, w.name)
	}

	add()
	w.order = append(w.order, name)

	return nil
}

// ensure adds v to the workflow unless it is already part of it.
func (w *Workflow) ensure(v Vertex) error {
	switch typed := v.(type) {
	case *Node:
		if typed == nil {
			return ErrNodeMustBeSet
		}
		if w.nodes[typed.name] == typed {
			return nil
		}

		return w.Add(typed)
	case *Workflow:
		if typed == nil {
			return ErrWorkflowMustBeSet
		}
		if w.subs[typed.name] == typed {
			return nil
		}

		return w.AddWorkflow(typed)
	default:
		return errors.Wrapf(ErrUnknownNode, "%T", v)
	}
}

// endpoint resolves a vertex and field into a node path relative to w and a field name.
// Fields of a sub-workflow are addressed as "<node>.<field>", possibly through nested
// sub-workflows.
func (w *Workflow) endpoint(v Vertex, field string) (string, string, error) {
	if node, ok := v.(*Node); ok {
		return node.name, field, nil
	}

	sub, _ := v.(*Workflow)

	idx := strings.LastIndex(field, ".")
	if idx <= 0 || idx == len(field)-1 {
		return "", "", errors.Wrapf(ErrUnknownNode, "field %q of workflow %s must be <node>.<field>", field, sub.name)
	}

	path, name := field[:idx], field[idx+1:]

	_, err := sub.Node(path)
	if err != nil {
		return "", "", err
	}

	return sub.name + "." + path, name, nil
}

// Connect feeds the output srcField of src into the input dstField of dst. Vertices not yet part
// of the workflow are added. An input can be connected only once.
func (w *Workflow) Connect(src Vertex, srcField string, dst Vertex, dstField string) error {
	for _, v := range []Vertex{src, dst} {
		err := w.ensure(v)
		if err != nil {
			return errors.Wrap(err, "unable to add vertex")
		}
	}

	srcPath, srcName, err := w.endpoint(src, srcField)
	if err != nil {
		return errors.Wrap(err, "unable to resolve source")
	}

	dstPath, dstName, err := w.endpoint(dst, dstField)
	if err != nil {
		return errors.Wrap(err, "unable to resolve destination")
	}

	if srcPath == dstPath {
		return errors.Wrapf(ErrCycle, "%s feeds itself", srcPath)
	}

	key := dstPath + "." + dstName
	if _, ok := w.inbounds[key]; ok {
		return errors.Wrap(ErrInputConnected, key)
	}

	w.inbounds[key] = struct{}{}
	w.conns = append(w.conns, connection{src: srcPath, srcField: srcName, dst: dstPath, dstField: dstName})

	return nil
}

// Node returns the node at path, a dotted path through sub-workflows.
func (w *Workflow) Node(path string) (*Node, error) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		node, ok := w.nodes[head]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownNode, "%s in workflow %s", path, w.name)
		}

		return node, nil
	}

	sub, ok := w.subs[head]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNode, "%s in workflow %s", path, w.name)
	}

	return sub.Node(rest)
}

// Clone returns a deep copy of the workflow under a new name. Static inputs are copied, the
// interfaces are shared.
func (w *Workflow) Clone(name string) (*Workflow, error) {
	c, err := New(name)
	if err != nil {
		return nil, err
	}

	for _, item := range w.order {
		if node, ok := w.nodes[item]; ok {
			c.nodes[item] = node.clone()
		}

		if sub, ok := w.subs[item]; ok {
			subClone, err := sub.Clone(sub.name)
			if err != nil {
				return nil, err
			}
			c.subs[item] = subClone
		}
	}

	c.order = append([]string(nil), w.order...)
	c.conns = append([]connection(nil), w.conns...)

	for key := range w.inbounds {
		c.inbounds[key] = struct{}{}
	}

	return c, nil
}

// flatten collects every node and connection, with paths relative to the root workflow.
func (w *Workflow) flatten(prefix string, nodes map[string]*Node, order *[]string, conns *[]connection) {
	for _, item := range w.order {
		if node, ok := w.nodes[item]; ok {
			nodes[prefix+item] = node
			*order = append(*order, prefix+item)
		}

		if sub, ok := w.subs[item]; ok {
			sub.flatten(prefix+item+".", nodes, order, conns)
		}
	}

	for _, c := range w.conns {
		*conns = append(*conns, connection{
			src: prefix + c.src, srcField: c.srcField,
			dst: prefix + c.dst, dstField: c.dstField,
		})
	}
}
