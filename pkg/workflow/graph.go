package workflow

import (
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/regflow/internal/store"
	"github.com/askiada/regflow/pkg/workflow/drawer"
)

// plan is the flattened, validated graph of a workflow.
type plan struct {
	graph    graph.Graph[string, *Node]
	store    store.CustomStore[string, *Node]
	nodes    map[string]*Node
	order    []string
	incoming map[string][]connection
	preds    map[string][]string
	succs    map[string][]string
}

func nodeHash(paths map[*Node]string) graph.Hash[string, *Node] {
	return func(n *Node) string {
		return paths[n]
	}
}

func (w *Workflow) plan() (*plan, error) {
	nodes := make(map[string]*Node)
	declared := []string{}
	conns := []connection{}
	w.flatten("", nodes, &declared, &conns)

	// the same *Node may appear twice, e.g. when added to two sub-workflows; hashing by pointer
	// needs unique nodes
	paths := make(map[*Node]string, len(nodes))
	for _, path := range declared {
		node := nodes[path]
		if previous, ok := paths[node]; ok {
			return nil, errors.Wrapf(ErrDuplicateNode, "node used at %s and %s", previous, path)
		}
		paths[node] = path
	}

	st := store.NewMemoryStore[string, *Node]()
	g := graph.NewWithStore(nodeHash(paths), st, graph.Directed(), graph.PreventCycles())

	for _, path := range declared {
		err := g.AddVertex(nodes[path], graph.VertexAttribute("interface", describe(nodes[path].iface)))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add node %s", path)
		}
	}

	p := &plan{
		graph:    g,
		store:    st,
		nodes:    nodes,
		incoming: make(map[string][]connection),
		preds:    make(map[string][]string),
		succs:    make(map[string][]string),
	}

	inbounds := make(map[string]struct{})

	for _, c := range conns {
		key := c.dst + "." + c.dstField
		if _, ok := inbounds[key]; ok {
			return nil, errors.Wrap(ErrInputConnected, key)
		}
		inbounds[key] = struct{}{}

		p.incoming[c.dst] = append(p.incoming[c.dst], c)

		err := g.AddEdge(c.src, c.dst)
		switch {
		case err == nil:
			p.preds[c.dst] = append(p.preds[c.dst], c.src)
			p.succs[c.src] = append(p.succs[c.src], c.dst)
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return nil, errors.Wrapf(ErrCycle, "%s -> %s", c.src, c.dst)
		default:
			return nil, errors.Wrapf(err, "unable to connect %s to %s", c.src, c.dst)
		}
	}

	for _, list := range []map[string][]string{p.preds, p.succs} {
		for _, names := range list {
			sort.Strings(names)
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort workflow")
	}
	p.order = order

	return p, nil
}

// GraphStyle selects how WriteGraph lays out sub-workflows.
type GraphStyle string

const (
	// GraphFlat draws every node at the same level.
	GraphFlat GraphStyle = "flat"
	// GraphHierarchical draws the nodes of each sub-workflow in a cluster.
	GraphHierarchical GraphStyle = "hierarchical"
)

// WriteGraph writes the workflow graph to wrt in the DOT language.
func (w *Workflow) WriteGraph(wrt io.Writer, style GraphStyle) error {
	p, err := w.plan()
	if err != nil {
		return err
	}

	d := drawer.NewDOTDrawer("", drawer.Hierarchical(style == GraphHierarchical))

	for _, path := range p.order {
		err := d.AddStep(path)
		if err != nil {
			return err
		}
	}

	for _, path := range p.order {
		for _, succ := range p.succs[path] {
			err := d.AddLink(path, succ)
			if err != nil {
				return err
			}
		}
	}

	return d.Render(wrt)
}
