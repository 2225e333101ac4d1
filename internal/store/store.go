package store

import (
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// ErrUnknownVertex is returned when updating the properties of a vertex the store does not hold.
var ErrUnknownVertex = errors.New("unknown vertex")

// CustomStore is a graph.Store whose vertex properties can be updated after insertion.
// The workflow engine records node status and duration on the vertices while a run progresses.
type CustomStore[K comparable, T any] interface {
	graph.Store[K, T]
	UpdateVertexProperties(k K, options ...func(*graph.VertexProperties)) error
}

type vertex[K comparable, T any] struct {
	value T
	props graph.VertexProperties
	out   map[K]graph.Edge[K] // by target
	in    map[K]graph.Edge[K] // by source
}

// MemoryStore is a concurrency safe in-memory CustomStore. Vertices and edges are listed in
// insertion order.
type MemoryStore[K comparable, T any] struct {
	lock     sync.RWMutex
	vertices map[K]*vertex[K, T]
	order    []K
	edges    int
}

func NewMemoryStore[K comparable, T any]() CustomStore[K, T] {
	return &MemoryStore[K, T]{vertices: make(map[K]*vertex[K, T])}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}

	s.vertices[k] = &vertex[K, T]{
		value: t,
		props: copyProperties(p),
		out:   make(map[K]graph.Edge[K]),
		in:    make(map[K]graph.Edge[K]),
	}
	s.order = append(s.order, k)

	return nil
}

func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return append([]K(nil), s.order...), nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		var zero T

		return zero, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v.value, v.props, nil
}

func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.vertices[k]
	if !ok {
		return graph.ErrVertexNotFound
	}

	if len(v.in) > 0 || len(v.out) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.vertices, k)

	for i, hash := range s.order {
		if hash == k {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}

// UpdateVertexProperties applies options to a copy of the properties of vertex k, then swaps
// the copy in. Properties returned earlier by Vertex are left untouched.
func (s *MemoryStore[K, T]) UpdateVertexProperties(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.vertices[k]
	if !ok {
		return errors.Wrapf(ErrUnknownVertex, "%v", k)
	}

	updated := copyProperties(v.props)
	for _, opt := range options {
		opt(&updated)
	}

	v.props = updated

	return nil
}

func copyProperties(p graph.VertexProperties) graph.VertexProperties {
	attributes := make(map[string]string, len(p.Attributes))
	for key, value := range p.Attributes {
		attributes[key] = value
	}

	return graph.VertexProperties{Weight: p.Weight, Attributes: attributes}
}

func (s *MemoryStore[K, T]) AddEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	source, target, err := s.endpoints(sourceHash, targetHash)
	if err != nil {
		return err
	}

	if _, ok := source.out[targetHash]; !ok {
		s.edges++
	}

	source.out[targetHash] = edge
	target.in[sourceHash] = edge

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	source, target, err := s.endpoints(sourceHash, targetHash)
	if err != nil {
		return graph.ErrEdgeNotFound
	}

	if _, ok := source.out[targetHash]; !ok {
		return graph.ErrEdgeNotFound
	}

	source.out[targetHash] = edge
	target.in[sourceHash] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(sourceHash, targetHash K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	source, ok := s.vertices[sourceHash]
	if !ok {
		return nil
	}

	if _, ok := source.out[targetHash]; !ok {
		return nil
	}

	s.edges--
	delete(source.out, targetHash)
	delete(s.vertices[targetHash].in, sourceHash)

	return nil
}

func (s *MemoryStore[K, T]) Edge(sourceHash, targetHash K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	source, ok := s.vertices[sourceHash]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	edge, ok := source.out[targetHash]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[K], 0, s.edges)
	for _, hash := range s.order {
		for _, edge := range s.vertices[hash].out {
			res = append(res, edge)
		}
	}

	return res, nil
}

// endpoints must be called with the lock held.
func (s *MemoryStore[K, T]) endpoints(sourceHash, targetHash K) (*vertex[K, T], *vertex[K, T], error) {
	source, ok := s.vertices[sourceHash]
	if !ok {
		return nil, nil, errors.Wrapf(graph.ErrVertexNotFound, "%v", sourceHash)
	}

	target, ok := s.vertices[targetHash]
	if !ok {
		return nil, nil, errors.Wrapf(graph.ErrVertexNotFound, "%v", targetHash)
	}

	return source, target, nil
}

// CreatesCycle reports whether an edge from source to target would close a cycle, that is
// whether target is already an ancestor of source. It walks incoming edges only, so the graph
// never builds a predecessor map.
func (s *MemoryStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, _, err := s.endpoints(source, target)
	if err != nil {
		return false, errors.Wrap(err, "could not get vertex")
	}

	if source == target {
		return true, nil
	}

	visited := map[K]struct{}{source: {}}
	queue := []K{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for parent := range s.vertices[current].in {
			if parent == target {
				return true, nil
			}

			if _, ok := visited[parent]; ok {
				continue
			}

			visited[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}

	return false, nil
}
