package workflow

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrWorkflowMustBeSet = errors.New("workflow must be set")
	ErrNodeMustBeSet     = errors.New("node must be set")
	ErrInvalidName       = errors.New("name must be non empty and must not contain dots")
	ErrDuplicateNode     = errors.New("duplicate node name")
	ErrUnknownNode       = errors.New("unknown node")
	ErrInputConnected    = errors.New("input is already connected")
	ErrCycle             = errors.New("connection creates a cycle")
	ErrMissingInput      = errors.New("missing input")
	ErrMissingOutput     = errors.New("missing output")
	ErrIterField         = errors.New("invalid iterfield")
	ErrRerunRequired     = errors.New("node must be rerun and stop_on_first_rerun is set")
	ErrUnknownPlugin     = errors.New("unknown execution plugin")
	ErrOutputNotFound    = errors.New("expected output file not found")
)

// NodeError is the failure of a single node.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return "node " + e.Node + ": " + e.Err.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// RunError lists every node that failed during a run.
type RunError struct {
	Failures []*NodeError
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		msgs[i] = failure.Error()
	}
	sort.Strings(msgs)

	return "workflow failed: " + strings.Join(msgs, "; ")
}

func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure
	}

	return errs
}
