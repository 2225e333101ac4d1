// Package workflow wires interfaces into a directed acyclic graph and runs it.
//
// A Workflow holds nodes and sub-workflows. Connect feeds a named output of one node into a named
// input of another; a field of a node inside a sub-workflow is addressed as "<node>.<field>".
// A map node runs its interface once per element of its iterfields and collects each output into
// a list, in element order.
//
// Run flattens the graph, orders it topologically and dispatches jobs with one of the execution
// plugins: Linear, MultiProc or SGE. Every job gets its own working directory under the base
// directory of the run; the hash of its inputs is kept there so an unchanged job is not run twice.
//
// Options implementing model.WorkflowOption observe a run. The measure and drawer packages provide
// options recording durations and rendering the graph with its final statuses.
package workflow
