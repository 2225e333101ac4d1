// Package model provides the data structures shared by the workflow package and its options.
// It defines the description of a node as seen by options, the statuses a node ends in,
// and the hooks an option receives while a workflow is prepared and run.
package model
