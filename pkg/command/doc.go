// Package command describes external command-line tools as typed descriptors.
//
// A descriptor is a plain struct holding the parameters of one tool invocation. It knows the
// binary it targets, how its parameters map to an ordered argument list and which files the
// invocation is expected to produce. Descriptors never run anything themselves: NewInterface
// adapts them into workflow interfaces, which hand the argument list to the launcher selected by
// the workflow configuration.
//
// Parameters are decoded from workflow inputs by name, using the snake_case yaml tag of each
// field, so the same keys can be used in Go code, YAML files and node connections.
package command
