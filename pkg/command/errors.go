package command

import "github.com/pkg/errors"

var (
	// ErrMissingInput is returned when a mandatory parameter is not set.
	ErrMissingInput = errors.New("mandatory input is not set")
	// ErrFileNotFound is returned when a file the command reads does not exist.
	ErrFileNotFound = errors.New("file does not exist")
	// ErrInvalidValue is returned when a parameter holds a value the tool does not accept.
	ErrInvalidValue = errors.New("invalid parameter value")
	// ErrUnknownTool is returned by the registry for names it does not hold.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
)
