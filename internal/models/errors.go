package models

import "errors"

// Sentinel errors for task and collection invariants.
var (
	ErrInvalidTask        = errors.New("models: invalid task")
	ErrInvalidBrief       = errors.New("models: invalid brief")
	ErrDuplicateTask      = errors.New("models: duplicate task")
	ErrMissingDependency  = errors.New("models: missing dependency")
	ErrUnknownTask        = errors.New("models: unknown task")
	ErrCyclicDependencies = errors.New("models: cyclic dependencies")
)
