package models

import "errors"

// Sentinel errors shared by the loaders and the panels that consume them
var (
	// ErrIndexOutOfRange indicates a file index outside the loaded projection set
	ErrIndexOutOfRange = errors.New("file index out of range")

	// ErrNoProjections indicates an operation that needs at least one projection
	ErrNoProjections = errors.New("no projections loaded")
)
