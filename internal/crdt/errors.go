package crdt

import "errors"

// Common CRDT errors
var (
	// ErrUnknownType indicates that CRDT type is not registered
	ErrUnknownType = errors.New("unknown CRDT type")

	// ErrJoinIncompatible indicates that two values cannot be joined
	ErrJoinIncompatible = errors.New("incompatible values for join")

	// ErrInvalidArgument indicates that mutator arguments are malformed
	ErrInvalidArgument = errors.New("invalid mutator argument")
)
