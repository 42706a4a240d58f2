package replica

import "errors"

// Replica errors
var (
	// ErrUnknownMutator indicates that the CRDT type has no mutator with the given name
	ErrUnknownMutator = errors.New("unknown mutator")

	// ErrUnknownSubCollaboration indicates that a named sub-state could not be resolved or created
	ErrUnknownSubCollaboration = errors.New("unknown sub-collaboration")

	// ErrCausalGap indicates that the delta log no longer covers the clock a peer synced from
	ErrCausalGap = errors.New("causal gap: delta history trimmed")

	// ErrHierarchyTooDeep indicates that a sub-collaboration would exceed the depth limit
	ErrHierarchyTooDeep = errors.New("sub-collaboration hierarchy too deep")

	// ErrReplicateOnly indicates a local mutation on a replicate-only (pinner) replica
	ErrReplicateOnly = errors.New("replica is replicate-only")
)
