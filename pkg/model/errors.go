package model

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy of the assistant. Callers classify failures with errors.Is
// against these sentinels; goerr.Wrap keeps the chain intact.
var (
	// ErrIndexBuild means the knowledge base index could not be built.
	// Fatal at startup: without an index there is no answering capability.
	ErrIndexBuild = goerr.New("failed to build knowledge index")

	// ErrInvalidArgument is a caller error, returned immediately and never retried.
	ErrInvalidArgument = goerr.New("invalid argument")

	// ErrUnknownTool is returned when the model requests a tool that is not
	// registered. Recovered locally: the agent loop reports it back to the
	// model as an observation instead of terminating.
	ErrUnknownTool = goerr.New("unknown tool")

	// ErrToolExecution wraps a failure inside a tool. Recovered locally like
	// ErrUnknownTool.
	ErrToolExecution = goerr.New("tool execution failed")

	// ErrUpstreamCapability means the embedding or completion capability
	// failed after bounded retries.
	ErrUpstreamCapability = goerr.New("upstream capability failed")

	// ErrInvocationFailed is surfaced to the caller when an invocation cannot
	// produce an answer (e.g. iteration cap exhausted).
	ErrInvocationFailed = goerr.New("invocation failed")

	// ErrTimeout means the invocation exceeded its time budget. No partial
	// memory state is committed.
	ErrTimeout = goerr.New("invocation timed out")

	// ErrMissingSessionKey is a caller error on memory-enabled paths.
	ErrMissingSessionKey = goerr.New("actor_id and thread_id are required when memory is enabled")
)
