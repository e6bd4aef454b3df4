package sim

import "errors"

// Error categories for the simulation core. Callers classify failures
// with errors.Is; everything wrapped around these sentinels is fatal
// for the operation that produced it.
var (
	// ErrConfiguration indicates a bad constructor argument combination,
	// an empty or unordered schedule, or a malformed schema.
	ErrConfiguration = errors.New("sim: invalid configuration")

	// ErrValidation indicates a field map that does not satisfy its
	// declared parameter schema.
	ErrValidation = errors.New("sim: parameter validation failed")

	// ErrSequence indicates an impossible advancement request: an end
	// time earlier than the current time, or conflicting sampling
	// arguments.
	ErrSequence = errors.New("sim: sequence error")
)
