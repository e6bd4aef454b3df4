package sim

import "io"

// State is the contract a domain supplies to the controllers. The core
// never inspects a state beyond this capability set: it reads and
// writes the clock and the previous step size, swaps the installed
// parameter set, and delegates persistence.
type State interface {
	// CurrentTime returns the simulated time in years.
	CurrentTime() float64
	SetCurrentTime(t float64)

	// PreviousStepSize returns the step size used for the most recent
	// advance, zero before the first step.
	PreviousStepSize() float64
	SetPreviousStepSize(dt float64)

	// Params returns the currently installed parameter set.
	Params() *ParameterSet
	// SetParams installs a new parameter set wholesale.
	SetParams(p *ParameterSet)

	// Persist writes the state's own opaque serialized form.
	Persist(w io.Writer) error

	// Equal reports value equality with another state of the same
	// implementation.
	Equal(other State) bool
}

// StateFactory constructs states, either fresh from parameters or from
// a previously persisted form.
type StateFactory interface {
	FromParams(params *ParameterSet, startTime float64) (State, error)
	FromPersisted(r io.Reader) (State, error)
}

// AdvanceFunc mutates a state by exactly one step. It is supplied by
// the domain; the controllers only sequence its invocations.
type AdvanceFunc func(state State, debug bool)

// StepSizeFunc derives the step size, in years, from an installed
// parameter set. Controllers call it freshly on every step so a
// parameter swap takes effect on the very next step.
type StepSizeFunc func(params *ParameterSet) float64

// FloatStepSize returns a StepSizeFunc that reads the named float
// field, the common case of a "delta_time" parameter.
func FloatStepSize(name string) StepSizeFunc {
	return func(p *ParameterSet) float64 { return p.Float(name) }
}
