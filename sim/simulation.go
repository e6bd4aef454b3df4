package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// Model bundles the collaborators a domain passes to a controller:
// a state factory, the advance function, and the step-size derivation.
type Model struct {
	Factory  StateFactory
	Advance  AdvanceFunc
	StepSize StepSizeFunc
}

func (m Model) validate() error {
	if m.Factory == nil {
		return fmt.Errorf("%w: model has no state factory", ErrConfiguration)
	}
	if m.Advance == nil {
		return fmt.Errorf("%w: model has no advance function", ErrConfiguration)
	}
	if m.StepSize == nil {
		return fmt.Errorf("%w: model has no step-size function", ErrConfiguration)
	}
	return nil
}

// SimulationConfig configures a single-regime Simulation. Exactly one
// of Params (fresh start at StartTime) or Source (restore a persisted
// state) must be set.
type SimulationConfig struct {
	Model     Model
	StartTime float64
	Params    *ParameterSet
	Source    io.Reader
	Verbose   bool
	Debug     bool
}

// Simulation advances one State through uniform time steps between two
// fixed parameter installs. It is single-threaded; a parameter swap
// between pulls of a cursor takes effect on the next step.
type Simulation struct {
	model   Model
	state   State
	verbose bool
	debug   bool

	pendingStep    float64
	hasPendingStep bool
}

// NewSimulation builds a controller around a fresh or restored state.
func NewSimulation(cfg SimulationConfig) (*Simulation, error) {
	if err := cfg.Model.validate(); err != nil {
		return nil, err
	}
	if (cfg.Params != nil) == (cfg.Source != nil) {
		return nil, fmt.Errorf("%w: exactly one of Params or Source must be set", ErrConfiguration)
	}
	var (
		state State
		err   error
	)
	if cfg.Params != nil {
		state, err = cfg.Model.Factory.FromParams(cfg.Params, cfg.StartTime)
	} else {
		state, err = cfg.Model.Factory.FromPersisted(cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	return &Simulation{model: cfg.Model, state: state, verbose: cfg.Verbose, debug: cfg.Debug}, nil
}

// State returns the controlled state.
func (s *Simulation) State() State { return s.state }

// CurrentTime returns the state's simulated time.
func (s *Simulation) CurrentTime() float64 { return s.state.CurrentTime() }

// CurrentParams returns the installed parameter set.
func (s *Simulation) CurrentParams() *ParameterSet { return s.state.Params() }

// SetCurrentParams installs a new parameter set. The next step derives
// its size from the new set.
func (s *Simulation) SetCurrentParams(p *ParameterSet) { s.state.SetParams(p) }

// StepSize returns the step size derived from the installed parameters.
func (s *Simulation) StepSize() float64 { return s.model.StepSize(s.CurrentParams()) }

// AnnounceStepSize records that the step size will change to dt at the
// next regime boundary. The current segment keeps its own step size;
// the announcement only makes the upcoming change known in advance.
func (s *Simulation) AnnounceStepSize(dt float64) {
	s.pendingStep = dt
	s.hasPendingStep = true
}

// ClearStepAnnouncement withdraws any pending step-size announcement.
func (s *Simulation) ClearStepAnnouncement() {
	s.pendingStep = 0
	s.hasPendingStep = false
}

// PendingStepSize reports the announced boundary-crossing step size,
// if any.
func (s *Simulation) PendingStepSize() (float64, bool) {
	return s.pendingStep, s.hasPendingStep
}

// Persist writes the state's opaque serialized form to w. It delegates
// entirely to the state contract.
func (s *Simulation) Persist(w io.Writer) error { return s.state.Persist(w) }

// step advances the clock by the freshly derived step size, snaps the
// clock onto exact integers when 9-digit rounding lands on one, invokes
// the advance function, and records the step size just used.
func (s *Simulation) step() {
	dt := s.StepSize()
	t := s.state.CurrentTime() + dt
	if snapped := math.Round(t*1e9) / 1e9; snapped == math.Trunc(snapped) {
		t = snapped
	}
	s.state.SetCurrentTime(t)
	if s.verbose {
		logrus.Debugf("[t=%0.6f] advanced by %g", t, dt)
	}
	s.model.Advance(s.state, s.debug)
	s.state.SetPreviousStepSize(dt)
}

// Sampling selects which intermediate states Iterate yields. At most
// one of Interval (fixed spacing from the current time) or Years (an
// explicit ascending list of sample times) may be set; the zero value
// samples nothing.
type Sampling struct {
	Interval float64
	Years    []float64
}

func (sp Sampling) validate() error {
	if sp.Interval < 0 {
		return fmt.Errorf("%w: sampling interval must be positive, got %g", ErrSequence, sp.Interval)
	}
	if sp.Interval > 0 && len(sp.Years) > 0 {
		return fmt.Errorf("%w: provide a sampling interval, sampling years, or neither", ErrSequence)
	}
	return nil
}

// Iterate returns a pull cursor that runs the simulation to endTime,
// suspending exactly at each sampled state. The yielded state is the
// pre-advance state for that step; the step completes on the next pull.
// With inclusive set, the effective end time is extended by one step
// size so a sample exactly at endTime is captured. The cursor is not
// rewindable; a fresh Iterate continues from the current time.
func (s *Simulation) Iterate(endTime float64, sampling Sampling, inclusive bool) (*Cursor, error) {
	if err := sampling.validate(); err != nil {
		return nil, err
	}
	end := endTime
	if inclusive {
		end += s.StepSize()
	}
	if end < s.state.CurrentTime() {
		return nil, fmt.Errorf("%w: end time %g before current time %g", ErrSequence, end, s.state.CurrentTime())
	}
	var samples []float64
	switch {
	case sampling.Interval > 0:
		start := s.state.CurrentTime()
		for i := 0; ; i++ {
			t := start + float64(i)*sampling.Interval
			if t >= end {
				break
			}
			samples = append(samples, t)
		}
	case len(sampling.Years) > 0:
		samples = append([]float64(nil), sampling.Years...)
		sort.Float64s(samples)
	}
	return &Cursor{sim: s, end: end, samples: samples}, nil
}

// Run drains the simulation to endTime without sampling. It shares the
// cursor's loop, so the final state is identical to exhausting
// Iterate(endTime, Sampling{}, false).
func (s *Simulation) Run(endTime float64) error {
	cur, err := s.Iterate(endTime, Sampling{}, false)
	if err != nil {
		return err
	}
	for cur.Next() {
	}
	return nil
}

// Cursor is a pull-suspended sequence of state snapshots. Each Next
// resumes the loop: it first completes the step that was suspended at
// the previous yield, then advances until the next sample is due or the
// sequence is exhausted. At most one sample is emitted per step, even
// when several sample points fall inside one step.
type Cursor struct {
	sim     *Simulation
	end     float64
	samples []float64
	next    int
	stepDue bool
	state   State
}

// Next advances to the next sample. It returns false once
// currentTime + stepSize would exceed the effective end time.
func (c *Cursor) Next() bool {
	for {
		if c.stepDue {
			c.sim.step()
			c.stepDue = false
		}
		if c.sim.state.CurrentTime()+c.sim.StepSize() > c.end {
			return false
		}
		if c.next < len(c.samples) && c.sim.state.CurrentTime() >= c.samples[c.next] {
			c.next++
			c.stepDue = true
			c.state = c.sim.state
			return true
		}
		c.sim.step()
	}
}

// State returns the snapshot yielded by the last successful Next.
func (c *Cursor) State() State { return c.state }

// consumed reports how many sample points the cursor has emitted.
func (c *Cursor) consumed() int { return c.next }
