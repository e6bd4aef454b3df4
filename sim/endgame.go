package sim

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Regime pairs an activation time with the parameter set active from
// that time until the next regime's activation.
type Regime struct {
	Start  float64
	Params *ParameterSet
}

// Schedule is an ordered, non-empty list of regimes with strictly
// increasing activation times.
type Schedule []Regime

func (sch Schedule) validate() error {
	if len(sch) == 0 {
		return fmt.Errorf("%w: schedule is empty", ErrConfiguration)
	}
	for i, r := range sch {
		if r.Params == nil {
			return fmt.Errorf("%w: schedule entry %d has no parameters", ErrConfiguration, i)
		}
		if i > 0 && sch[i].Start <= sch[i-1].Start {
			return fmt.Errorf("%w: schedule activation times must be strictly increasing (entry %d: %g after %g)",
				ErrConfiguration, i, sch[i].Start, sch[i-1].Start)
		}
	}
	return nil
}

// activeIndex returns the index of the entry with the greatest
// activation time <= t. When t precedes the first activation the first
// regime is treated as active from the beginning of time.
func (sch Schedule) activeIndex(t float64) int {
	active := 0
	for i, r := range sch {
		if r.Start <= t {
			active = i
		}
	}
	return active
}

// ConvertFunc turns a declarative multi-regime definition into a
// Schedule. It must be pure and produce a non-empty schedule with
// strictly increasing activation times.
type ConvertFunc func(def *Definition) (Schedule, error)

// EndgameConfig configures an Endgame controller. Exactly one of
// Definition (a fresh declarative configuration, converted via Convert)
// or Source (a persisted checkpoint) must be set. Schema is required
// for the Source path to re-validate the persisted schedule.
type EndgameConfig struct {
	Model      Model
	Convert    ConvertFunc
	Schema     *Schema
	StartTime  float64
	Definition *Definition
	Source     io.Reader
	Verbose    bool
	Debug      bool
}

// Endgame drives an inner Simulation through a Schedule of parameter
// regimes, keeping the installed parameter set in sync with simulated
// time. nextIndex is the first schedule entry not yet installed.
type Endgame struct {
	sim       *Simulation
	model     Model
	convert   ConvertFunc
	schedule  Schedule
	nextIndex int
	verbose   bool
	debug     bool
}

// NewEndgame builds the controller. With a Definition, the converter
// produces the schedule, the entry active at StartTime is installed
// into a fresh inner simulation, and nextIndex points right after it.
// With a Source, the inner state, the schedule, and nextIndex are
// restored verbatim.
func NewEndgame(cfg EndgameConfig) (*Endgame, error) {
	if err := cfg.Model.validate(); err != nil {
		return nil, err
	}
	if (cfg.Definition != nil) == (cfg.Source != nil) {
		return nil, fmt.Errorf("%w: exactly one of Definition or Source must be set", ErrConfiguration)
	}
	e := &Endgame{model: cfg.Model, convert: cfg.Convert, verbose: cfg.Verbose, debug: cfg.Debug}

	if cfg.Definition != nil {
		if cfg.Convert == nil {
			return nil, fmt.Errorf("%w: a Definition requires a Convert function", ErrConfiguration)
		}
		schedule, err := cfg.Convert(cfg.Definition)
		if err != nil {
			return nil, err
		}
		if err := schedule.validate(); err != nil {
			return nil, err
		}
		active := schedule.activeIndex(cfg.StartTime)
		inner, err := NewSimulation(SimulationConfig{
			Model:     cfg.Model,
			StartTime: cfg.StartTime,
			Params:    schedule[active].Params,
			Verbose:   cfg.Verbose,
			Debug:     cfg.Debug,
		})
		if err != nil {
			return nil, err
		}
		e.sim = inner
		e.schedule = schedule
		e.nextIndex = active + 1
		return e, nil
	}

	if cfg.Schema == nil {
		return nil, fmt.Errorf("%w: restoring from a checkpoint requires a Schema", ErrConfiguration)
	}
	ck, err := readCheckpoint(cfg.Source, cfg.Schema)
	if err != nil {
		return nil, err
	}
	inner, err := NewSimulation(SimulationConfig{
		Model:   cfg.Model,
		Source:  ck.stateReader(),
		Verbose: cfg.Verbose,
		Debug:   cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	e.sim = inner
	e.schedule = ck.schedule
	e.nextIndex = ck.nextIndex
	return e, nil
}

// Simulation returns the inner controller.
func (e *Endgame) Simulation() *Simulation { return e.sim }

// CurrentTime returns the inner state's simulated time.
func (e *Endgame) CurrentTime() float64 { return e.sim.CurrentTime() }

// CurrentParams returns the inner controller's installed parameters.
func (e *Endgame) CurrentParams() *ParameterSet { return e.sim.CurrentParams() }

// Schedule returns the owned schedule.
func (e *Endgame) Schedule() Schedule { return e.schedule }

// NextIndex returns the index of the first schedule entry not yet
// installed.
func (e *Endgame) NextIndex() int { return e.nextIndex }

// Reseed replaces the schedule mid-run from a fresh definition. The
// entry active at the current simulated time is installed into the
// running inner controller immediately and nextIndex is updated.
func (e *Endgame) Reseed(def *Definition) error {
	if e.convert == nil {
		return fmt.Errorf("%w: controller has no Convert function", ErrConfiguration)
	}
	schedule, err := e.convert(def)
	if err != nil {
		return err
	}
	if err := schedule.validate(); err != nil {
		return err
	}
	active := schedule.activeIndex(e.sim.CurrentTime())
	for _, msg := range ReadOnlyDifferences(e.sim.CurrentParams(), schedule[active].Params) {
		logrus.Warn(msg)
	}
	e.schedule = schedule
	e.sim.SetCurrentParams(schedule[active].Params)
	e.nextIndex = active + 1
	return nil
}

// installNext installs the parameters of the next schedule entry into
// the inner controller and advances nextIndex. Read-only violations
// between the outgoing and incoming sets are logged as warnings.
func (e *Endgame) installNext() {
	r := e.schedule[e.nextIndex]
	for _, msg := range ReadOnlyDifferences(e.sim.CurrentParams(), r.Params) {
		logrus.Warn(msg)
	}
	if e.verbose {
		logrus.Infof("[t=%0.6f] installing regime %d (activation %g)", e.sim.CurrentTime(), e.nextIndex, r.Start)
	}
	e.sim.SetCurrentParams(r.Params)
	e.nextIndex++
}

// Run drains the controller to endTime without sampling.
func (e *Endgame) Run(endTime float64) error {
	cur, err := e.Iterate(endTime, Sampling{})
	if err != nil {
		return err
	}
	for cur.Next() {
	}
	return cur.Err()
}

// Iterate returns a pull cursor over sampled states up to endTime,
// crossing regime boundaries as it goes. Every sample of every inner
// segment is re-yielded.
func (e *Endgame) Iterate(endTime float64, sampling Sampling) (*EndgameCursor, error) {
	if err := sampling.validate(); err != nil {
		return nil, err
	}
	if endTime < e.sim.CurrentTime() {
		return nil, fmt.Errorf("%w: end time %g before current time %g", ErrSequence, endTime, e.sim.CurrentTime())
	}
	c := &EndgameCursor{e: e, end: endTime, interval: sampling.Interval}
	if len(sampling.Years) > 0 {
		// kept sorted so spent years can be trimmed off the front as
		// inner segments consume them
		c.years = append([]float64(nil), sampling.Years...)
		sort.Float64s(c.years)
	}
	return c, nil
}

// EndgameCursor pulls sampled states across regime boundaries. Each
// segment runs the inner controller to the next stop (the nearer of
// endTime and the next activation time); once the segment is drained,
// the pending regime (if any) is installed and the loop continues.
// Invariant at the top of every segment: the installed parameter set is
// the schedule entry active at the inner controller's current time.
type EndgameCursor struct {
	e        *Endgame
	end      float64
	interval float64
	years    []float64

	inner      *Cursor
	hasPending bool
	state      State
	err        error
	done       bool
}

// Next advances to the next sample. It returns false when endTime has
// been reached as closely as the step size allows, or on error (see Err).
func (c *EndgameCursor) Next() bool {
	if c.done {
		return false
	}
	for {
		if c.inner != nil {
			if c.inner.Next() {
				c.state = c.inner.State()
				return true
			}
			// segment drained: explicit years it consumed are spent
			if n := c.inner.consumed(); n > 0 && len(c.years) > 0 {
				c.years = c.years[n:]
			}
			c.inner = nil
			if !c.hasPending {
				// no further boundary can change the step size, so the
				// inner loop got as close to end as it ever will
				c.done = true
				return false
			}
			c.e.installNext()
			c.hasPending = false
		}

		if c.e.sim.CurrentTime() >= c.end {
			c.done = true
			return false
		}

		nextStop := c.end
		c.hasPending = false
		if c.e.nextIndex < len(c.e.schedule) {
			pending := c.e.schedule[c.e.nextIndex]
			if pending.Start < c.end {
				nextStop = pending.Start
				c.hasPending = true
			}
		}
		if c.hasPending {
			pending := c.e.schedule[c.e.nextIndex]
			if dt := c.e.model.StepSize(pending.Params); dt != c.e.sim.StepSize() {
				c.e.sim.AnnounceStepSize(dt)
			} else {
				c.e.sim.ClearStepAnnouncement()
			}
		} else {
			c.e.sim.ClearStepAnnouncement()
		}

		inner, err := c.e.sim.Iterate(nextStop, Sampling{Interval: c.interval, Years: c.years}, false)
		if err != nil {
			c.err = err
			c.done = true
			return false
		}
		c.inner = inner
	}
}

// State returns the snapshot yielded by the last successful Next.
func (c *EndgameCursor) State() State { return c.state }

// Err returns the error that terminated the cursor, if any.
func (c *EndgameCursor) Err() error { return c.err }
