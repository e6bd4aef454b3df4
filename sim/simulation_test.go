package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulation_BothSources_Fails(t *testing.T) {
	_, err := NewSimulation(SimulationConfig{
		Model:  countingModel(),
		Params: mustParams(t, nil),
		Source: bytes.NewReader(nil),
	})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestNewSimulation_NeitherSource_Fails(t *testing.T) {
	_, err := NewSimulation(SimulationConfig{Model: countingModel()})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestNewSimulation_IncompleteModel_Fails(t *testing.T) {
	_, err := NewSimulation(SimulationConfig{
		Model:  Model{Factory: countingFactory{}},
		Params: mustParams(t, nil),
	})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestSimulation_Run_AdvancesToEnd(t *testing.T) {
	// GIVEN dt=0.2 starting at 0
	s := newCountingSim(t, 0, map[string]any{"delta_time": 0.2})

	require.NoError(t, s.Run(1))

	// THEN the clock lands exactly on 1.0 after 5 steps
	state := s.State().(*countingState)
	assert.Equal(t, 1.0, state.time)
	assert.Equal(t, 5, state.ticks)
	assert.Equal(t, 0.2, state.prev)
}

func TestSimulation_Run_SnapsIntegerTime(t *testing.T) {
	// GIVEN a step size whose accumulation drifts in floating point
	s := newCountingSim(t, 0, map[string]any{"delta_time": 0.1})

	require.NoError(t, s.Run(1))

	// THEN 9-digit rounding snaps the clock onto the exact integer
	state := s.State().(*countingState)
	assert.Equal(t, 1.0, state.time)
	assert.Equal(t, 10, state.ticks)
}

func TestSimulation_Run_EndBeforeCurrent_Fails(t *testing.T) {
	s := newCountingSim(t, 5, map[string]any{"delta_time": 1.0})

	err := s.Run(4)

	require.ErrorIs(t, err, ErrSequence)
}

func TestSimulation_Iterate_ConflictingSampling_Fails(t *testing.T) {
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})

	_, err := s.Iterate(5, Sampling{Interval: 1, Years: []float64{2}}, false)

	require.ErrorIs(t, err, ErrSequence)
}

func TestSimulation_RunEqualsDrainedIterate(t *testing.T) {
	// GIVEN two identical simulations
	raw := map[string]any{"delta_time": 0.3, "w_rate": 0.5}
	a := newCountingSim(t, 1, raw)
	b := newCountingSim(t, 1, raw)

	// WHEN one runs and the other drains an unsampled cursor
	require.NoError(t, a.Run(3.3))
	cur, err := b.Iterate(3.3, Sampling{}, false)
	require.NoError(t, err)
	for cur.Next() {
	}

	// THEN final time and state are identical
	assert.Equal(t, a.CurrentTime(), b.CurrentTime())
	assert.True(t, a.State().Equal(b.State()))
}

func TestSimulation_Iterate_IntervalSamples(t *testing.T) {
	// GIVEN dt=1 from 0 with a 1-year sampling interval
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	cur, err := s.Iterate(5, Sampling{Interval: 1}, false)
	require.NoError(t, err)

	var times []float64
	var ticks []int
	for cur.Next() {
		state := cur.State().(*countingState)
		times = append(times, state.time)
		ticks = append(ticks, state.ticks)
	}

	// THEN each yield is the pre-advance state at the sample point and
	// no snapshot lands at or after the end time
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, times)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ticks)
	assert.Equal(t, 5.0, s.CurrentTime())
}

func TestSimulation_Iterate_InclusiveExtendsEnd(t *testing.T) {
	// GIVEN the same run with inclusive set
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	cur, err := s.Iterate(5, Sampling{Interval: 1}, true)
	require.NoError(t, err)

	var times []float64
	for cur.Next() {
		times = append(times, cur.State().CurrentTime())
	}

	// THEN the sample exactly at the nominal end time is captured
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, times)
	assert.Equal(t, 6.0, s.CurrentTime())
}

func TestSimulation_Iterate_ExplicitYears(t *testing.T) {
	// GIVEN explicit sample years between step boundaries
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	cur, err := s.Iterate(4, Sampling{Years: []float64{2.2, 0.5}}, false)
	require.NoError(t, err)

	var times []float64
	for cur.Next() {
		times = append(times, cur.State().CurrentTime())
	}

	// THEN each year fires at the first step boundary at or past it
	// (the list is sorted internally)
	assert.Equal(t, []float64{1, 3}, times)
}

func TestSimulation_Iterate_CoarseStepSkipsSamples(t *testing.T) {
	// GIVEN a sampling interval finer than the step size
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	cur, err := s.Iterate(3, Sampling{Interval: 0.25}, false)
	require.NoError(t, err)

	count := 0
	for cur.Next() {
		count++
	}

	// THEN at most one sample is emitted per step; the intermediate
	// sample points are silently skipped
	assert.Equal(t, 3, count)
}

func TestSimulation_Iterate_ParamSwapTakesNextStep(t *testing.T) {
	// GIVEN a cursor suspended at its first sample
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	cur, err := s.Iterate(10, Sampling{Years: []float64{0, 0.4}}, false)
	require.NoError(t, err)
	require.True(t, cur.Next())
	require.Equal(t, 0.0, cur.State().CurrentTime())

	// WHEN the installed parameters change during the suspension
	s.SetCurrentParams(mustParams(t, map[string]any{"delta_time": 0.5}))

	// THEN the step completing on resume already uses the new size
	require.True(t, cur.Next())
	assert.Equal(t, 0.5, cur.State().CurrentTime())
	assert.Equal(t, 0.5, cur.State().PreviousStepSize())
}

func TestSimulation_Iterate_NegativeInterval_Fails(t *testing.T) {
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})

	_, err := s.Iterate(5, Sampling{Interval: -1}, false)

	require.ErrorIs(t, err, ErrSequence)
}

func TestSimulation_FreshIterateContinues(t *testing.T) {
	// GIVEN a drained cursor
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})
	require.NoError(t, s.Run(3))

	// WHEN a fresh iteration is constructed
	cur, err := s.Iterate(5, Sampling{Interval: 1}, false)
	require.NoError(t, err)

	var times []float64
	for cur.Next() {
		times = append(times, cur.State().CurrentTime())
	}

	// THEN it continues from the current time, not the start
	assert.Equal(t, []float64{3, 4}, times)
}

func TestSimulation_PersistRestore_Equal(t *testing.T) {
	// GIVEN a simulation mid-run
	a := newCountingSim(t, 0, map[string]any{"delta_time": 0.5, "w_rate": 0.3})
	require.NoError(t, a.Run(4))

	var buf bytes.Buffer
	require.NoError(t, a.Persist(&buf))

	// WHEN restored from the persisted form
	b, err := NewSimulation(SimulationConfig{Model: countingModel(), Source: &buf})
	require.NoError(t, err)

	// THEN the restored state equals the original and both continue
	// along the same trajectory
	require.True(t, a.State().Equal(b.State()))
	require.NoError(t, a.Run(8))
	require.NoError(t, b.Run(8))
	assert.True(t, a.State().Equal(b.State()))
}

func TestSimulation_StepAnnouncement(t *testing.T) {
	s := newCountingSim(t, 0, map[string]any{"delta_time": 1.0})

	_, ok := s.PendingStepSize()
	assert.False(t, ok)

	s.AnnounceStepSize(0.25)
	dt, ok := s.PendingStepSize()
	assert.True(t, ok)
	assert.Equal(t, 0.25, dt)

	// the announcement never changes the current segment's step size
	require.NoError(t, s.Run(2))
	assert.Equal(t, 1.0, s.State().PreviousStepSize())

	s.ClearStepAnnouncement()
	_, ok = s.PendingStepSize()
	assert.False(t, ok)
}
