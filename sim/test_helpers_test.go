package sim

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared fixtures: a small schema with a read-only scalar and a nested
// model, and a counting state whose advance just ticks.

var fixtureTreatment = MustSchema("Treatment",
	FloatField("coverage").WithDefault(0.5),
	FloatField("locked").WithDefault(1.0).AsReadOnly(),
)

var fixtureSchema = MustSchema("Params",
	FloatField("w_rate").WithDefault(0.1),
	FloatField("delta_time").WithDefault(0.2),
	IntField("seed").WithDefault(42).AsReadOnly(),
	ModelField("treatment", fixtureTreatment).WithDefault(map[string]any{}),
)

type countingState struct {
	time   float64
	prev   float64
	params *ParameterSet
	ticks  int
}

type countingStateDoc struct {
	Time   float64        `json:"time"`
	Prev   float64        `json:"prev"`
	Ticks  int            `json:"ticks"`
	Params map[string]any `json:"params"`
}

func (s *countingState) CurrentTime() float64           { return s.time }
func (s *countingState) SetCurrentTime(t float64)       { s.time = t }
func (s *countingState) PreviousStepSize() float64      { return s.prev }
func (s *countingState) SetPreviousStepSize(dt float64) { s.prev = dt }
func (s *countingState) Params() *ParameterSet          { return s.params }
func (s *countingState) SetParams(p *ParameterSet)      { s.params = p }

func (s *countingState) Persist(w io.Writer) error {
	return json.NewEncoder(w).Encode(countingStateDoc{
		Time:   s.time,
		Prev:   s.prev,
		Ticks:  s.ticks,
		Params: s.params.Canonical(),
	})
}

func (s *countingState) Equal(other State) bool {
	o, ok := other.(*countingState)
	if !ok {
		return false
	}
	return s.time == o.time && s.prev == o.prev && s.ticks == o.ticks && s.params.Equal(o.params)
}

type countingFactory struct{}

func (countingFactory) FromParams(params *ParameterSet, startTime float64) (State, error) {
	return &countingState{time: startTime, params: params}, nil
}

func (countingFactory) FromPersisted(r io.Reader) (State, error) {
	var doc countingStateDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	params, err := NewParameterSet(fixtureSchema, doc.Params)
	if err != nil {
		return nil, err
	}
	return &countingState{time: doc.Time, prev: doc.Prev, ticks: doc.Ticks, params: params}, nil
}

func advanceCounting(s State, debug bool) {
	s.(*countingState).ticks++
}

func countingModel() Model {
	return Model{
		Factory:  countingFactory{},
		Advance:  advanceCounting,
		StepSize: FloatStepSize("delta_time"),
	}
}

func mustParams(t *testing.T, raw map[string]any) *ParameterSet {
	t.Helper()
	p, err := NewParameterSet(fixtureSchema, raw)
	require.NoError(t, err)
	return p
}

func newCountingSim(t *testing.T, startTime float64, raw map[string]any) *Simulation {
	t.Helper()
	s, err := NewSimulation(SimulationConfig{
		Model:     countingModel(),
		StartTime: startTime,
		Params:    mustParams(t, raw),
	})
	require.NoError(t, err)
	return s
}
