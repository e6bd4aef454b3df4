package cmd

import (
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/endgame-sim/endgame-sim/sim"
)

// Built-in demonstration model: a scalar worm-burden population whose
// growth rate and step size come from the installed parameters. It
// exists so the CLI is runnable end to end; real domains supply their
// own sim.Model.

var treatmentSchema = sim.MustSchema("Treatment",
	sim.FloatField("coverage").WithDefault(0.0),
	sim.FloatField("efficacy").WithDefault(0.85).AsReadOnly(),
)

var wormSchema = sim.MustSchema("WormParams",
	sim.IntField("population").WithDefault(1000).AsReadOnly(),
	sim.FloatField("w_rate").WithDefault(0.1),
	sim.FloatField("delta_time").WithDefault(0.2),
	sim.ModelField("treatment", treatmentSchema).WithDefault(map[string]any{}),
)

var wormModel = sim.Model{
	Factory:  wormFactory{},
	Advance:  advanceWorms,
	StepSize: sim.FloatStepSize("delta_time"),
}

type wormState struct {
	time      float64
	prevDelta float64
	params    *sim.ParameterSet
	burden    float64
	steps     int
}

// wormStateDoc is the persisted JSON form of a wormState.
type wormStateDoc struct {
	Time             float64        `json:"time"`
	PreviousStepSize float64        `json:"previous_step_size"`
	Burden           float64        `json:"burden"`
	Steps            int            `json:"steps"`
	Params           map[string]any `json:"params"`
}

func (w *wormState) CurrentTime() float64           { return w.time }
func (w *wormState) SetCurrentTime(t float64)       { w.time = t }
func (w *wormState) PreviousStepSize() float64      { return w.prevDelta }
func (w *wormState) SetPreviousStepSize(dt float64) { w.prevDelta = dt }
func (w *wormState) Params() *sim.ParameterSet      { return w.params }
func (w *wormState) SetParams(p *sim.ParameterSet)  { w.params = p }

func (w *wormState) Persist(out io.Writer) error {
	return json.NewEncoder(out).Encode(wormStateDoc{
		Time:             w.time,
		PreviousStepSize: w.prevDelta,
		Burden:           w.burden,
		Steps:            w.steps,
		Params:           w.params.Canonical(),
	})
}

func (w *wormState) Equal(other sim.State) bool {
	o, ok := other.(*wormState)
	if !ok {
		return false
	}
	return w.time == o.time && w.prevDelta == o.prevDelta &&
		w.burden == o.burden && w.steps == o.steps && w.params.Equal(o.params)
}

type wormFactory struct{}

func (wormFactory) FromParams(params *sim.ParameterSet, startTime float64) (sim.State, error) {
	return &wormState{time: startTime, params: params, burden: 1.0}, nil
}

func (wormFactory) FromPersisted(r io.Reader) (sim.State, error) {
	var doc wormStateDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	params, err := sim.NewParameterSet(wormSchema, doc.Params)
	if err != nil {
		return nil, err
	}
	return &wormState{
		time:      doc.Time,
		prevDelta: doc.PreviousStepSize,
		params:    params,
		burden:    doc.Burden,
		steps:     doc.Steps,
	}, nil
}

// advanceWorms moves the burden by one step: exponential growth at
// w_rate, damped by the active treatment program.
func advanceWorms(s sim.State, debug bool) {
	w := s.(*wormState)
	dt := w.params.Float("delta_time")
	treatment := w.params.Model("treatment")
	growth := w.params.Float("w_rate") * dt * w.burden
	kill := treatment.Float("coverage") * treatment.Float("efficacy") * dt * w.burden
	w.burden += growth - kill
	if w.burden < 0 {
		w.burden = 0
	}
	w.steps++
	if debug {
		logrus.Debugf("[t=%0.6f] burden=%0.6f (growth %0.6f, kill %0.6f)", w.time, w.burden, growth, kill)
	}
}
