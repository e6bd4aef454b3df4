package sim

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// checkpointDoc is the logical layout of a persisted Endgame: the inner
// state's opaque serialized form, the schedule as an ordered list of
// (time, field-map) pairs, and the index of the first entry not yet
// installed. Encoded as one YAML document; the state bytes ride along
// as a !!binary scalar.
type checkpointDoc struct {
	State     []byte      `yaml:"state"`
	Schedule  []regimeDoc `yaml:"schedule"`
	NextIndex int         `yaml:"next_index"`
}

type regimeDoc struct {
	Time   float64        `yaml:"time"`
	Params map[string]any `yaml:"params"`
}

// checkpoint is the decoded, re-validated form of a checkpointDoc.
type checkpoint struct {
	state     []byte
	schedule  Schedule
	nextIndex int
}

func (ck *checkpoint) stateReader() io.Reader { return bytes.NewReader(ck.state) }

// Persist writes the controller as one logical unit: inner state bytes,
// portable schedule, and nextIndex. All sections are written before the
// encoder is closed; partial output only occurs if the writer itself
// fails mid-way.
func (e *Endgame) Persist(w io.Writer) error {
	var state bytes.Buffer
	if err := e.sim.Persist(&state); err != nil {
		return fmt.Errorf("persisting inner state: %w", err)
	}
	doc := checkpointDoc{
		State:     state.Bytes(),
		Schedule:  make([]regimeDoc, len(e.schedule)),
		NextIndex: e.nextIndex,
	}
	for i, r := range e.schedule {
		doc.Schedule[i] = regimeDoc{Time: r.Start, Params: r.Params.Canonical()}
	}
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(&doc); err != nil {
		enc.Close()
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return enc.Close()
}

// SaveFile persists the controller to path. The file is created, fully
// written, and closed on every exit path.
func (e *Endgame) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.Persist(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RestoreEndgameFile restores a controller from a checkpoint file. The
// config's Definition and Source fields are ignored; everything else
// (model, converter, schema) must be supplied as for NewEndgame.
func RestoreEndgameFile(path string, cfg EndgameConfig) (*Endgame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg.Definition = nil
	cfg.Source = f
	return NewEndgame(cfg)
}

// readCheckpoint decodes a checkpoint and re-validates every schedule
// entry's field map against the declared schema.
func readCheckpoint(r io.Reader, schema *Schema) (*checkpoint, error) {
	var doc checkpointDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding checkpoint: %v", ErrConfiguration, err)
	}
	schedule := make(Schedule, len(doc.Schedule))
	for i, rd := range doc.Schedule {
		params, err := NewParameterSet(schema, rd.Params)
		if err != nil {
			return nil, fmt.Errorf("checkpoint schedule entry %d: %w", i, err)
		}
		schedule[i] = Regime{Start: rd.Time, Params: params}
	}
	if err := schedule.validate(); err != nil {
		return nil, err
	}
	if doc.NextIndex < 0 || doc.NextIndex > len(schedule) {
		return nil, fmt.Errorf("%w: checkpoint next_index %d out of range for %d schedule entries",
			ErrConfiguration, doc.NextIndex, len(schedule))
	}
	return &checkpoint{state: doc.State, schedule: schedule, nextIndex: doc.NextIndex}, nil
}
