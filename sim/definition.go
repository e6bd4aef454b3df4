package sim

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Definition is the declarative multi-regime configuration: initial
// parameters, a list of timed incremental changes, and intervention
// programs. A ConvertFunc turns it into a Schedule; the core treats the
// programs as opaque material for domain converters.
type Definition struct {
	Parameters Parameters `yaml:"parameters"`
	Programs   []Program  `yaml:"programs"`
}

// Parameters holds the initial field map and the ordered incremental
// changes applied on top of it.
type Parameters struct {
	Initial map[string]any    `yaml:"initial"`
	Changes []ParameterChange `yaml:"changes"`
}

// Program describes one intervention program active over a year range.
// A zero FirstMonth reads as January and a zero LastMonth as December.
type Program struct {
	FirstYear     int           `yaml:"first_year"`
	FirstMonth    int           `yaml:"first_month"`
	LastYear      int           `yaml:"last_year"`
	LastMonth     int           `yaml:"last_month"`
	Interventions Interventions `yaml:"interventions"`
}

// Start returns the program's activation time as a fractional year.
func (p Program) Start() float64 {
	month := p.FirstMonth
	if month == 0 {
		month = 1
	}
	return float64(p.FirstYear) + float64(month-1)/12
}

// End returns the program's last active time as a fractional year.
func (p Program) End() float64 {
	month := p.LastMonth
	if month == 0 {
		month = 12
	}
	return float64(p.LastYear) + float64(month-1)/12
}

// Interventions accepts either a single mapping or a sequence of
// mappings in YAML, normalizing both to a list.
type Interventions []map[string]any

func (iv *Interventions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var single map[string]any
		if err := node.Decode(&single); err != nil {
			return err
		}
		*iv = Interventions{single}
		return nil
	case yaml.SequenceNode:
		var list []map[string]any
		if err := node.Decode(&list); err != nil {
			return err
		}
		*iv = Interventions(list)
		return nil
	default:
		return fmt.Errorf("%w: interventions must be a mapping or a sequence of mappings", ErrConfiguration)
	}
}

// LoadDefinition decodes a declarative configuration from YAML.
func LoadDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: decoding definition: %v", ErrConfiguration, err)
	}
	return &def, nil
}

// LoadDefinitionFile decodes a declarative configuration from a file.
func LoadDefinitionFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDefinition(f)
}

// ChangesConverter returns the default ConvertFunc: it validates the
// definition's initial parameters against schema and folds each timed
// change on top of its predecessor, producing one regime per change
// (the initial regime activates at time 0). Keys dropped by validation
// are reported as close-match warnings through the log; they never
// block conversion.
func ChangesConverter(schema *Schema) ConvertFunc {
	return func(def *Definition) (Schedule, error) {
		initial, err := NewParameterSet(schema, def.Parameters.Initial)
		if err != nil {
			return nil, err
		}
		for _, w := range CloseMatchWarnings(def.Parameters.Initial, initial.Canonical(), schema.Name()) {
			logrus.Warn(w)
		}
		schedule := Schedule{{Start: 0, Params: initial}}
		current := initial
		for i, change := range def.Parameters.Changes {
			next, err := ApplyChanges(current, []ParameterChange{change})
			if err != nil {
				return nil, err
			}
			prefix := fmt.Sprintf("%s.changes[%d]", schema.Name(), i)
			for _, w := range CloseMatchWarnings(change.Params, next.Canonical(), prefix) {
				logrus.Warn(w)
			}
			schedule = append(schedule, Regime{Start: change.Time(), Params: next})
			current = next
		}
		return schedule, nil
	}
}
