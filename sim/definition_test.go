package sim

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
parameters:
  initial:
    w_rate: 0.1
    delta_time: 3
  changes:
    - year: 2020
      month: 1
      params:
        delta_time: 1
    - year: 2022
      params:
        delta_time: 2
programs:
  - first_year: 2020
    last_year: 2022
    interventions:
      coverage: 0.7
  - first_year: 2026
    first_month: 7
    last_year: 2029
    last_month: 6
    interventions:
      - coverage: 0.5
      - coverage: 0.6
`

func TestLoadDefinition_DecodesScenario(t *testing.T) {
	def, err := LoadDefinition(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, 0.1, def.Parameters.Initial["w_rate"])
	require.Len(t, def.Parameters.Changes, 2)
	assert.Equal(t, 2020.0, def.Parameters.Changes[0].Time())
	// omitted month reads as January
	assert.Equal(t, 2022.0, def.Parameters.Changes[1].Time())

	require.Len(t, def.Programs, 2)
	// a single mapping normalizes to a one-element list
	require.Len(t, def.Programs[0].Interventions, 1)
	assert.Equal(t, 0.7, def.Programs[0].Interventions[0]["coverage"])
	require.Len(t, def.Programs[1].Interventions, 2)

	// month defaults: first_month 1, last_month 12
	assert.Equal(t, 2020.0, def.Programs[0].Start())
	assert.InDelta(t, 2022.9167, def.Programs[0].End(), 1e-4)
	assert.Equal(t, 2026.5, def.Programs[1].Start())
}

func TestLoadDefinition_ScalarInterventions_Fails(t *testing.T) {
	_, err := LoadDefinition(strings.NewReader(`
programs:
  - first_year: 2020
    last_year: 2021
    interventions: 5
`))
	require.Error(t, err)
}

func TestChangesConverter_BuildsIncrementalSchedule(t *testing.T) {
	def, err := LoadDefinition(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	schedule, err := ChangesConverter(fixtureSchema)(def)
	require.NoError(t, err)
	require.NoError(t, schedule.validate())

	// THEN one regime per change on top of the initial regime, strictly
	// increasing by activation time
	require.Len(t, schedule, 3)
	assert.Equal(t, 0.0, schedule[0].Start)
	assert.Equal(t, 2020.0, schedule[1].Start)
	assert.Equal(t, 2022.0, schedule[2].Start)

	// AND changes fold incrementally: unmentioned fields carry forward
	assert.Equal(t, 3.0, schedule[0].Params.Float("delta_time"))
	assert.Equal(t, 1.0, schedule[1].Params.Float("delta_time"))
	assert.Equal(t, 2.0, schedule[2].Params.Float("delta_time"))
	assert.Equal(t, 0.1, schedule[2].Params.Float("w_rate"))
}

func TestChangesConverter_WarnsOnCloseMatch(t *testing.T) {
	// GIVEN a change with a misspelled key
	hook := test.NewGlobal()
	defer hook.Reset()

	def := &Definition{Parameters: Parameters{
		Initial: map[string]any{"w_rate": 0.1},
		Changes: []ParameterChange{
			{Year: 2020, Params: map[string]any{"detla_time": 1.0}},
		},
	}}

	schedule, err := ChangesConverter(fixtureSchema)(def)

	// THEN conversion succeeds and the typo is logged as advisory
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	var found bool
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "did you mean") && strings.Contains(entry.Message, "detla_time") {
			found = true
		}
	}
	assert.True(t, found, "expected a close-match warning for detla_time")
}

func TestChangesConverter_InvalidInitial_Fails(t *testing.T) {
	def := &Definition{Parameters: Parameters{
		Initial: map[string]any{"delta_time": "fast"},
	}}

	_, err := ChangesConverter(fixtureSchema)(def)

	require.ErrorIs(t, err, ErrValidation)
}
