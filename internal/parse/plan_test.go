package parse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolegrid/aula-bridge/internal/model"
)

func TestWeeklyPlanBuildsAllWeekEvent(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	monday := time.Date(2024, 4, 29, 0, 0, 0, 0, loc)

	payload := json.RawMessage(`{
		"personer": [{
			"navn": "Alma",
			"ugebreve": [{"uge": "18", "indhold": "<p>Vi arbejder med <b>brøker</b> hele ugen.</p>"}]
		}]
	}`)

	events, warnings, err := WeeklyPlan(payload, "child-1", monday, loc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "ugeplan-child-1-2024-04-29", event.ID)
	assert.Equal(t, model.SourcePlan, event.Source)
	assert.Equal(t, monday, event.Start)
	assert.Equal(t, monday.AddDate(0, 0, 5), event.End)
	assert.Contains(t, event.Summary, "Ugeplan:")
	assert.Contains(t, event.Summary, "brøker")
}

func TestWeeklyPlanReadsInstitutionNestedLetters(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	monday := time.Date(2024, 4, 29, 0, 0, 0, 0, loc)

	payload := json.RawMessage(`{
		"personer": [{
			"institutioner": [{"ugebreve": [{"uge": "18", "indhold": "Emneuge om vand"}]}]
		}]
	}`)

	events, _, err := WeeklyPlan(payload, "child-1", monday, loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Summary, "Emneuge om vand")
}

func TestWeeklyPlanSkipsEmptyLetter(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)
	monday := time.Date(2024, 4, 29, 0, 0, 0, 0, loc)

	payload := json.RawMessage(`{"personer": [{"ugebreve": [{"uge": "18", "indhold": ""}]}]}`)
	events, warnings, err := WeeklyPlan(payload, "child-1", monday, loc)
	require.NoError(t, err)
	assert.Empty(t, events)
	require.Len(t, warnings, 1)
}

func TestHomeworkBuildsDueDateEvents(t *testing.T) {
	t.Parallel()
	loc := copenhagen(t)

	payload := json.RawMessage(`{
		"opgaver": [
			{"id": 55, "title": "Læs kapitel 4", "afleveringsdato": "2024-05-02T08:00:00+0200"},
			{"id": 56, "title": "Uden dato"}
		]
	}`)

	events, warnings, err := Homework(payload, "child-1", loc)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, warnings, 1)

	event := events[0]
	assert.Equal(t, "opgave-55", event.ID)
	assert.Equal(t, "Opgave: Læs kapitel 4", event.Summary)
	assert.Equal(t, model.SourcePlan, event.Source)
	assert.Equal(t, event.Start, event.End)
	assert.Contains(t, warnings[0].Detail, "Uden dato")
}
