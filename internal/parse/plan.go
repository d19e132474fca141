package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// schoolWeekDays is the span of an all-week plan entry.
const schoolWeekDays = 5

type ugebrev struct {
	Uge     string `json:"uge"`
	Indhold string `json:"indhold"`
}

// WeeklyPlan normalizes a MinUddannelse weekly-letter payload into
// supplementary all-week events anchored at weekStart. Letters appear both
// directly on a person and nested under institutions, depending on the
// school's setup; both shapes are read.
func WeeklyPlan(payload json.RawMessage, childID string, weekStart time.Time, loc *time.Location) ([]model.CalendarEvent, Warnings, error) {
	var doc struct {
		Personer []struct {
			Navn          string    `json:"navn"`
			Ugebreve      []ugebrev `json:"ugebreve"`
			Institutioner []struct {
				Ugebreve []ugebrev `json:"ugebreve"`
			} `json:"institutioner"`
		} `json:"personer"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode weekly plan payload: %w", err)
	}

	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, schoolWeekDays)

	var warnings Warnings
	var events []model.CalendarEvent
	appendLetter := func(letter ugebrev) {
		text := htmlToText(letter.Indhold)
		if text == "" {
			warnings.Addf("ugeplan", "skipped empty weekly letter for week %s", letter.Uge)
			return
		}
		events = append(events, model.CalendarEvent{
			ID:      fmt.Sprintf("ugeplan-%s-%s", childID, start.Format("2006-01-02")),
			ChildID: childID,
			Start:   start,
			End:     end,
			Summary: "Ugeplan: " + excerpt(text),
			Source:  model.SourcePlan,
		})
	}

	for _, person := range doc.Personer {
		for _, letter := range person.Ugebreve {
			appendLetter(letter)
		}
		for _, inst := range person.Institutioner {
			for _, letter := range inst.Ugebreve {
				appendLetter(letter)
			}
		}
	}
	return events, warnings, nil
}

// Homework normalizes a MinUddannelse task-list payload into supplementary
// events at each task's due time. Tasks without a readable due date are
// skipped with a warning.
func Homework(payload json.RawMessage, childID string, loc *time.Location) ([]model.CalendarEvent, Warnings, error) {
	var doc struct {
		Opgaver []struct {
			ID         flexID `json:"id"`
			Title      string `json:"title"`
			Kommentar  string `json:"kommentar"`
			Aflevering string `json:"afleveringsdato"`
		} `json:"opgaver"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode homework payload: %w", err)
	}

	var warnings Warnings
	events := make([]model.CalendarEvent, 0, len(doc.Opgaver))
	for _, task := range doc.Opgaver {
		due, err := parseStamp(task.Aflevering, loc)
		if err != nil {
			warnings.Addf("mu_opgaver", "skipped task %q: %v", task.Title, err)
			continue
		}
		summary := task.Title
		if summary == "" {
			summary = excerpt(htmlToText(task.Kommentar))
		}
		events = append(events, model.CalendarEvent{
			ID:      "opgave-" + task.ID.String(),
			ChildID: childID,
			Start:   due,
			End:     due,
			Summary: "Opgave: " + summary,
			Source:  model.SourcePlan,
		})
	}
	return events, warnings, nil
}
