package parse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skolegrid/aula-bridge/internal/model"
)

// CalendarEvents normalizes the raw calendar payload for one child. Events
// with unparseable timestamps, or whose start lies after their end, are
// dropped with a warning instead of failing the batch.
func CalendarEvents(payload json.RawMessage, childID string, loc *time.Location) ([]model.CalendarEvent, Warnings, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, nil, fmt.Errorf("decode calendar payload: %w", err)
	}

	var warnings Warnings
	events := make([]model.CalendarEvent, 0, len(docs))
	for _, raw := range docs {
		event, err := oneEvent(raw, childID, loc)
		if err != nil {
			warnings.Addf("calendar", "skipped event: %v", err)
			continue
		}
		events = append(events, event)
	}
	return events, warnings, nil
}

func oneEvent(raw json.RawMessage, childID string, loc *time.Location) (model.CalendarEvent, error) {
	var doc struct {
		ID              flexID `json:"id"`
		Title           string `json:"title"`
		Type            string `json:"type"`
		StartDateTime   string `json:"startDateTime"`
		EndDateTime     string `json:"endDateTime"`
		PrimaryResource *struct {
			Name string `json:"name"`
		} `json:"primaryResource"`
		Lesson *struct {
			Participants []struct {
				ParticipantRole string `json:"participantRole"`
				TeacherName     string `json:"teacherName"`
				TeacherInitials string `json:"teacherInitials"`
			} `json:"participants"`
		} `json:"lesson"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.CalendarEvent{}, err
	}

	start, err := parseStamp(doc.StartDateTime, loc)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("event %q: start: %v", doc.Title, err)
	}
	end, err := parseStamp(doc.EndDateTime, loc)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("event %q: end: %v", doc.Title, err)
	}
	if start.After(end) {
		return model.CalendarEvent{}, fmt.Errorf("event %q: start after end", doc.Title)
	}

	event := model.CalendarEvent{
		ID:      doc.ID.String(),
		ChildID: childID,
		Start:   start,
		End:     end,
		Summary: doc.Title,
		Source:  model.SourceSchedule,
	}
	if doc.PrimaryResource != nil {
		event.Location = doc.PrimaryResource.Name
	}
	if doc.Lesson != nil {
		event.Teacher = teacherLabel(doc.Lesson.Participants)
	}
	if event.Teacher != "" {
		event.Summary = event.Summary + ", " + event.Teacher
	}
	return event, nil
}

// teacherLabel picks the substitute teacher when one is scheduled, otherwise
// the first teacher's initials or name.
func teacherLabel(participants []struct {
	ParticipantRole string `json:"participantRole"`
	TeacherName     string `json:"teacherName"`
	TeacherInitials string `json:"teacherInitials"`
}) string {
	for _, p := range participants {
		if p.ParticipantRole == "substituteTeacher" && p.TeacherName != "" {
			return "VIKAR: " + p.TeacherName
		}
	}
	for _, p := range participants {
		if p.TeacherInitials != "" {
			return p.TeacherInitials
		}
		if p.TeacherName != "" {
			return p.TeacherName
		}
	}
	return ""
}
