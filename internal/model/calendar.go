package model

import "time"

// EventSource tells which data source an event came from.
type EventSource string

const (
	// SourceSchedule marks events from the primary school schedule.
	SourceSchedule EventSource = "schedule"
	// SourcePlan marks supplementary weekly-plan or homework entries.
	SourcePlan EventSource = "plan"
)

// CalendarEvent is a single schedule entry for one child.
// Invariant: Start is never after End; events violating it are dropped
// during normalization.
type CalendarEvent struct {
	ID       string      `json:"id"`
	ChildID  string      `json:"child_id"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Summary  string      `json:"summary"`
	Location string      `json:"location,omitempty"`
	Teacher  string      `json:"teacher,omitempty"`
	Source   EventSource `json:"source"`
}

// DayEvents groups a day's events for display.
type DayEvents struct {
	Date   string          `json:"date"` // YYYY-MM-DD in the configured timezone
	Events []CalendarEvent `json:"events"`
}
