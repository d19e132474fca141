package aula

import (
	"context"
	"encoding/json"
	"time"
)

// calendarStampLayout is the platform's expected request timestamp shape.
// The platform wants midnight boundaries, so callers truncate first.
const calendarStampLayout = "2006-01-02 15:04:05.0000-0700"

// CalendarFetcher retrieves primary-schedule events.
type CalendarFetcher struct {
	session *Session
}

// NewCalendarFetcher creates a new CalendarFetcher.
func NewCalendarFetcher(session *Session) *CalendarFetcher {
	return &CalendarFetcher{session: session}
}

// FetchEvents returns the raw calendar payload for one child between start
// and end. Range validation is the caller's job; this is a thin transport.
func (f *CalendarFetcher) FetchEvents(ctx context.Context, childID string, start, end time.Time) (json.RawMessage, error) {
	body := map[string]any{
		"instProfileIds": []string{childID},
		"resourceIds":    []string{},
		"start":          start.Format(calendarStampLayout),
		"end":            end.Format(calendarStampLayout),
	}
	env, err := f.session.Post(ctx, "calendar.getEventsByProfileIdsAndResourceIds", nil, body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
