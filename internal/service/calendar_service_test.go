package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/aula/aulatest"
	"github.com/skolegrid/aula-bridge/internal/model"
)

const calendarMethod = "calendar.getEventsByProfileIdsAndResourceIds"

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Copenhagen")
	require.NoError(t, err)
	return loc
}

func newCalendarHarness(t *testing.T, opts CalendarOptions) (*aulatest.Platform, *CalendarService) {
	t.Helper()

	p := aulatest.New(t, "guardian", "hemmeligt", 20)
	s := aula.NewSession(aula.Options{
		Username:   "guardian",
		Password:   "hemmeligt",
		LoginURL:   p.LoginURL(),
		APIBase:    p.APIBase(),
		PortalURL:  p.PortalURL(),
		// Point the widget API at an unhandled path so supplementary
		// sources fail fast instead of leaving the test host.
		MinUddannelseAPI: p.API.URL + "/mu",
		APIVersion:       20,
		Timeout:          5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(s.Close)

	svc := NewCalendarService(aula.NewCalendarFetcher(s), aula.NewPlanFetcher(s), opts, zerolog.Nop())
	return p, svc
}

func fixedNow(t *testing.T, svc *CalendarService, stamp string) {
	t.Helper()
	loc := testLocation(t)
	at, err := time.ParseInLocation("2006-01-02T15:04:05", stamp, loc)
	require.NoError(t, err)
	svc.now = func() time.Time { return at }
}

func TestEventsForDaysRejectsNonPositiveDays(t *testing.T) {
	t.Parallel()

	// Nil fetchers: the validation must fire before anything touches them.
	svc := NewCalendarService(nil, nil, CalendarOptions{SchoolSchedule: true}, zerolog.Nop())

	for _, days := range []int{0, -3} {
		_, _, err := svc.EventsForDays(context.Background(), model.Child{ID: "child-1"}, days)
		require.Error(t, err)
		assert.ErrorIs(t, err, aula.ErrInvalidRange)
	}
}

func TestEventsForRangeRejectsInvertedRange(t *testing.T) {
	t.Parallel()

	svc := NewCalendarService(nil, nil, CalendarOptions{SchoolSchedule: true}, zerolog.Nop())

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	_, _, err := svc.EventsForRange(context.Background(), model.Child{ID: "child-1"}, start, end)
	require.Error(t, err)
	assert.ErrorIs(t, err, aula.ErrInvalidRange)
}

func TestEventsForDaysFiltersOnWindow(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	p, svc := newCalendarHarness(t, CalendarOptions{
		SchoolSchedule: true,
		DefaultDays:    7,
		Location:       loc,
	})
	fixedNow(t, svc, "2024-01-01T12:00:00")

	p.SetPayload(calendarMethod, `[
		{"id": 1, "title": "I dag", "startDateTime": "2024-01-01T08:00:00+0100",
		 "endDateTime": "2024-01-01T08:45:00+0100"},
		{"id": 2, "title": "Midt i ugen", "startDateTime": "2024-01-03T10:00:00+0100",
		 "endDateTime": "2024-01-03T10:45:00+0100"},
		{"id": 3, "title": "For sent", "startDateTime": "2024-01-10T08:00:00+0100",
		 "endDateTime": "2024-01-10T08:45:00+0100"},
		{"id": 4, "title": "I går", "startDateTime": "2023-12-31T08:00:00+0100",
		 "endDateTime": "2023-12-31T08:45:00+0100"}
	]`)

	events, warnings, err := svc.EventsForDays(context.Background(), model.Child{ID: "child-1"}, 7)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, events, 2, "only events starting inside [today, today+7) survive")
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, "2", events[1].ID)
}

func TestEventsForRangeIncludesEndDate(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	p, svc := newCalendarHarness(t, CalendarOptions{
		SchoolSchedule: true,
		DefaultDays:    7,
		Location:       loc,
	})

	p.SetPayload(calendarMethod, `[
		{"id": 1, "title": "Sidste aften", "startDateTime": "2024-01-07T23:00:00+0100",
		 "endDateTime": "2024-01-07T23:30:00+0100"},
		{"id": 2, "title": "Dagen efter", "startDateTime": "2024-01-08T08:00:00+0100",
		 "endDateTime": "2024-01-08T08:45:00+0100"}
	]`)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 7, 0, 0, 0, 0, loc)
	events, _, err := svc.EventsForRange(context.Background(), model.Child{ID: "child-1"}, start, end)
	require.NoError(t, err)
	require.Len(t, events, 1, "the end date itself is inclusive, the day after is not")
	assert.Equal(t, "1", events[0].ID)
}

func TestSupplementarySourceFailureDegradesToWarning(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	p, svc := newCalendarHarness(t, CalendarOptions{
		SchoolSchedule: true,
		Ugeplan:        true,
		DefaultDays:    7,
		Location:       loc,
	})
	fixedNow(t, svc, "2024-01-01T12:00:00")

	p.SetPayload(calendarMethod, `[
		{"id": 1, "title": "Matematik", "startDateTime": "2024-01-02T08:00:00+0100",
		 "endDateTime": "2024-01-02T08:45:00+0100"}
	]`)
	// The fake platform never answers the widget token method, so the
	// weekly-plan source fails while the schedule still comes through.

	child := model.Child{ID: "child-1", UserID: "alma0001"}
	events, warnings, err := svc.EventsForDays(context.Background(), child, 7)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, warnings, "dead supplementary source must surface as a warning")
}

func TestGroupByDayBucketsChronologically(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	svc := NewCalendarService(nil, nil, CalendarOptions{Location: loc}, zerolog.Nop())

	events := []model.CalendarEvent{
		{ID: "1", Start: time.Date(2024, 1, 2, 8, 0, 0, 0, loc)},
		{ID: "2", Start: time.Date(2024, 1, 2, 10, 0, 0, 0, loc)},
		{ID: "3", Start: time.Date(2024, 1, 3, 8, 0, 0, 0, loc)},
	}

	days := svc.GroupByDay(events)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-01-02", days[0].Date)
	require.Len(t, days[0].Events, 2)
	assert.Equal(t, "2024-01-03", days[1].Date)
	require.Len(t, days[1].Events, 1)
}

func TestSummaryLineFormatsEvent(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	svc := NewCalendarService(nil, nil, CalendarOptions{Location: loc}, zerolog.Nop())

	line := svc.SummaryLine(model.CalendarEvent{
		Start:    time.Date(2024, 1, 2, 8, 0, 0, 0, loc),
		End:      time.Date(2024, 1, 2, 8, 45, 0, 0, loc),
		Summary:  "Matematik, AB",
		Location: "Lokale 3",
	})
	assert.Equal(t, "2024-01-02 08:00–08:45 Matematik, AB (Lokale 3)", line)
}
