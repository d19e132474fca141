package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/model"
	"github.com/skolegrid/aula-bridge/internal/parse"
)

// maxPlanWeeks caps how many ISO weeks of supplementary data are pulled for
// one window, however wide the caller makes it.
const maxPlanWeeks = 8

// CalendarOptions selects the calendar sources and defaults.
type CalendarOptions struct {
	SchoolSchedule bool
	Ugeplan        bool
	MUOpgaver      bool
	DefaultDays    int
	Location       *time.Location
}

// CalendarService is the query facade over the primary schedule and the
// supplementary plan sources. Range validation happens here, before any
// network traffic; merging appends supplementary entries without
// deduplicating them against the primary schedule.
type CalendarService struct {
	events *aula.CalendarFetcher
	plans  *aula.PlanFetcher
	opts   CalendarOptions
	log    zerolog.Logger
	now    func() time.Time
}

// NewCalendarService creates a new CalendarService.
func NewCalendarService(events *aula.CalendarFetcher, plans *aula.PlanFetcher, opts CalendarOptions, log zerolog.Logger) *CalendarService {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &CalendarService{
		events: events,
		plans:  plans,
		opts:   opts,
		log:    log.With().Str("component", "calendar_service").Logger(),
		now:    time.Now,
	}
}

// DefaultDays returns the configured default window width.
func (s *CalendarService) DefaultDays() int { return s.opts.DefaultDays }

// EventsForDays returns events whose start falls in [today, today+days),
// end-exclusive, in the configured timezone. days must be positive.
func (s *CalendarService) EventsForDays(ctx context.Context, child model.Child, days int) ([]model.CalendarEvent, parse.Warnings, error) {
	if days <= 0 {
		return nil, nil, fmt.Errorf("%w: days must be positive, got %d", aula.ErrInvalidRange, days)
	}
	today := midnight(s.now().In(s.opts.Location))
	return s.eventsInWindow(ctx, child, today, today.AddDate(0, 0, days))
}

// EventsForRange returns events whose start falls on any date from start
// through end, both inclusive. start must not be after end; violation is
// reported before any network call.
func (s *CalendarService) EventsForRange(ctx context.Context, child model.Child, start, end time.Time) ([]model.CalendarEvent, parse.Warnings, error) {
	from := midnight(start.In(s.opts.Location))
	to := midnight(end.In(s.opts.Location))
	if from.After(to) {
		return nil, nil, fmt.Errorf("%w: start %s after end %s", aula.ErrInvalidRange,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	// Inclusive end date → exclusive window boundary one day later.
	return s.eventsInWindow(ctx, child, from, to.AddDate(0, 0, 1))
}

// eventsInWindow fetches every enabled source, merges, filters on event
// start and sorts chronologically. Supplementary source failures degrade to
// warnings; only the primary schedule can fail the call.
func (s *CalendarService) eventsInWindow(ctx context.Context, child model.Child, from, to time.Time) ([]model.CalendarEvent, parse.Warnings, error) {
	var merged []model.CalendarEvent
	var warnings parse.Warnings

	if s.opts.SchoolSchedule {
		payload, err := s.events.FetchEvents(ctx, child.ID, from, to)
		if err != nil {
			return nil, warnings, err
		}
		events, warns, err := parse.CalendarEvents(payload, child.ID, s.opts.Location)
		if err != nil {
			return nil, warnings, fmt.Errorf("%w: %v", aula.ErrTransport, err)
		}
		merged = append(merged, events...)
		warnings = append(warnings, warns...)
	}

	if s.opts.Ugeplan || s.opts.MUOpgaver {
		planEvents, planWarns := s.supplementaryEvents(ctx, child, from, to)
		merged = append(merged, planEvents...)
		warnings = append(warnings, planWarns...)
	}

	filtered := merged[:0]
	for _, event := range merged {
		if !event.Start.Before(from) && event.Start.Before(to) {
			filtered = append(filtered, event)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Start.Before(filtered[j].Start) })
	return filtered, warnings, nil
}

// supplementaryEvents pulls weekly plans and homework for every ISO week
// overlapping the window. These sources are best effort: a dead widget
// back-end produces warnings, never an error.
func (s *CalendarService) supplementaryEvents(ctx context.Context, child model.Child, from, to time.Time) ([]model.CalendarEvent, parse.Warnings) {
	var events []model.CalendarEvent
	var warnings parse.Warnings

	if child.UserID == "" {
		warnings.Addf("plan", "child %s has no platform user id, skipping supplementary sources", child.ID)
		return nil, warnings
	}

	weeks := 0
	for monday := mondayOf(from); monday.Before(to) && weeks < maxPlanWeeks; monday = monday.AddDate(0, 0, 7) {
		weeks++
		isoWeek := isoWeekString(monday)

		if s.opts.Ugeplan {
			payload, err := s.plans.FetchWeeklyPlan(ctx, child.UserID, isoWeek)
			if err != nil {
				warnings.Addf("ugeplan", "week %s: %v", isoWeek, err)
			} else if planEvents, warns, err := parse.WeeklyPlan(payload, child.ID, monday, s.opts.Location); err != nil {
				warnings.Addf("ugeplan", "week %s: %v", isoWeek, err)
			} else {
				events = append(events, planEvents...)
				warnings = append(warnings, warns...)
			}
		}

		if s.opts.MUOpgaver {
			payload, err := s.plans.FetchHomework(ctx, child.UserID, isoWeek)
			if err != nil {
				warnings.Addf("mu_opgaver", "week %s: %v", isoWeek, err)
			} else if tasks, warns, err := parse.Homework(payload, child.ID, s.opts.Location); err != nil {
				warnings.Addf("mu_opgaver", "week %s: %v", isoWeek, err)
			} else {
				events = append(events, tasks...)
				warnings = append(warnings, warns...)
			}
		}
	}
	return events, warnings
}

// GroupByDay buckets events per calendar date, preserving chronological
// order within each day.
func (s *CalendarService) GroupByDay(events []model.CalendarEvent) []model.DayEvents {
	var days []model.DayEvents
	index := make(map[string]int)
	for _, event := range events {
		date := event.Start.In(s.opts.Location).Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, model.DayEvents{Date: date})
		}
		days[i].Events = append(days[i].Events, event)
	}
	return days
}

// SummaryLine renders one event as a human-readable line.
func (s *CalendarService) SummaryLine(event model.CalendarEvent) string {
	start := event.Start.In(s.opts.Location)
	end := event.End.In(s.opts.Location)
	line := fmt.Sprintf("%s %s–%s %s", start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"), event.Summary)
	if event.Location != "" {
		line += " (" + event.Location + ")"
	}
	return line
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// mondayOf returns the Monday on or before t.
func mondayOf(t time.Time) time.Time {
	t = midnight(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// isoWeekString renders the ISO week designator the widget API expects,
// e.g. "2024-W18".
func isoWeekString(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
