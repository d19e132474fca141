package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skolegrid/aula-bridge/internal/model"
	"github.com/skolegrid/aula-bridge/internal/parse"
	"github.com/skolegrid/aula-bridge/internal/response"
	"github.com/skolegrid/aula-bridge/internal/service"
	"github.com/skolegrid/aula-bridge/internal/validator"
)

const dateLayout = "2006-01-02"

// CalendarHandler exposes the merged calendar per child.
type CalendarHandler struct {
	data     *service.DataService
	calendar *service.CalendarService
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(data *service.DataService, calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{data: data, calendar: calendar}
}

type eventsQuery struct {
	Days *int `form:"days"`
}

type rangeQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
	Days  *int   `form:"days"`
}

type calendarPayload struct {
	ChildID string            `json:"child_id"`
	Days    []model.DayEvents `json:"days"`
	Lines   []string          `json:"lines"`
}

// GetEvents godoc
// GET /api/v1/children/:child_id/calendar
// Returns events from today through the requested number of days, default
// from configuration. The window end is exclusive.
func (h *CalendarHandler) GetEvents(c *gin.Context) {
	var q eventsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	child, err := h.data.ChildByID(c.Request.Context(), c.Param("child_id"))
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}

	days := h.calendar.DefaultDays()
	if q.Days != nil {
		days = *q.Days
	}

	events, warnings, err := h.calendar.EventsForDays(c.Request.Context(), child, days)
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	h.respond(c, child.ID, events, warnings)
}

// GetEventsForRange godoc
// GET /api/v1/children/:child_id/calendar/range?start=2024-01-01&end=2024-01-07
// Returns events for the inclusive date range. When both dates are absent
// the call falls back to the days window; a lone date is a validation error.
func (h *CalendarHandler) GetEventsForRange(c *gin.Context) {
	var q rangeQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	child, err := h.data.ChildByID(c.Request.Context(), c.Param("child_id"))
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}

	var events []model.CalendarEvent
	var warnings parse.Warnings
	switch {
	case q.Start == "" && q.End == "":
		days := h.calendar.DefaultDays()
		if q.Days != nil {
			days = *q.Days
		}
		events, warnings, err = h.calendar.EventsForDays(c.Request.Context(), child, days)
	case q.Start == "" || q.End == "":
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": "start and end must be given together"})
		return
	default:
		var start, end time.Time
		start, err = time.Parse(dateLayout, q.Start)
		if err == nil {
			end, err = time.Parse(dateLayout, q.End)
		}
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"detail": "dates must use the YYYY-MM-DD format"})
			return
		}
		events, warnings, err = h.calendar.EventsForRange(c.Request.Context(), child, start, end)
	}
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}
	h.respond(c, child.ID, events, warnings)
}

func (h *CalendarHandler) respond(c *gin.Context, childID string, events []model.CalendarEvent, warnings parse.Warnings) {
	payload := calendarPayload{
		ChildID: childID,
		Days:    h.calendar.GroupByDay(events),
	}
	for _, event := range events {
		payload.Lines = append(payload.Lines, h.calendar.SummaryLine(event))
	}
	response.SuccessWithWarnings(c, http.StatusOK, payload, warnings)
}
