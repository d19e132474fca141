package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/aula/aulatest"
	"github.com/skolegrid/aula-bridge/internal/config"
	"github.com/skolegrid/aula-bridge/internal/handler"
	"github.com/skolegrid/aula-bridge/internal/router"
	"github.com/skolegrid/aula-bridge/internal/service"
	"github.com/skolegrid/aula-bridge/internal/websocket"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func newTestServer(t *testing.T) (*aulatest.Platform, *httptest.Server) {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Copenhagen")
	require.NoError(t, err)

	p := aulatest.New(t, "guardian", "hemmeligt", 20)
	p.SetPayload("messaging.getThreads", `{
		"threads": [{"id": 1, "subject": "Lejrskole", "read": false}]
	}`)
	p.SetPayload("messaging.getMessagesForThread", `{
		"messages": [{"id": 10, "messageType": "Message",
		 "sendDateTime": "2024-03-04T12:30:00+0100",
		 "text": "Husk madpakke", "sender": {"fullName": "Pia Sørensen"}}]
	}`)
	p.SetPayload("presence.getDailyOverview", `[{"status": 3}]`)
	p.SetPayload("gallery.getAlbums", `[]`)
	p.SetPayload("calendar.getEventsByProfileIdsAndResourceIds", `[]`)

	session := aula.NewSession(aula.Options{
		Username:   "guardian",
		Password:   "hemmeligt",
		LoginURL:   p.LoginURL(),
		APIBase:    p.APIBase(),
		PortalURL:  p.PortalURL(),
		APIVersion: 20,
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(session.Close)

	cfg := &config.Config{
		ServerPort:      "0",
		GinMode:         "test",
		Username:        "guardian",
		Password:        "hemmeligt",
		SchoolSchedule:  true,
		CalendarDays:    7,
		HTTPTimeout:     5 * time.Second,
		RefreshInterval: 15 * time.Minute,
		Timezone:        loc,
	}

	log := zerolog.Nop()
	calendarService := service.NewCalendarService(
		aula.NewCalendarFetcher(session), aula.NewPlanFetcher(session),
		service.CalendarOptions{
			SchoolSchedule: cfg.SchoolSchedule,
			DefaultDays:    cfg.CalendarDays,
			Location:       cfg.Timezone,
		}, log)
	dataService := service.NewDataService(
		session,
		aula.NewProfileFetcher(session), aula.NewMessageFetcher(session),
		aula.NewPresenceFetcher(session), aula.NewGalleryFetcher(session),
		calendarService,
		service.DataOptions{StaleAfter: cfg.RefreshInterval, Location: cfg.Timezone},
		log)
	hub := websocket.NewHub(log)
	t.Cleanup(hub.CloseAll)

	handlers := &router.Handlers{
		Session:  handler.NewSessionHandler(session, dataService),
		Child:    handler.NewChildHandler(dataService),
		Calendar: handler.NewCalendarHandler(dataService, calendarService),
		Message:  handler.NewMessageHandler(dataService),
		Gallery:  handler.NewGalleryHandler(dataService),
		Summary:  handler.NewSummaryHandler(dataService),
		Stream:   handler.NewStreamHandler(dataService, hub, log, cfg.AllowedOrigins),
	}

	srv := httptest.NewServer(router.SetupRouter(handlers, cfg))
	t.Cleanup(srv.Close)
	return p, srv
}

func getEnvelope(t *testing.T, srv *httptest.Server, path string) (int, envelope) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, env.Error)
	assert.NotEmpty(t, env.Metadata.RequestID)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	resp, err := srv.Client().Post(srv.URL+"/api/v1/session/login", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChildrenEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/children")
	require.Equal(t, http.StatusOK, status)

	var children []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &children))
	require.Len(t, children, 2)
	assert.Equal(t, "Alma Jensen", children[0].Name)
}

func TestUnknownChildMapsToNotFound(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/children/child-99")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestZeroDaysMapsToInvalidRange(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/children/child-1/calendar?days=0")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_RANGE", env.Error.Code)
}

func TestLoneRangeDateIsValidationError(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/children/child-1/calendar/range?start=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestUnreadMessagesEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/messages/unread")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Count    int `json:"count"`
		Messages []struct {
			Excerpt string `json:"excerpt"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, len(payload.Messages), payload.Count)
	assert.Equal(t, 1, payload.Count)
}

func TestSummaryEndpoint(t *testing.T) {
	t.Parallel()

	_, srv := newTestServer(t)
	status, env := getEnvelope(t, srv, "/api/v1/summary")
	require.Equal(t, http.StatusOK, status)

	var summary struct {
		UnreadCount int      `json:"unread_count"`
		Lines       []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.UnreadCount)
	assert.NotEmpty(t, summary.Lines)
}

func TestWrongCredentialsMapToAuthenticationFailed(t *testing.T) {
	t.Parallel()

	p2 := aulatest.New(t, "guardian", "hemmeligt", 20)
	session := aula.NewSession(aula.Options{
		Username:   "guardian",
		Password:   "forkert",
		LoginURL:   p2.LoginURL(),
		APIBase:    p2.APIBase(),
		PortalURL:  p2.PortalURL(),
		APIVersion: 20,
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(session.Close)

	log := zerolog.Nop()
	dataService := service.NewDataService(session,
		aula.NewProfileFetcher(session), aula.NewMessageFetcher(session),
		aula.NewPresenceFetcher(session), aula.NewGalleryFetcher(session),
		service.NewCalendarService(nil, nil, service.CalendarOptions{}, log),
		service.DataOptions{}, log)

	handlers := &router.Handlers{
		Session:  handler.NewSessionHandler(session, dataService),
		Child:    handler.NewChildHandler(dataService),
		Calendar: handler.NewCalendarHandler(dataService, service.NewCalendarService(nil, nil, service.CalendarOptions{}, log)),
		Message:  handler.NewMessageHandler(dataService),
		Gallery:  handler.NewGalleryHandler(dataService),
		Summary:  handler.NewSummaryHandler(dataService),
		Stream:   handler.NewStreamHandler(dataService, websocket.NewHub(log), log, nil),
	}
	cfg := &config.Config{GinMode: "test", Timezone: time.UTC}
	badSrv := httptest.NewServer(router.SetupRouter(handlers, cfg))
	t.Cleanup(badSrv.Close)

	resp, err := badSrv.Client().Post(badSrv.URL+"/api/v1/session/login", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTHENTICATION_FAILED", env.Error.Code)
}
