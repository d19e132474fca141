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
)

func newDataHarness(t *testing.T) (*aulatest.Platform, *DataService) {
	t.Helper()
	loc := testLocation(t)

	p := aulatest.New(t, "guardian", "hemmeligt", 20)
	p.SetPayload("messaging.getThreads", `{
		"threads": [
			{"id": 1, "subject": "Lejrskole", "read": false},
			{"id": 2, "subject": "Madordning", "read": true},
			{"id": 3, "subject": "Forældremøde", "read": false}
		]
	}`)
	p.SetPayload("messaging.getMessagesForThread", `{
		"messages": [{
			"id": 10, "messageType": "Message",
			"sendDateTime": "2024-03-04T12:30:00+0100",
			"text": "Husk madpakke", "sender": {"fullName": "Pia Sørensen"}
		}]
	}`)
	p.SetPayload("presence.getDailyOverview", `[{"status": 3, "checkInTime": "07:52:00"}]`)
	p.SetPayload("gallery.getAlbums", `[{"id": 1, "title": "Skolefest"}]`)
	p.SetPayload("gallery.getAlbum", `{
		"pictures": [
			{"id": 10, "url": "https://img.example/10.jpg", "created": "2024-02-12T10:15:00+0100"},
			{"id": 11, "url": "https://img.example/11.jpg", "created": "2024-02-13T10:15:00+0100"}
		]
	}`)

	s := aula.NewSession(aula.Options{
		Username:   "guardian",
		Password:   "hemmeligt",
		LoginURL:   p.LoginURL(),
		APIBase:    p.APIBase(),
		PortalURL:  p.PortalURL(),
		APIVersion: 20,
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(s.Close)

	calendar := NewCalendarService(aula.NewCalendarFetcher(s), aula.NewPlanFetcher(s),
		CalendarOptions{DefaultDays: 7, Location: loc}, zerolog.Nop())
	data := NewDataService(
		s,
		aula.NewProfileFetcher(s),
		aula.NewMessageFetcher(s),
		aula.NewPresenceFetcher(s),
		aula.NewGalleryFetcher(s),
		calendar,
		DataOptions{StaleAfter: 15 * time.Minute, Location: loc},
		zerolog.Nop(),
	)
	return p, data
}

func TestChildrenComeFromProfilesPayload(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	children, err := data.Children(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "child-1", children[0].ID)
	assert.Equal(t, "child-2", children[1].ID)
}

func TestChildByIDUnknownIsNotFound(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	_, err := data.ChildByID(context.Background(), "child-99")
	require.Error(t, err)
	assert.ErrorIs(t, err, aula.ErrNotFound)
}

func TestUnreadCountAlwaysMatchesList(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	count, messages, err := data.UnreadMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(messages), count)
	assert.Equal(t, 2, count)
	for _, msg := range messages {
		assert.True(t, msg.Unread)
	}
}

func TestSensitiveThreadsBecomePlaceholders(t *testing.T) {
	t.Parallel()

	p, data := newDataHarness(t)
	p.SetEnvelopeCode("messaging.getMessagesForThread", 403)

	count, messages, err := data.UnreadMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	for _, msg := range messages {
		assert.True(t, msg.RequiresMitID)
		assert.NotEmpty(t, msg.Excerpt)
	}
}

func TestSnapshotIsReusedWithinStalenessWindow(t *testing.T) {
	t.Parallel()

	p, data := newDataHarness(t)
	ctx := context.Background()

	_, err := data.Children(ctx)
	require.NoError(t, err)
	threadCalls := p.Calls("messaging.getThreads")

	_, err = data.Children(ctx)
	require.NoError(t, err)
	_, _, err = data.UnreadMessages(ctx)
	require.NoError(t, err)

	assert.Equal(t, threadCalls, p.Calls("messaging.getThreads"), "reads inside the window must not refetch")
}

func TestRefreshForcesNewSnapshot(t *testing.T) {
	t.Parallel()

	p, data := newDataHarness(t)
	ctx := context.Background()

	require.NoError(t, data.Refresh(ctx))
	first := data.LastUpdated()
	calls := p.Calls("messaging.getThreads")

	require.NoError(t, data.Refresh(ctx))
	assert.Greater(t, p.Calls("messaging.getThreads"), calls)
	assert.False(t, data.LastUpdated().Before(first))
}

func TestPresenceForChild(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	records, err := data.PresenceForChild(context.Background(), "child-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].CheckIn)
	assert.Equal(t, 7, records[0].CheckIn.Hour())

	_, err = data.PresenceForChild(context.Background(), "child-99")
	assert.ErrorIs(t, err, aula.ErrNotFound)
}

func TestGalleryItemsNewestFirstAndCapped(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	items, err := data.GalleryItems(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "11", items[0].ID, "newest picture first")
}

func TestBuildSummaryCollectsSections(t *testing.T) {
	t.Parallel()

	_, data := newDataHarness(t)
	summary, err := data.BuildSummary(context.Background(), false)
	require.NoError(t, err)

	assert.Len(t, summary.Children, 2)
	assert.Equal(t, 2, summary.UnreadCount)
	assert.Len(t, summary.Unread, 2)
	assert.Len(t, summary.Presence, 2)
	require.NotEmpty(t, summary.Lines)
	assert.Contains(t, summary.Lines[0], "2 børn")
	assert.Contains(t, summary.Lines[0], "2 ulæste")
}

func TestFailedLoginSurfacesAuthenticationError(t *testing.T) {
	t.Parallel()
	loc := testLocation(t)

	p := aulatest.New(t, "guardian", "hemmeligt", 20)
	s := aula.NewSession(aula.Options{
		Username:   "guardian",
		Password:   "forkert",
		LoginURL:   p.LoginURL(),
		APIBase:    p.APIBase(),
		PortalURL:  p.PortalURL(),
		APIVersion: 20,
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(s.Close)

	calendar := NewCalendarService(aula.NewCalendarFetcher(s), aula.NewPlanFetcher(s),
		CalendarOptions{Location: loc}, zerolog.Nop())
	data := NewDataService(s,
		aula.NewProfileFetcher(s), aula.NewMessageFetcher(s),
		aula.NewPresenceFetcher(s), aula.NewGalleryFetcher(s),
		calendar, DataOptions{Location: loc}, zerolog.Nop())

	_, err := data.Children(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, aula.ErrAuthentication)
}
