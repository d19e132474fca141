package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skolegrid/aula-bridge/internal/aula"
	"github.com/skolegrid/aula-bridge/internal/model"
	"github.com/skolegrid/aula-bridge/internal/parse"
)

const (
	// maxThreadOpens bounds how many threads are opened per refresh. The
	// listing alone carries the unread flags; opening is only for excerpts.
	maxThreadOpens = 5

	// maxGalleryAlbums bounds how many albums are expanded per refresh.
	maxGalleryAlbums = 3

	defaultGalleryLimit = 10
)

// DataOptions tunes snapshot behavior.
type DataOptions struct {
	StaleAfter time.Duration
	Location   *time.Location
}

// snapshot is one consistent view of the platform data. Readers get the
// whole thing or nothing; a failed refresh never tears a previous snapshot.
type snapshot struct {
	children  []model.Child
	messages  []model.Message
	presence  map[string][]model.PresenceRecord
	gallery   []model.GalleryItem
	warnings  parse.Warnings
	fetchedAt time.Time
}

// DataService owns the cached platform snapshot. Reads refresh lazily when
// the snapshot is older than StaleAfter; Refresh forces a new one. All reads
// are answered from the snapshot so one guardian login never hammers the
// platform per request.
type DataService struct {
	session  *aula.Session
	profiles *aula.ProfileFetcher
	messages *aula.MessageFetcher
	presence *aula.PresenceFetcher
	gallery  *aula.GalleryFetcher
	calendar *CalendarService
	opts     DataOptions
	log      zerolog.Logger

	mu   sync.RWMutex
	snap snapshot

	// refreshMu serializes refreshes so concurrent stale reads trigger
	// one platform round-trip, not one each.
	refreshMu sync.Mutex
}

// NewDataService creates a new DataService.
func NewDataService(
	session *aula.Session,
	profiles *aula.ProfileFetcher,
	messages *aula.MessageFetcher,
	presence *aula.PresenceFetcher,
	gallery *aula.GalleryFetcher,
	calendar *CalendarService,
	opts DataOptions,
	log zerolog.Logger,
) *DataService {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 15 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &DataService{
		session:  session,
		profiles: profiles,
		messages: messages,
		presence: presence,
		gallery:  gallery,
		calendar: calendar,
		opts:     opts,
		log:      log.With().Str("component", "data_service").Logger(),
	}
}

// LastUpdated reports when the current snapshot was taken. Zero before the
// first successful refresh.
func (s *DataService) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.fetchedAt
}

// Warnings returns the normalization warnings of the current snapshot.
func (s *DataService) Warnings() parse.Warnings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.warnings
}

// Stats is a cheap view of the current snapshot for status reporting.
type Stats struct {
	FetchedAt time.Time `json:"fetched_at"`
	Children  int       `json:"children"`
	Messages  int       `json:"messages"`
	Unread    int       `json:"unread"`
	Gallery   int       `json:"gallery"`
	Warnings  int       `json:"warnings"`
}

// SnapshotStats reads counters off the current snapshot without touching
// the platform.
func (s *DataService) SnapshotStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		FetchedAt: s.snap.fetchedAt,
		Children:  len(s.snap.children),
		Messages:  len(s.snap.messages),
		Gallery:   len(s.snap.gallery),
		Warnings:  len(s.snap.warnings),
	}
	for _, msg := range s.snap.messages {
		if msg.Unread {
			stats.Unread++
		}
	}
	return stats
}

// Refresh fetches a fresh snapshot from the platform. On failure the
// previous snapshot stays in place.
func (s *DataService) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

// ensureFresh refreshes when the snapshot is missing or past its staleness
// window. Re-checks under the refresh lock so waiters reuse the refresh that
// beat them to it.
func (s *DataService) ensureFresh(ctx context.Context) error {
	if !s.stale() {
		return nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if !s.stale() {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *DataService) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.fetchedAt.IsZero() || time.Since(s.snap.fetchedAt) > s.opts.StaleAfter
}

func (s *DataService) refreshLocked(ctx context.Context) error {
	started := time.Now()
	next := snapshot{presence: make(map[string][]model.PresenceRecord)}

	children, err := s.fetchChildren(ctx, &next.warnings)
	if err != nil {
		return err
	}
	next.children = children

	messages, err := s.fetchMessages(ctx, &next.warnings)
	if err != nil {
		return err
	}
	next.messages = messages

	for _, child := range children {
		records, err := s.fetchPresence(ctx, child, &next.warnings)
		if err != nil {
			return err
		}
		next.presence[child.ID] = records
	}

	gallery, err := s.fetchGallery(ctx, &next.warnings)
	if err != nil {
		return err
	}
	next.gallery = gallery

	next.fetchedAt = time.Now()
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	s.log.Info().
		Int("children", len(children)).
		Int("messages", len(messages)).
		Int("gallery_items", len(gallery)).
		Int("warnings", len(next.warnings)).
		Dur("took", time.Since(started)).
		Msg("snapshot refreshed")
	return nil
}

func (s *DataService) fetchChildren(ctx context.Context, warnings *parse.Warnings) ([]model.Child, error) {
	payload, err := s.profiles.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	children, warns, err := parse.Children(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aula.ErrTransport, err)
	}
	*warnings = append(*warnings, warns...)
	return children, nil
}

func (s *DataService) fetchMessages(ctx context.Context, warnings *parse.Warnings) ([]model.Message, error) {
	payload, err := s.messages.FetchThreads(ctx)
	if err != nil {
		return nil, err
	}
	metas, warns, err := parse.Threads(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aula.ErrTransport, err)
	}
	*warnings = append(*warnings, warns...)

	opened := 0
	messages := make([]model.Message, 0, maxThreadOpens)
	for _, meta := range metas {
		if opened >= maxThreadOpens {
			break
		}
		opened++

		threadPayload, sensitive, err := s.messages.FetchThread(ctx, meta.ID)
		if err != nil {
			return nil, err
		}
		if sensitive {
			messages = append(messages, parse.SensitiveMessage(meta))
			continue
		}
		msg, warns, ok := parse.ThreadMessage(threadPayload, meta, s.opts.Location)
		*warnings = append(*warnings, warns...)
		if ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func (s *DataService) fetchPresence(ctx context.Context, child model.Child, warnings *parse.Warnings) ([]model.PresenceRecord, error) {
	payload, err := s.presence.FetchDailyOverview(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	records, warns, err := parse.DailyOverview(payload, child.ID, time.Now().In(s.opts.Location), s.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aula.ErrTransport, err)
	}
	*warnings = append(*warnings, warns...)
	return records, nil
}

func (s *DataService) fetchGallery(ctx context.Context, warnings *parse.Warnings) ([]model.GalleryItem, error) {
	profileIDs := s.session.InstitutionProfileIDs()
	if len(profileIDs) == 0 {
		warnings.Addf("gallery", "no institution profiles on session, skipping albums")
		return nil, nil
	}

	payload, err := s.gallery.FetchAlbums(ctx, profileIDs)
	if err != nil {
		return nil, err
	}
	albums, warns, err := parse.Albums(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", aula.ErrTransport, err)
	}
	*warnings = append(*warnings, warns...)

	var items []model.GalleryItem
	for i, album := range albums {
		if i >= maxGalleryAlbums {
			break
		}
		albumPayload, err := s.gallery.FetchAlbum(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		pictures, warns, err := parse.AlbumPictures(albumPayload, s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", aula.ErrTransport, err)
		}
		*warnings = append(*warnings, warns...)
		items = append(items, pictures...)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Created.After(items[j].Created) })
	return items, nil
}

// Children returns the guardian's children.
func (s *DataService) Children(ctx context.Context) ([]model.Child, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.children, nil
}

// ChildByID returns one child by its platform id.
func (s *DataService) ChildByID(ctx context.Context, childID string) (model.Child, error) {
	children, err := s.Children(ctx)
	if err != nil {
		return model.Child{}, err
	}
	for _, child := range children {
		if child.ID == childID {
			return child, nil
		}
	}
	return model.Child{}, fmt.Errorf("%w: child %s", aula.ErrNotFound, childID)
}

// UnreadMessages returns the unread count and the unread messages, most
// recent first. The count always equals the length of the returned list.
func (s *DataService) UnreadMessages(ctx context.Context) (int, []model.Message, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return 0, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	unread := make([]model.Message, 0, len(s.snap.messages))
	for _, msg := range s.snap.messages {
		if msg.Unread {
			unread = append(unread, msg)
		}
	}
	return len(unread), unread, nil
}

// PresenceForChild returns today's presence records for one child.
func (s *DataService) PresenceForChild(ctx context.Context, childID string) ([]model.PresenceRecord, error) {
	if _, err := s.ChildByID(ctx, childID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.presence[childID], nil
}

// GalleryItems returns the newest gallery items, capped at limit.
func (s *DataService) GalleryItems(ctx context.Context, limit int) ([]model.GalleryItem, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultGalleryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snap.gallery) <= limit {
		return s.snap.gallery, nil
	}
	return s.snap.gallery[:limit], nil
}

// Summary is the cross-resource digest for one guardian.
type Summary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Children    []model.Child          `json:"children"`
	UnreadCount int                    `json:"unread_count"`
	Unread      []model.Message        `json:"unread_messages"`
	Presence    []model.PresenceRecord `json:"presence"`
	Calendar    []model.DayEvents      `json:"calendar"`
	Gallery     []model.GalleryItem    `json:"gallery"`
	Lines       []string               `json:"lines"`
}

// BuildSummary assembles the digest from the snapshot plus a calendar
// look-ahead per child. force refreshes the snapshot first regardless of
// staleness. Calendar failures for individual children degrade to lines in
// the digest rather than failing the whole summary.
func (s *DataService) BuildSummary(ctx context.Context, force bool) (Summary, error) {
	if force {
		if err := s.Refresh(ctx); err != nil {
			return Summary{}, err
		}
	} else if err := s.ensureFresh(ctx); err != nil {
		return Summary{}, err
	}

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	summary := Summary{
		GeneratedAt: time.Now().In(s.opts.Location),
		Children:    snap.children,
		Gallery:     snap.gallery,
	}
	for _, msg := range snap.messages {
		if msg.Unread {
			summary.Unread = append(summary.Unread, msg)
		}
	}
	summary.UnreadCount = len(summary.Unread)
	for _, child := range snap.children {
		summary.Presence = append(summary.Presence, snap.presence[child.ID]...)
	}

	var allEvents []model.CalendarEvent
	for _, child := range snap.children {
		events, warns, err := s.calendar.EventsForDays(ctx, child, s.calendar.DefaultDays())
		if err != nil {
			s.log.Warn().Err(err).Str("child_id", child.ID).Msg("summary calendar lookup failed")
			summary.Lines = append(summary.Lines, fmt.Sprintf("Kalender utilgængelig for %s", child.Name))
			continue
		}
		if len(warns) > 0 {
			s.log.Debug().Int("count", len(warns)).Str("child_id", child.ID).Msg("summary calendar warnings")
		}
		allEvents = append(allEvents, events...)
	}
	summary.Calendar = s.calendar.GroupByDay(allEvents)

	summary.Lines = append(summary.Lines, fmt.Sprintf("%d børn, %d ulæste beskeder", len(snap.children), summary.UnreadCount))
	for _, day := range summary.Calendar {
		summary.Lines = append(summary.Lines, day.Date+":")
		for _, event := range day.Events {
			summary.Lines = append(summary.Lines, "  "+s.calendar.SummaryLine(event))
		}
	}
	return summary, nil
}
