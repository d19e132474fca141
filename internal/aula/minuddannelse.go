package aula

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Widget ids assigned by the platform to the MinUddannelse integrations.
const (
	WidgetUgeplan   = "0004"
	WidgetMUOpgaver = "0030"
)

// tokenReuseWindow is the fallback reuse period for widget tokens whose
// expiry claim cannot be read.
const tokenReuseWindow = time.Minute

type widgetToken struct {
	value     string
	fetchedAt time.Time
	expiresAt time.Time // zero when the claim was unreadable
}

func (t widgetToken) usable(now time.Time) bool {
	if t.value == "" {
		return false
	}
	if !t.expiresAt.IsZero() {
		// Leave a minute of slack so a token never dies mid-request.
		return now.Before(t.expiresAt.Add(-tokenReuseWindow))
	}
	return now.Sub(t.fetchedAt) < tokenReuseWindow
}

// WidgetToken returns a bearer token for the given widget, reusing a cached
// one until shortly before its expiry claim runs out.
func (s *Session) WidgetToken(ctx context.Context, widgetID string) (string, error) {
	now := time.Now()

	s.widgetMu.Lock()
	cached, ok := s.widgetTokens[widgetID]
	s.widgetMu.Unlock()
	if ok && cached.usable(now) {
		return cached.value, nil
	}

	params := url.Values{}
	params.Set("widgetId", widgetID)
	env, err := s.Get(ctx, "aulaToken.getAulaToken", params)
	if err != nil {
		return "", err
	}

	var raw string
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return "", fmt.Errorf("%w: widget token payload unreadable: %v", ErrTransport, err)
	}
	token := widgetToken{
		value:     "Bearer " + raw,
		fetchedAt: now,
		expiresAt: tokenExpiry(raw),
	}

	s.widgetMu.Lock()
	s.widgetTokens[widgetID] = token
	s.widgetMu.Unlock()

	return token.value, nil
}

// tokenExpiry reads the exp claim without verifying the signature — the
// token is the platform's to sign, we only need its lifetime.
func tokenExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (s *Session) resetWidgetTokens() {
	s.widgetMu.Lock()
	s.widgetTokens = make(map[string]widgetToken)
	s.widgetMu.Unlock()
}

// PlanFetcher retrieves supplementary weekly plans and homework tasks from
// the MinUddannelse companion API using widget bearer tokens.
type PlanFetcher struct {
	session *Session
	apiBase string
}

// NewPlanFetcher creates a new PlanFetcher.
func NewPlanFetcher(session *Session) *PlanFetcher {
	return &PlanFetcher{session: session, apiBase: session.opts.MinUddannelseAPI}
}

// FetchWeeklyPlan returns the raw weekly-letter payload for one child user
// id and ISO week (e.g. "2024-W18").
func (f *PlanFetcher) FetchWeeklyPlan(ctx context.Context, childUserID, isoWeek string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("currentWeekNumber", isoWeek)
	params.Set("childFilter[]", childUserID)
	return f.get(ctx, WidgetUgeplan, "/ugebrev", params)
}

// FetchHomework returns the raw homework-task payload for one child user id
// and ISO week.
func (f *PlanFetcher) FetchHomework(ctx context.Context, childUserID, isoWeek string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("currentWeekNumber", isoWeek)
	params.Set("childFilter[]", childUserID)
	return f.get(ctx, WidgetMUOpgaver, "/opgaveliste", params)
}

func (f *PlanFetcher) get(ctx context.Context, widgetID, path string, params url.Values) (json.RawMessage, error) {
	bearer, err := f.session.WidgetToken(ctx, widgetID)
	if err != nil {
		return nil, err
	}

	endpoint := f.apiBase + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create plan request: %w", err)
	}
	req.Header.Set("Authorization", bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := f.session.Do(req)
	if err != nil {
		return nil, transportErr("fetch "+path, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered status %d", ErrTransport, path, resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportErr("read "+path, err)
	}
	return payload, nil
}
