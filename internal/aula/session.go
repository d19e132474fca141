package aula

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State names the session lifecycle stages.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateStale           State = "stale"
	StateFailed          State = "failed"
)

const (
	maxLoginHops     = 10
	maxProbeAttempts = 5
	maxBodyBytes     = 4 << 20
	csrfCookieName   = "Csrfp-Token"
)

// errDenied is the internal signal that the platform refused an
// authenticated call. It never leaves the package; request() converts it to
// ErrSessionExpired after the single re-login retry.
var errDenied = errors.New("request denied by platform")

// Options configures a Session. Zero-valued endpoint fields fall back to the
// production platform; tests point them at a fake.
type Options struct {
	Username string
	Password string

	LoginURL         string
	APIBase          string // versionless prefix, e.g. "https://www.aula.dk/api/v"
	PortalURL        string
	MinUddannelseAPI string
	APIVersion       int
	Timeout          time.Duration
}

func (o *Options) withDefaults() {
	if o.LoginURL == "" {
		o.LoginURL = defaultLoginURL
	}
	if o.APIBase == "" {
		o.APIBase = defaultAPIBase
	}
	if o.PortalURL == "" {
		o.PortalURL = defaultPortalURL
	}
	if o.MinUddannelseAPI == "" {
		o.MinUddannelseAPI = defaultMinUddannelseAPI
	}
	if o.APIVersion <= 0 {
		o.APIVersion = defaultAPIVersion
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// Envelope is the platform's JSON response wrapper. Data is left raw for the
// normalizers; Status carries the platform's own result code, which can say
// 403 even under HTTP 200.
type Envelope struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Data json.RawMessage `json:"data"`
}

// Session owns all authenticated platform state: cookie jar, CSRF token,
// resolved API version and profile ids. State transitions are serialized
// behind mu; data fetches share an authenticated session concurrently.
//
// Lifecycle: Unauthenticated → Authenticating → Authenticated → Stale →
// Authenticating → Authenticated | Failed. Failed is reached only after the
// single stale-session retry.
type Session struct {
	opts Options
	http *http.Client
	log  zerolog.Logger

	mu          sync.Mutex
	state       State
	apiURL      string
	csrfToken   string
	profilesRaw json.RawMessage
	profileIDs  []string
	loginAt     time.Time

	widgetMu     sync.Mutex
	widgetTokens map[string]widgetToken
}

// NewSession creates an unauthenticated session. Nothing touches the network
// until Login or the first data call.
func NewSession(opts Options, log zerolog.Logger) *Session {
	opts.withDefaults()
	jar, _ := cookiejar.New(nil)
	return &Session{
		opts: opts,
		http: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
		},
		log:          log.With().Str("component", "aula_session").Logger(),
		state:        StateUnauthenticated,
		widgetTokens: make(map[string]widgetToken),
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoggedInAt returns the time of the last successful login.
func (s *Session) LoggedInAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginAt
}

// ProfilesRaw returns the raw profiles payload captured during login.
func (s *Session) ProfilesRaw() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profilesRaw
}

// InstitutionProfileIDs returns the relation ids from the guardian profile
// context. May be empty when the context call failed; fetchers fall back to
// child ids.
func (s *Session) InstitutionProfileIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.profileIDs...)
}

// Login performs the platform's multi-step authentication. Calling it while
// already authenticated is a no-op unless the session has been marked stale.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAuthenticated {
		return nil
	}
	return s.loginLocked(ctx)
}

// loginLocked runs the full flow: login page → identity-provider selection →
// hidden-form redirect chain with injected credentials → API version probe →
// CSRF cookie capture → guardian profile context. Caller holds mu.
func (s *Session) loginLocked(ctx context.Context) error {
	s.state = StateAuthenticating
	s.log.Debug().Msg("starting platform login")

	// Fresh cookie jar: stale broker cookies poison the chain.
	jar, err := cookiejar.New(nil)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("cookie jar: %w", err)
	}
	s.http.Jar = jar
	s.csrfToken = ""
	s.resetWidgetTokens()

	resp, err := s.browserGet(ctx, s.opts.LoginURL+"?type=unilogin")
	if err != nil {
		s.state = StateFailed
		return transportErr("fetch login page", err)
	}
	form, err := readLoginForm(resp)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: login form not found", ErrAuthentication)
	}

	resp, err = s.browserPost(ctx, form.Action, url.Values{"selectedIdp": {"uni_idp"}})
	if err != nil {
		s.state = StateFailed
		return transportErr("select identity provider", err)
	}

	// Follow the broker chain, echoing hidden fields and substituting
	// credentials wherever the page asks for them.
	creds := map[string]string{
		"username":        s.opts.Username,
		"password":        s.opts.Password,
		"selected-aktoer": "KONTAKT",
	}
	landed := false
	for hop := 0; hop < maxLoginHops && !landed; hop++ {
		form, err = readLoginForm(resp)
		if err != nil {
			s.log.Debug().Int("hop", hop).Msg("login chain ended without a form")
			break
		}
		for name, value := range creds {
			if form.Fields.Has(name) {
				form.Fields.Set(name, value)
			}
		}
		resp, err = s.browserPost(ctx, form.Action, form.Fields)
		if err != nil {
			s.state = StateFailed
			return transportErr("follow login chain", err)
		}
		landed = s.atPortal(resp.Request.URL)
	}
	closeBody(resp)
	if !landed {
		s.state = StateFailed
		return fmt.Errorf("%w: login chain never reached the portal", ErrAuthentication)
	}

	if err := s.probeAPILocked(ctx); err != nil {
		s.state = StateFailed
		return err
	}
	s.captureCSRFLocked()
	s.loadProfileContextLocked(ctx)

	s.state = StateAuthenticated
	s.loginAt = time.Now()
	s.log.Info().Str("api_url", s.apiURL).Msg("platform login successful")
	return nil
}

// probeAPILocked finds the live JSON API version and captures the profiles
// payload. 410 means the version was retired (bump and retry); 403 here
// means the credentials got through the broker but the platform still
// refuses access.
func (s *Session) probeAPILocked(ctx context.Context) error {
	ver := s.opts.APIVersion
	for attempt := 0; attempt < maxProbeAttempts; attempt++ {
		api := s.opts.APIBase + strconv.Itoa(ver)
		resp, err := s.plainGet(ctx, api+"?method=profiles.getProfilesByLogin")
		if err != nil {
			return transportErr("probe api version", err)
		}
		switch resp.StatusCode {
		case http.StatusGone:
			closeBody(resp)
			s.log.Debug().Int("version", ver).Msg("api version retired, trying newer")
			ver++
		case http.StatusForbidden:
			closeBody(resp)
			return fmt.Errorf("%w: api access denied, check credentials", ErrAuthentication)
		case http.StatusOK:
			var env Envelope
			err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env)
			closeBody(resp)
			if err != nil {
				return fmt.Errorf("%w: decode profiles payload: %v", ErrTransport, err)
			}
			s.apiURL = api
			s.profilesRaw = env.Data
			return nil
		default:
			code := resp.StatusCode
			closeBody(resp)
			return fmt.Errorf("%w: unexpected status %d during api probe", ErrTransport, code)
		}
	}
	return fmt.Errorf("%w: no live api version found", ErrTransport)
}

// captureCSRFLocked lifts the CSRF token out of the cookie jar. Data calls
// without it are rejected by the platform.
func (s *Session) captureCSRFLocked() {
	apiURL, err := url.Parse(s.apiURL)
	if err != nil {
		return
	}
	for _, c := range s.http.Jar.Cookies(apiURL) {
		if c.Name == csrfCookieName {
			s.csrfToken = c.Value
			return
		}
	}
	s.log.Warn().Msg("csrf token cookie not found after login")
}

// loadProfileContextLocked captures institution relation ids for the widget
// and gallery fetchers. Best effort: a failure here degrades those fetchers
// but does not fail the login.
func (s *Session) loadProfileContextLocked(ctx context.Context) {
	resp, err := s.plainGet(ctx, s.apiURL+"?method=profiles.getProfileContext&portalrole=guardian")
	if err != nil {
		s.log.Warn().Err(err).Msg("profile context fetch failed")
		return
	}
	defer closeBody(resp)

	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		s.log.Warn().Err(err).Msg("profile context decode failed")
		return
	}
	var pc struct {
		InstitutionProfile struct {
			Relations []struct {
				ID json.Number `json:"id"`
			} `json:"relations"`
		} `json:"institutionProfile"`
	}
	if err := json.Unmarshal(env.Data, &pc); err != nil {
		s.log.Warn().Err(err).Msg("profile context payload unreadable")
		return
	}
	ids := make([]string, 0, len(pc.InstitutionProfile.Relations))
	for _, rel := range pc.InstitutionProfile.Relations {
		if rel.ID.String() != "" {
			ids = append(ids, rel.ID.String())
		}
	}
	s.profileIDs = ids
}

// EnsureAuthenticated makes the session usable or fails. A stale session
// gets exactly one re-login; a second failure surfaces as ErrSessionExpired.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateAuthenticated:
		return nil
	case StateStale:
		if err := s.loginLocked(ctx); err != nil {
			s.state = StateFailed
			return fmt.Errorf("%w: re-login failed: %v", ErrSessionExpired, err)
		}
		return nil
	default:
		return s.loginLocked(ctx)
	}
}

// Get performs an authenticated GET against the platform JSON API.
func (s *Session) Get(ctx context.Context, method string, params url.Values) (*Envelope, error) {
	return s.request(ctx, http.MethodGet, method, params, nil, false)
}

// GetLenient is Get for endpoints where an in-envelope 403 is a legitimate
// answer (sensitive message threads gated behind MitID) rather than an
// expiry signal. HTTP-level denial still triggers the stale-session path.
func (s *Session) GetLenient(ctx context.Context, method string, params url.Values) (*Envelope, error) {
	return s.request(ctx, http.MethodGet, method, params, nil, true)
}

// Post performs an authenticated POST with a JSON body.
func (s *Session) Post(ctx context.Context, method string, params url.Values, body any) (*Envelope, error) {
	return s.request(ctx, http.MethodPost, method, params, body, false)
}

// request runs one authenticated call with the single stale-session retry:
// a denied response marks the session stale, re-logs-in once and repeats the
// call once. A second denial is terminal for this session.
func (s *Session) request(ctx context.Context, httpMethod, apiMethod string, params url.Values, body any, lenient bool) (*Envelope, error) {
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	env, err := s.call(ctx, httpMethod, apiMethod, params, body, lenient)
	if err == nil {
		return env, nil
	}
	if !errors.Is(err, errDenied) {
		return nil, err
	}

	s.log.Warn().Str("method", apiMethod).Msg("platform denied live session, retrying after re-login")
	s.markStale()
	if err := s.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	env, err = s.call(ctx, httpMethod, apiMethod, params, body, lenient)
	if err == nil {
		return env, nil
	}
	if errors.Is(err, errDenied) {
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: %s still denied after re-login", ErrSessionExpired, apiMethod)
	}
	return nil, err
}

// call executes a single API request without retry logic.
func (s *Session) call(ctx context.Context, httpMethod, apiMethod string, params url.Values, body any, lenient bool) (*Envelope, error) {
	s.mu.Lock()
	api, csrf := s.apiURL, s.csrfToken
	s.mu.Unlock()

	endpoint := api + "?method=" + url.QueryEscape(apiMethod)
	if len(params) > 0 {
		endpoint += "&" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", apiMethod, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", apiMethod, err)
	}
	req.Header.Set("csrfp-token", csrf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, transportErr("call "+apiMethod, err)
	}
	defer closeBody(resp)

	if s.isDeniedResponse(resp) {
		return nil, errDenied
	}

	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrTransport, apiMethod, err)
	}
	if env.Status.Code == http.StatusForbidden && !lenient {
		return nil, errDenied
	}
	return &env, nil
}

// isDeniedResponse is the expiry heuristic for data calls: an explicit
// 401/403, or a redirect chain that ended back on the login host. The
// platform never says "session expired" in so many words; this predicate is
// the single place encoding how we infer it.
func (s *Session) isDeniedResponse(resp *http.Response) bool {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return true
	}
	login, err := url.Parse(s.opts.LoginURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(resp.Request.URL.Host, login.Host)
}

// atPortal reports whether the login chain landed on the portal frontpage,
// which is the platform's only success signal.
func (s *Session) atPortal(u *url.URL) bool {
	portal, err := url.Parse(s.opts.PortalURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, portal.Host) && strings.HasPrefix(u.Path, portal.Path)
}

func (s *Session) markStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAuthenticated {
		s.state = StateStale
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Do executes an arbitrary request with the session's cookie state. Widget
// fetchers use it to reach companion hosts that share the platform cookies.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.http.Do(req)
}

// Close releases the session. Safe to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateUnauthenticated
	s.csrfToken = ""
	s.profilesRaw = nil
	s.mu.Unlock()
	s.resetWidgetTokens()
	s.http.CloseIdleConnections()
}

// ─── plumbing ──────────────────────────────────────────────────────────────

func (s *Session) browserGet(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req)
	return s.http.Do(req)
}

func (s *Session) browserPost(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.http.Do(req)
}

func (s *Session) plainGet(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return s.http.Do(req)
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "da,en-US;q=0.7,en;q=0.3")
}

// readLoginForm consumes and closes the response body.
func readLoginForm(resp *http.Response) (*loginForm, error) {
	defer closeBody(resp)
	return extractLoginForm(resp.Body, resp.Request.URL)
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
