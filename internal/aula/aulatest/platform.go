// Package aulatest provides an in-process fake of the school platform for
// tests: the Unilogin broker chain on one host and the portal plus JSON API
// on another, so the login-host expiry heuristic behaves as in production.
package aulatest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// DefaultProfilesData is the profiles payload the fake serves unless a test
// overrides it.
const DefaultProfilesData = `{
	"profiles": [{
		"children": [
			{"id": "child-1", "name": "Alma Jensen", "userId": "alma0001",
			 "institutionProfile": {"institutionName": "Nordskolen", "institutionCode": "101"}},
			{"id": "child-2", "name": "Oscar Jensen", "userId": "oscar001",
			 "institutionProfile": {"institutionName": "Nordskolen", "institutionCode": "101"}}
		]
	}]
}`

const defaultContextData = `{
	"institutionProfile": {"relations": [{"id": 9001}, {"id": 9002}]}
}`

// CSRFToken is the token value the fake issues with the profiles response.
const CSRFToken = "csrf-fixture-token"

// Platform is the fake. Login and API run on separate httptest servers so
// they get distinct hosts.
type Platform struct {
	Login *httptest.Server
	API   *httptest.Server

	username string
	password string
	version  int

	mu            sync.Mutex
	loginAttempts int
	denied        map[string]bool
	deniedOnce    map[string]bool
	payloads      map[string]string
	envelopeCodes map[string]int
	calls         map[string]int
	lastCSRF      string
}

// New starts a fake platform that accepts the given credentials and serves
// API version. Both servers stop at test cleanup.
func New(t *testing.T, username, password string, version int) *Platform {
	t.Helper()

	p := &Platform{
		username:      username,
		password:      password,
		version:       version,
		denied:        make(map[string]bool),
		deniedOnce:    make(map[string]bool),
		payloads:      map[string]string{"profiles.getProfilesByLogin": DefaultProfilesData},
		envelopeCodes: make(map[string]int),
		calls:         make(map[string]int),
	}

	loginMux := http.NewServeMux()
	loginMux.HandleFunc("/auth/login.php", p.handleLoginPage)
	loginMux.HandleFunc("/idp", p.handleIdp)
	loginMux.HandleFunc("/check", p.handleCheck)
	p.Login = httptest.NewServer(loginMux)
	t.Cleanup(p.Login.Close)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/portal/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>portal</body></html>")
	})
	apiMux.HandleFunc("/api/", p.handleAPI)
	p.API = httptest.NewServer(apiMux)
	t.Cleanup(p.API.Close)

	return p
}

// LoginURL is the Options.LoginURL for this fake.
func (p *Platform) LoginURL() string { return p.Login.URL + "/auth/login.php" }

// APIBase is the versionless Options.APIBase for this fake.
func (p *Platform) APIBase() string { return p.API.URL + "/api/v" }

// PortalURL is the Options.PortalURL for this fake.
func (p *Platform) PortalURL() string { return p.API.URL + "/portal/" }

// LoginAttempts counts how many times the login page was served.
func (p *Platform) LoginAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginAttempts
}

// Deny makes the API answer 401 for one method until Allow is called.
func (p *Platform) Deny(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denied[method] = true
}

// DenyNext makes the API answer 401 for exactly one request of the method,
// simulating a session that expired and recovers after re-login.
func (p *Platform) DenyNext(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deniedOnce[method] = true
}

// Calls counts how often one API method was requested.
func (p *Platform) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// LastCSRF reports the csrfp-token header of the most recent API call.
func (p *Platform) LastCSRF() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCSRF
}

// Allow lifts a Deny.
func (p *Platform) Allow(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.denied, method)
}

// SetPayload sets the envelope data JSON served for one method.
func (p *Platform) SetPayload(method, data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads[method] = data
}

// SetEnvelopeCode overrides the in-envelope status code for one method,
// e.g. 403 for MitID-gated threads.
func (p *Platform) SetEnvelopeCode(method string, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopeCodes[method] = code
}

func (p *Platform) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.loginAttempts++
	p.mu.Unlock()

	fmt.Fprint(w, `<html><body>
		<form action="/idp" method="post">
			<input type="hidden" name="entry" value="portal"/>
		</form>
	</body></html>`)
}

func (p *Platform) handleIdp(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if r.Form.Get("selectedIdp") != "uni_idp" {
		http.Error(w, "unknown idp", http.StatusBadRequest)
		return
	}
	fmt.Fprint(w, `<html><body>
		<form action="/check" method="post">
			<input type="hidden" name="token" value="hop-token"/>
			<input type="text" name="username" value=""/>
			<input type="password" name="password" value=""/>
			<input type="hidden" name="selected-aktoer" value=""/>
		</form>
	</body></html>`)
}

func (p *Platform) handleCheck(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if r.Form.Get("token") != "hop-token" ||
		r.Form.Get("username") != p.username ||
		r.Form.Get("password") != p.password ||
		r.Form.Get("selected-aktoer") != "KONTAKT" {
		// A real broker re-renders the login form; a page without a form
		// ends the chain short of the portal just the same.
		fmt.Fprint(w, `<html><body>Forkert brugernavn eller adgangskode</body></html>`)
		return
	}
	http.Redirect(w, r, p.PortalURL(), http.StatusFound)
}

func (p *Platform) handleAPI(w http.ResponseWriter, r *http.Request) {
	var version int
	if _, err := fmt.Sscanf(r.URL.Path, "/api/v%d", &version); err != nil {
		http.NotFound(w, r)
		return
	}
	if version < p.version {
		w.WriteHeader(http.StatusGone)
		return
	}
	if version > p.version {
		http.NotFound(w, r)
		return
	}

	method := r.URL.Query().Get("method")

	p.mu.Lock()
	p.calls[method]++
	denied := p.denied[method] || p.deniedOnce[method]
	delete(p.deniedOnce, method)
	data, hasData := p.payloads[method]
	code, hasCode := p.envelopeCodes[method]
	if csrf := r.Header.Get("csrfp-token"); csrf != "" {
		p.lastCSRF = csrf
	}
	p.mu.Unlock()

	if denied {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if method == "profiles.getProfilesByLogin" {
		http.SetCookie(w, &http.Cookie{Name: "Csrfp-Token", Value: CSRFToken, Path: "/"})
	}
	if method == "profiles.getProfileContext" && !hasData {
		data, hasData = defaultContextData, true
	}
	if !hasData {
		data = "null"
	}
	if !hasCode {
		code = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":{"code":%d,"message":"OK"},"data":%s}`, code, data)
}
