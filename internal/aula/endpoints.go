package aula

// Platform endpoints. Overridable through Options so tests can point the
// session at a fake platform.
const (
	defaultLoginURL  = "https://login.aula.dk/auth/login.php"
	defaultAPIBase   = "https://www.aula.dk/api/v"
	defaultPortalURL = "https://www.aula.dk/portal/"

	// Widget back-ends reached with a platform-issued bearer token.
	defaultMinUddannelseAPI = "https://api.minuddannelse.net/aula"

	// Starting JSON API version for the probe. The platform answers 410
	// when a version has been retired; the probe then bumps and retries.
	defaultAPIVersion = 20
)

// browserUserAgent is sent on login-flow requests. The identity-broker chain
// serves different markup to clients it does not recognize as browsers.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0"
