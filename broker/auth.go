package broker

// Authenticator checks a CONNECT's username/password pair. The
// broker closes the connection with CONNACK return code
// ConnRefusedNotAuthorized when Authenticate returns false.
type Authenticator interface {
	Authenticate(username, password string) bool
}

// StaticAuthenticator checks against a single hard-coded credential
// pair, replaceable via configuration. The zero value is not
// usable; construct with NewStaticAuthenticator.
type StaticAuthenticator struct {
	username string
	password string
}

// DefaultUsername and DefaultPassword are the hard-coded admin
// credentials used when no other authenticator is configured.
const (
	DefaultUsername = "sistema-monitoreo"
	DefaultPassword = "rustx123"
)

// NewStaticAuthenticator returns an Authenticator checking against the
// given pair. Passing empty strings for both falls back to the
// defaults.
func NewStaticAuthenticator(username, password string) *StaticAuthenticator {
	if username == "" && password == "" {
		username, password = DefaultUsername, DefaultPassword
	}
	return &StaticAuthenticator{username: username, password: password}
}

// Authenticate reports whether username and password exactly match the
// configured pair.
func (a *StaticAuthenticator) Authenticate(username, password string) bool {
	return username == a.username && password == a.password
}
