package domain

// Session is the runtime fact that a username is currently connected from a
// given peer address. Sessions live only in the process-wide registry and
// are never persisted.
type Session struct {
	Username string
	Addr     string
}
