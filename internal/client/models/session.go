package models

// State is the session state machine's current state.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateRestoring      State = "restoring"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

// Session is a read-only snapshot of the client's authentication state.
type Session struct {
	State         State
	User          *UserProfile
	WalletAddress string
	Token         string
}

// Authenticated is derived: a validated profile backed by a token.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil && s.Token != ""
}

// Username returns the profile username or "".
func (s Session) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}
