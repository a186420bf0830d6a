package auth

// RemoteCredential is the username/password pair submitted for a login
// attempt, plus the optional bot name when the submitted username contained
// an "@" separator. It lives only in the short-lived credential stash between
// authentication and account materialization.
type RemoteCredential struct {
	Username string
	Password string
	BotName  string
}

// GroupMembership is a remote group assignment with an optional expiry.
// Expiry is the raw remote token; "infinite", "indefinite", "infinity" and
// "never" all mean no expiry.
type GroupMembership struct {
	Group  string
	Expiry string
}

// RemoteUserInfo is a read-only snapshot of the remote account profile,
// consumed once during import and never persisted verbatim.
type RemoteUserInfo struct {
	Name               string
	Groups             []string
	GroupMemberships   []GroupMembership
	Email              string
	EmailAuthenticated string
	Options            map[string]any
	EditCount          int64
	RegistrationDate   string
	HasNewMessages     bool
}

// WatchlistEntry is one remote watchlist row. Title carries the remote
// namespace prefix for entries outside the main namespace.
type WatchlistEntry struct {
	Namespace int    `json:"ns"`
	Title     string `json:"title"`
	Changed   string `json:"changed,omitempty"`
}

// ActorMigrationPair maps a stub actor identity (rows authored before the
// account was imported) to the real actor identity created at import time.
type ActorMigrationPair struct {
	OldActorID int64
	NewActorID int64
}
