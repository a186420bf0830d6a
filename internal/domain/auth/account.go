package auth

import "time"

// Account is the local wiki account row as seen by the application layer.
type Account struct {
	ID                   int64
	Name                 string
	PasswordHash         string
	Email                string
	EmailAuthenticatedAt *time.Time
	EditCount            int64
	RegisteredAt         *time.Time
}

// CanAuthenticate reports whether the account carries a usable credential.
// Stub accounts created ahead of a remote import have an empty hash.
func (a *Account) CanAuthenticate() bool {
	return a != nil && a.PasswordHash != ""
}
