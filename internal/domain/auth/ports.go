package auth

import (
	"context"
	"time"
)

// AccountStore resolves and mutates local account rows. FindByName returns
// (nil, nil) when no account exists under the canonical name.
type AccountStore interface {
	FindByName(ctx context.Context, name string) (*Account, error)
	Create(ctx context.Context, name string) (*Account, error)
	SetPasswordHash(ctx context.Context, accountID int64, hash string) error
	SetAuthenticatedEmail(ctx context.Context, accountID int64, email string, authenticatedAt time.Time) error
	SetPendingEmail(ctx context.Context, accountID int64, email string) error
	UpdateImportedStats(ctx context.Context, accountID int64, editCount int64, registeredAt *time.Time) error
}

// GroupStore applies group memberships. AddMembership is set-if-absent on
// (account, group); an existing row only changes when its expiry differs.
type GroupStore interface {
	AddMembership(ctx context.Context, accountID int64, group string, expiry *time.Time) error
}

// OptionStore reads and writes per-account preference rows. CurrentOptions
// returns the effective option map (configured defaults overlaid with stored
// rows).
type OptionStore interface {
	CurrentOptions(ctx context.Context, accountID int64) (map[string]string, error)
	SetOption(ctx context.Context, accountID int64, key, value string) error
}

// WatchlistStore inserts watchlist entries idempotently, returning the number
// of rows actually added.
type WatchlistStore interface {
	AddEntries(ctx context.Context, accountID int64, entries []WatchlistEntry) (int64, error)
}

// ActorSource resolves stub/real actor pairs for a username. Results are not
// authoritative once returned; callers needing fresh data must re-query.
type ActorSource interface {
	MigrationPairs(ctx context.Context, username string) ([]ActorMigrationPair, error)
}

// JobEnqueuer hands job descriptors to the external scheduling sink.
type JobEnqueuer interface {
	EnqueueBatch(ctx context.Context, jobs []JobDescriptor) error
}
