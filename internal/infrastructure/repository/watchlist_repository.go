package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// WatchlistRepository bulk-loads watched pages for an account. Each batch is
// staged with COPY and merged set-based; pages already on the watchlist are
// left untouched, so replaying a batch adds nothing.
type WatchlistRepository struct {
	pool *pgxpool.Pool
}

func NewWatchlistRepository(pool *pgxpool.Pool) *WatchlistRepository {
	return &WatchlistRepository{pool: pool}
}

const mergeWatchlistSQL = `
WITH staged AS (
    SELECT DISTINCT ns, title
    FROM stg_watchlist
    WHERE batch_id = $1
), inserted AS (
    INSERT INTO watchlist (wl_user, wl_namespace, wl_title)
    SELECT $2, ns, title
    FROM staged
    ON CONFLICT (wl_user, wl_namespace, wl_title) DO NOTHING
    RETURNING wl_id
)
SELECT COUNT(*) FROM inserted
`

// AddEntries merges the given pages into the account's watchlist and returns
// how many were newly added.
func (r *WatchlistRepository) AddEntries(ctx context.Context, accountID int64, entries []domain.WatchlistEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batchID := uuid.NewString()
	stagedRows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		stagedRows = append(stagedRows, []any{batchID, entry.Namespace, entry.Title})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"stg_watchlist"},
		[]string{"batch_id", "ns", "title"},
		pgx.CopyFromRows(stagedRows),
	); err != nil {
		return 0, fmt.Errorf("copy watchlist staging: %w", err)
	}

	var added int64
	if err := tx.QueryRow(ctx, mergeWatchlistSQL, batchID, accountID).Scan(&added); err != nil {
		return 0, fmt.Errorf("merge watchlist batch: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stg_watchlist WHERE batch_id = $1", batchID); err != nil {
		return 0, fmt.Errorf("cleanup stg_watchlist: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit watchlist batch: %w", err)
	}

	return added, nil
}
