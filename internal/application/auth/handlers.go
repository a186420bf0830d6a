package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// ReattributionApplier issues the conditional authorship updates. Updates
// are keyed on the old actor id so re-execution against already-updated rows
// affects nothing.
type ReattributionApplier interface {
	Reattribute(ctx context.Context, table domain.ContentTable, ids []string, pairs []domain.ActorMigrationPair) (int64, error)
	ReattributeLogSearch(ctx context.Context, ids []string, pairs []domain.ActorMigrationPair) (int64, error)
}

// NewWatchlistJobHandler builds the handler for populateImportedWatchlist
// jobs: it resolves the target account and inserts the batch set-if-absent.
// Titles invalid under local rules are skipped rather than failing the
// batch, since title configuration can differ between the wikis.
func NewWatchlistJobHandler(accounts domain.AccountStore, watchlist domain.WatchlistStore, logger logrus.FieldLogger) JobHandler {
	return func(ctx context.Context, job domain.Job) error {
		var payload domain.WatchlistBatchPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return domain.Permanent(fmt.Errorf("decode watchlist payload: %w", err))
		}

		account, err := accounts.FindByName(ctx, payload.Username)
		if err != nil {
			return fmt.Errorf("resolve account %q: %w", payload.Username, err)
		}
		if account == nil {
			return domain.Permanent(fmt.Errorf(
				"attempting to import watchlist pages for nonexistent user %q", payload.Username))
		}

		entries := make([]domain.WatchlistEntry, 0, len(payload.Pages))
		for _, page := range payload.Pages {
			title, ok := domain.NormalizeTitle(page.Namespace, page.Title)
			if !ok {
				logger.WithFields(logrus.Fields{
					"username": payload.Username,
					"ns":       page.Namespace,
					"title":    page.Title,
				}).Warn("skipping locally invalid watchlist title")
				continue
			}
			entries = append(entries, domain.WatchlistEntry{
				Namespace: page.Namespace,
				Title:     title,
				Changed:   page.Changed,
			})
		}

		if len(entries) == 0 {
			return nil
		}

		added, err := watchlist.AddEntries(ctx, account.ID, entries)
		if err != nil {
			return fmt.Errorf("add watchlist entries: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"username": payload.Username,
			"batch":    len(entries),
			"added":    added,
		}).Info("imported watchlist batch")

		return nil
	}
}

// NewReattributionJobHandler builds the handler for reattributeImportedEdits
// jobs. The actor pair is re-resolved at run time: a pair captured at
// scheduling time could be stale by the time the job executes.
func NewReattributionJobHandler(
	accounts domain.AccountStore,
	actors domain.ActorSource,
	applier ReattributionApplier,
	logger logrus.FieldLogger,
) JobHandler {
	return func(ctx context.Context, job domain.Job) error {
		var payload domain.ReattributionPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return domain.Permanent(fmt.Errorf("decode reattribution payload: %w", err))
		}

		account, err := accounts.FindByName(ctx, payload.Username)
		if err != nil {
			return fmt.Errorf("resolve account %q: %w", payload.Username, err)
		}
		if account == nil {
			return domain.Permanent(fmt.Errorf(
				"attempting to reattribute edits for nonexistent user %q", payload.Username))
		}

		pairs, err := actors.MigrationPairs(ctx, account.Name)
		if err != nil {
			return fmt.Errorf("resolve actor migration pairs: %w", err)
		}
		if len(pairs) == 0 {
			return nil
		}

		var updated int64
		if payload.Table == domain.LogSearchTable {
			updated, err = applier.ReattributeLogSearch(ctx, payload.IDs, pairs)
		} else {
			table, ok := domain.ContentTableByName(payload.Table)
			if !ok {
				return domain.Permanent(fmt.Errorf("unknown reattribution table %q", payload.Table))
			}
			if table.ActorColumn == "" {
				// table doesn't support actors on this schema, skip it
				return nil
			}
			updated, err = applier.Reattribute(ctx, table, payload.IDs, pairs)
		}
		if err != nil {
			return fmt.Errorf("reattribute %s rows: %w", payload.Table, err)
		}

		logger.WithFields(logrus.Fields{
			"username": payload.Username,
			"table":    payload.Table,
			"ids":      len(payload.IDs),
			"updated":  updated,
		}).Info("reattributed content batch")

		return nil
	}
}
