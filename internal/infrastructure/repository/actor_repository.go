package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// ActorRepository resolves stub/real actor pairs: two actor rows sharing a
// name where one predates the account (actor_user NULL) and one was created
// at import time (actor_user set).
type ActorRepository struct {
	db *gorm.DB
}

func NewActorRepository(db *gorm.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

const migrationPairsSQL = `
SELECT a1.actor_id AS old_actor_id, a2.actor_id AS new_actor_id
FROM actor a1
JOIN actor a2 ON a1.actor_name = a2.actor_name
WHERE a1.actor_user IS NULL
  AND a2.actor_user IS NOT NULL
  AND a1.actor_name = ?
`

const allMigrationPairsSQL = `
SELECT a1.actor_id AS old_actor_id, a2.actor_id AS new_actor_id
FROM actor a1
JOIN actor a2 ON a1.actor_name = a2.actor_name
WHERE a1.actor_user IS NULL
  AND a2.actor_user IS NOT NULL
`

type migrationPairRow struct {
	OldActorID int64
	NewActorID int64
}

func (r *ActorRepository) MigrationPairs(ctx context.Context, username string) ([]domain.ActorMigrationPair, error) {
	var rows []migrationPairRow
	if err := r.db.WithContext(ctx).Raw(migrationPairsSQL, username).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("select actor migration pairs: %w", err)
	}
	return toDomainPairs(rows), nil
}

// AllMigrationPairs returns every stub/real pair on the wiki, used by the
// maintenance backfill when no username filter is given.
func (r *ActorRepository) AllMigrationPairs(ctx context.Context) ([]domain.ActorMigrationPair, error) {
	var rows []migrationPairRow
	if err := r.db.WithContext(ctx).Raw(allMigrationPairsSQL).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("select all actor migration pairs: %w", err)
	}
	return toDomainPairs(rows), nil
}

func toDomainPairs(rows []migrationPairRow) []domain.ActorMigrationPair {
	pairs := make([]domain.ActorMigrationPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, domain.ActorMigrationPair{
			OldActorID: row.OldActorID,
			NewActorID: row.NewActorID,
		})
	}
	return pairs
}
