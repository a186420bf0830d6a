package repository_test

import (
	"context"
	"testing"

	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/repository"
)

func TestActorRepositoryMigrationPairsIntegration(t *testing.T) {
	db := openTestGorm(t)
	ctx := context.Background()

	createSQL := `
    CREATE TABLE IF NOT EXISTS actor (
      actor_id BIGSERIAL PRIMARY KEY,
      actor_user BIGINT,
      actor_name TEXT NOT NULL
    );
    `
	if err := db.Exec(createSQL).Error; err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if err := db.Exec("DELETE FROM actor").Error; err != nil {
		t.Fatalf("failed to clear table: %v", err)
	}

	seedSQL := `
    INSERT INTO actor (actor_id, actor_user, actor_name) VALUES
      (1, NULL, 'Alice'),
      (2, 7, 'Alice'),
      (3, NULL, 'Ghost'),
      (4, 8, 'Bob');
    `
	if err := db.Exec(seedSQL).Error; err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	repo := repository.NewActorRepository(db)

	pairs, err := repo.MigrationPairs(ctx, "Alice")
	if err != nil {
		t.Fatalf("migration pairs failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one pair for Alice, got %d", len(pairs))
	}
	if pairs[0].OldActorID != 1 || pairs[0].NewActorID != 2 {
		t.Fatalf("unexpected pair %+v", pairs[0])
	}

	// Ghost has only a stub actor and Bob only a real one; neither pairs up
	pairs, err = repo.MigrationPairs(ctx, "Ghost")
	if err != nil {
		t.Fatalf("migration pairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs for Ghost, got %d", len(pairs))
	}

	all, err := repo.AllMigrationPairs(ctx)
	if err != nil {
		t.Fatalf("all migration pairs failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one pair on the whole wiki, got %d", len(all))
	}
}
