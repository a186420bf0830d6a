package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/repository"
)

func TestAccountRepositoryIntegration(t *testing.T) {
	db := openTestGorm(t)
	ctx := context.Background()

	createSQL := `
    CREATE TABLE IF NOT EXISTS users (
      user_id BIGSERIAL PRIMARY KEY,
      user_name TEXT NOT NULL UNIQUE,
      user_password TEXT NOT NULL DEFAULT '',
      user_email TEXT NOT NULL DEFAULT '',
      user_email_authenticated TIMESTAMPTZ,
      user_email_token TEXT,
      user_email_token_expires TIMESTAMPTZ,
      user_editcount BIGINT NOT NULL DEFAULT 0,
      user_registration TIMESTAMPTZ,
      created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
      updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );
    `
	if err := db.Exec(createSQL).Error; err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if err := db.Exec("DELETE FROM users").Error; err != nil {
		t.Fatalf("failed to clear table: %v", err)
	}

	repo := repository.NewAccountRepository(db)

	missing, err := repo.FindByName(ctx, "Alice")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected no account, got %+v", missing)
	}

	created, err := repo.Create(ctx, "Alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if created.CanAuthenticate() {
		t.Fatal("a fresh account must start with an unusable credential")
	}

	if err := repo.SetPasswordHash(ctx, created.ID, "$2a$10$hash"); err != nil {
		t.Fatalf("set password failed: %v", err)
	}

	authedAt := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.SetAuthenticatedEmail(ctx, created.ID, "alice@example.com", authedAt); err != nil {
		t.Fatalf("set email failed: %v", err)
	}

	registered := time.Date(2008, 3, 10, 11, 5, 0, 0, time.UTC)
	if err := repo.UpdateImportedStats(ctx, created.ID, 1200, &registered); err != nil {
		t.Fatalf("update stats failed: %v", err)
	}

	found, err := repo.FindByName(ctx, "Alice")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected the account back")
	}
	if !found.CanAuthenticate() {
		t.Fatal("expected a usable credential after the hash was set")
	}
	if found.Email != "alice@example.com" || found.EmailAuthenticatedAt == nil {
		t.Fatalf("unexpected email state %q %v", found.Email, found.EmailAuthenticatedAt)
	}
	if found.EditCount != 1200 {
		t.Fatalf("expected editcount 1200, got %d", found.EditCount)
	}

	pending, err := repo.Create(ctx, "Bob")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.SetPendingEmail(ctx, pending.ID, "bob@example.com"); err != nil {
		t.Fatalf("set pending email failed: %v", err)
	}
	bob, err := repo.FindByName(ctx, "Bob")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if bob.Email != "bob@example.com" || bob.EmailAuthenticatedAt != nil {
		t.Fatalf("a pending email must not be authenticated, got %+v", bob)
	}
}
