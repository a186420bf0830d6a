package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/repository"
)

func main() {
	_ = godotenv.Load()

	var username string

	cmd := &cobra.Command{
		Use:   "reattribute",
		Short: "Rewrite content authorship from stub actors to imported accounts",
		Long: "Rewrites actor references on content tables from pre-import stub actors " +
			"to the actors created at import time. With --user only that account's " +
			"content is touched; without it every importable stub on the wiki is migrated.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), username)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "restrict the backfill to one account name")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, username string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}
	defer pool.Close()

	accounts := repository.NewAccountRepository(db)
	actors := repository.NewActorRepository(db)
	reattribution := repository.NewReattributionRepository(pool)

	var pairs []domain.ActorMigrationPair
	if username != "" {
		canonical, err := domain.CanonicalizeUsername(username)
		if err != nil {
			return fmt.Errorf("invalid username %q: %w", username, err)
		}
		account, err := accounts.FindByName(ctx, canonical)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("no local account named %q", canonical)
		}
		pairs, err = actors.MigrationPairs(ctx, canonical)
		if err != nil {
			return err
		}
	} else {
		pairs, err = actors.AllMigrationPairs(ctx)
		if err != nil {
			return err
		}
	}

	if len(pairs) == 0 {
		fmt.Println("Nothing to reattribute.")
		return nil
	}

	for _, table := range domain.ContentTables() {
		if table.ActorColumn == "" {
			continue
		}
		updated, err := reattribution.BackfillTable(ctx, table, pairs)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d records on %s.\n", updated, table.Name)
	}

	updated, err := reattribution.BackfillLogSearch(ctx, pairs)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d records on %s.\n", updated, domain.LogSearchTable)

	return nil
}
