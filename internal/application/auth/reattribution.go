package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/mohammadpnp/wiki-auth/internal/config"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

const (
	actorMemoSize = 1024
	actorMemoTTL  = time.Minute
)

// ReattributionStore enumerates content rows still attributed to stub
// actors.
type ReattributionStore interface {
	SelectIDs(ctx context.Context, table domain.ContentTable, oldActorIDs []int64) ([]string, error)
	SelectLogSearchIDs(ctx context.Context, oldActorIDs []int64) ([]string, error)
}

// ActorMigrationIndex memoizes stub-to-real actor pairs per username for the
// duration of one scheduling pass. The memo is an optimization only: it is
// never authoritative, and lookups recompute on miss.
type ActorMigrationIndex struct {
	source domain.ActorSource
	memo   *expirable.LRU[string, []domain.ActorMigrationPair]
}

func NewActorMigrationIndex(source domain.ActorSource) *ActorMigrationIndex {
	return &ActorMigrationIndex{
		source: source,
		memo:   expirable.NewLRU[string, []domain.ActorMigrationPair](actorMemoSize, nil, actorMemoTTL),
	}
}

func (x *ActorMigrationIndex) Pairs(ctx context.Context, username string) ([]domain.ActorMigrationPair, error) {
	if pairs, ok := x.memo.Get(username); ok {
		return pairs, nil
	}

	pairs, err := x.source.MigrationPairs(ctx, username)
	if err != nil {
		return nil, err
	}

	x.memo.Add(username, pairs)
	return pairs, nil
}

// ReattributionScheduler enumerates content rows authored under a user's
// stub actor identity and emits bounded, idempotent update jobs for them.
type ReattributionScheduler struct {
	cfg    *config.Config
	index  *ActorMigrationIndex
	store  ReattributionStore
	jobs   domain.JobEnqueuer
	logger logrus.FieldLogger
}

func NewReattributionScheduler(
	cfg *config.Config,
	index *ActorMigrationIndex,
	store ReattributionStore,
	jobs domain.JobEnqueuer,
	logger logrus.FieldLogger,
) *ReattributionScheduler {
	return &ReattributionScheduler{
		cfg:    cfg,
		index:  index,
		store:  store,
		jobs:   jobs,
		logger: logger,
	}
}

// Schedule emits one job per id batch for every content table, plus the
// irregular log_search table. A user without a stub actor never authored
// anything before import, so scheduling is a no-op for them.
func (s *ReattributionScheduler) Schedule(ctx context.Context, username string) error {
	pairs, err := s.index.Pairs(ctx, username)
	if err != nil {
		return fmt.Errorf("resolve actor migration pairs: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	oldIDs := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		oldIDs = append(oldIDs, p.OldActorID)
	}

	pagesPerJob := s.cfg.PagesPerJob(s.logger)
	var descriptors []domain.JobDescriptor

	for _, table := range domain.ContentTables() {
		if table.ActorColumn == "" {
			// no actor-capable column on this schema, nothing to select
			continue
		}

		ids, err := s.store.SelectIDs(ctx, table, oldIDs)
		if err != nil {
			return fmt.Errorf("select %s rows for reattribution: %w", table.Name, err)
		}
		descriptors = append(descriptors, batchDescriptors(username, table.Name, ids, pagesPerJob)...)
	}

	// log_search stores heterogeneous entries keyed by a field-name
	// discriminator; only target_author_actor rows are candidates.
	logIDs, err := s.store.SelectLogSearchIDs(ctx, oldIDs)
	if err != nil {
		return fmt.Errorf("select log_search rows for reattribution: %w", err)
	}
	descriptors = append(descriptors, batchDescriptors(username, domain.LogSearchTable, logIDs, pagesPerJob)...)

	if len(descriptors) == 0 {
		return nil
	}

	if err := s.jobs.EnqueueBatch(ctx, descriptors); err != nil {
		return fmt.Errorf("enqueue reattribution jobs: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"username": username,
		"jobs":     len(descriptors),
	}).Info("scheduled edit reattribution")

	return nil
}

func batchDescriptors(username, table string, ids []string, pagesPerJob int) []domain.JobDescriptor {
	var out []domain.JobDescriptor
	for start := 0; start < len(ids); start += pagesPerJob {
		end := start + pagesPerJob
		if end > len(ids) {
			end = len(ids)
		}
		batch := make([]string, end-start)
		copy(batch, ids[start:end])
		out = append(out, domain.JobDescriptor{
			Kind: domain.JobReattributeEdits,
			Payload: domain.ReattributionPayload{
				Username: username,
				Table:    table,
				IDs:      batch,
			},
		})
	}
	return out
}
