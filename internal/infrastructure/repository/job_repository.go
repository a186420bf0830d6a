package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/db/models"
)

const (
	jobStatusQueued    = "queued"
	jobStatusRunning   = "running"
	jobStatusSucceeded = "succeeded"
	jobStatusFailed    = "failed"
)

// JobRepository is the Postgres-backed job queue: enqueue on one side,
// lease-based claiming on the other. Lost workers are recovered by claiming
// jobs whose lease has expired.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) EnqueueBatch(ctx context.Context, jobs []domain.JobDescriptor) error {
	if len(jobs) == 0 {
		return nil
	}

	rows := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		payload, err := json.Marshal(job.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", job.Kind, err)
		}
		rows = append(rows, models.Job{
			Kind:    string(job.Kind),
			Payload: payload,
			Status:  jobStatusQueued,
		})
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create jobs: %w", err)
	}
	return nil
}

const claimNextSQL = `
UPDATE jobs SET
  status = 'running',
  attempts = attempts + 1,
  started_at = COALESCE(started_at, NOW()),
  heartbeat_at = NOW(),
  lease_expires_at = NOW() + make_interval(secs => ?),
  updated_at = NOW()
WHERE id = (
  SELECT id FROM jobs
  WHERE status = 'queued'
     OR (status = 'running' AND lease_expires_at < NOW())
  ORDER BY created_at
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
RETURNING id, kind, payload, attempts, max_attempts
`

type claimedJobRow struct {
	ID          string
	Kind        string
	Payload     []byte
	Attempts    int
	MaxAttempts int
}

// ClaimNext leases the oldest runnable job, or returns (nil, nil) when the
// queue is empty.
func (r *JobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.Job, error) {
	var rows []claimedJobRow
	err := r.db.WithContext(ctx).
		Raw(claimNextSQL, leaseDuration.Seconds()).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &domain.Job{
		ID:          row.ID,
		Kind:        domain.JobKind(row.Kind),
		Payload:     json.RawMessage(row.Payload),
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
	}, nil
}

const heartbeatSQL = `
UPDATE jobs SET
  heartbeat_at = NOW(),
  lease_expires_at = NOW() + make_interval(secs => ?),
  updated_at = NOW()
WHERE id = ? AND status = 'running'
`

func (r *JobRepository) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	if err := r.db.WithContext(ctx).Exec(heartbeatSQL, leaseDuration.Seconds(), jobID).Error; err != nil {
		return fmt.Errorf("heartbeat job: %w", err)
	}
	return nil
}

func (r *JobRepository) Complete(ctx context.Context, jobID string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":           jobStatusSucceeded,
			"finished_at":      time.Now().UTC(),
			"error_message":    nil,
			"lease_expires_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (r *JobRepository) Requeue(ctx context.Context, jobID string, reason string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":           jobStatusQueued,
			"error_message":    reason,
			"lease_expires_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

func (r *JobRepository) Fail(ctx context.Context, jobID string, reason string) error {
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":        jobStatusFailed,
			"error_message": reason,
			"finished_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}
