package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

// JobHandler executes one claimed job. Returning a PermanentError fails the
// job immediately without further retries.
type JobHandler func(ctx context.Context, job domain.Job) error

type workerJobQueue interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.Job, error)
	Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error
	Complete(ctx context.Context, jobID string) error
	Requeue(ctx context.Context, jobID string, reason string) error
	Fail(ctx context.Context, jobID string, reason string) error
}

type WorkerConfig struct {
	Workers           int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
}

// Worker polls the job queue and dispatches claimed jobs by kind. Jobs are
// executed at-least-once; every handler must be idempotent under
// re-execution.
type Worker struct {
	queue    workerJobQueue
	handlers map[domain.JobKind]JobHandler
	cfg      WorkerConfig
	logger   logrus.FieldLogger

	once sync.Once
}

func NewWorker(queue workerJobQueue, handlers map[domain.JobKind]JobHandler, cfg WorkerConfig, logger logrus.FieldLogger) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 2
	}

	return &Worker{
		queue:    queue,
		handlers: handlers,
		cfg:      cfg,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *Worker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			w.logger.WithError(err).Error("claim next job failed")
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessJob(ctx, *job); err != nil {
			w.logger.WithFields(logrus.Fields{
				"job":  job.ID,
				"kind": job.Kind,
			}).WithError(err).Error("job processing failed")
		}
	}
}

// ProcessJob runs one job through its handler and settles its queue state.
func (w *Worker) ProcessJob(ctx context.Context, job domain.Job) error {
	handler, ok := w.handlers[job.Kind]
	if !ok {
		reason := fmt.Sprintf("no handler registered for job kind %q", job.Kind)
		if failErr := w.queue.Fail(ctx, job.ID, reason); failErr != nil {
			return fmt.Errorf("%s; fail update failed: %w", reason, failErr)
		}
		return fmt.Errorf("%s", reason)
	}

	err := w.runUnderLease(ctx, job, handler)
	if err == nil {
		if completeErr := w.queue.Complete(ctx, job.ID); completeErr != nil {
			return fmt.Errorf("complete job: %w", completeErr)
		}
		return nil
	}

	reason := truncateReason(err.Error())

	// Permanent failures indicate a data or operator problem, such as a job
	// referencing a user that no longer exists; retrying cannot fix those.
	if domain.IsPermanent(err) || job.Attempts >= job.MaxAttempts {
		if failErr := w.queue.Fail(ctx, job.ID, reason); failErr != nil {
			return fmt.Errorf("%v; fail update failed: %w", err, failErr)
		}
		return err
	}

	if requeueErr := w.queue.Requeue(ctx, job.ID, reason); requeueErr != nil {
		return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
	}
	return err
}

// runUnderLease executes the handler while extending the job lease on a
// ticker. A handler that outlives its lease would otherwise be reclaimed and
// run concurrently by another worker.
func (w *Worker) runUnderLease(ctx context.Context, job domain.Job, handler JobHandler) error {
	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- handler(handlerCtx, job)
	}()

	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			if err := w.queue.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
				// The lease can no longer be extended; stop the handler and
				// let the job be retried.
				w.logger.WithField("job", job.ID).WithError(err).Error("job heartbeat failed")
				cancel()
			}
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
