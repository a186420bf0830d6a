package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	app "github.com/mohammadpnp/wiki-auth/internal/application/auth"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

type fakeJobQueue struct {
	claimedJob *domain.Job
	claimErr   error

	heartbeatErr  error
	heartbeats    int
	completed     bool
	requeued      bool
	failed        bool
	settledReason string
}

func (f *fakeJobQueue) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.Job, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	job := f.claimedJob
	f.claimedJob = nil
	return job, nil
}

func (f *fakeJobQueue) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	f.heartbeats++
	return f.heartbeatErr
}

func (f *fakeJobQueue) Complete(ctx context.Context, jobID string) error {
	f.completed = true
	return nil
}

func (f *fakeJobQueue) Requeue(ctx context.Context, jobID string, reason string) error {
	f.requeued = true
	f.settledReason = reason
	return nil
}

func (f *fakeJobQueue) Fail(ctx context.Context, jobID string, reason string) error {
	f.failed = true
	f.settledReason = reason
	return nil
}

func newTestWorker(queue *fakeJobQueue, handlers map[domain.JobKind]app.JobHandler) *app.Worker {
	return app.NewWorker(queue, handlers, app.WorkerConfig{
		Workers:       1,
		PollInterval:  time.Millisecond,
		LeaseDuration: time.Second,
	}, testLogger())
}

func TestProcessJobDispatchesByKindAndCompletes(t *testing.T) {
	t.Parallel()

	queue := &fakeJobQueue{}
	var handled domain.JobKind
	worker := newTestWorker(queue, map[domain.JobKind]app.JobHandler{
		domain.JobPopulateWatchlist: func(ctx context.Context, job domain.Job) error {
			handled = job.Kind
			return nil
		},
	})

	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobPopulateWatchlist, Attempts: 1, MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if handled != domain.JobPopulateWatchlist {
		t.Fatalf("expected the watchlist handler to run, got %q", handled)
	}
	if !queue.completed {
		t.Fatal("expected the job to be completed")
	}
}

func TestProcessJobPermanentErrorFailsImmediately(t *testing.T) {
	t.Parallel()

	queue := &fakeJobQueue{}
	worker := newTestWorker(queue, map[domain.JobKind]app.JobHandler{
		domain.JobReattributeEdits: func(ctx context.Context, job domain.Job) error {
			return domain.Permanent(errors.New("user gone"))
		},
	})

	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobReattributeEdits, Attempts: 1, MaxAttempts: 5,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !queue.failed {
		t.Fatal("a permanent error must fail the job")
	}
	if queue.requeued {
		t.Fatal("a permanent error must not be retried")
	}
}

func TestProcessJobRetriesUntilMaxAttempts(t *testing.T) {
	t.Parallel()

	handlers := map[domain.JobKind]app.JobHandler{
		domain.JobPopulateWatchlist: func(ctx context.Context, job domain.Job) error {
			return errors.New("db briefly away")
		},
	}

	queue := &fakeJobQueue{}
	worker := newTestWorker(queue, handlers)
	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobPopulateWatchlist, Attempts: 1, MaxAttempts: 3,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !queue.requeued || queue.failed {
		t.Fatalf("expected requeue before the attempt budget runs out, requeued=%v failed=%v",
			queue.requeued, queue.failed)
	}

	queue = &fakeJobQueue{}
	worker = newTestWorker(queue, handlers)
	err = worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobPopulateWatchlist, Attempts: 3, MaxAttempts: 3,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !queue.failed || queue.requeued {
		t.Fatalf("expected fail at the attempt budget, requeued=%v failed=%v",
			queue.requeued, queue.failed)
	}
}

func TestProcessJobHeartbeatsWhileHandlerRuns(t *testing.T) {
	t.Parallel()

	queue := &fakeJobQueue{}
	worker := app.NewWorker(queue, map[domain.JobKind]app.JobHandler{
		domain.JobReattributeEdits: func(ctx context.Context, job domain.Job) error {
			time.Sleep(120 * time.Millisecond)
			return nil
		},
	}, app.WorkerConfig{
		Workers:           1,
		PollInterval:      time.Millisecond,
		LeaseDuration:     40 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
	}, testLogger())

	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobReattributeEdits, Attempts: 1, MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if queue.heartbeats < 2 {
		t.Fatalf("a handler outliving its lease must keep heartbeating, got %d heartbeats", queue.heartbeats)
	}
	if !queue.completed {
		t.Fatal("expected the job to be completed")
	}
}

func TestProcessJobStopsHandlerWhenLeaseIsLost(t *testing.T) {
	t.Parallel()

	queue := &fakeJobQueue{heartbeatErr: errors.New("lease lost")}
	worker := app.NewWorker(queue, map[domain.JobKind]app.JobHandler{
		domain.JobReattributeEdits: func(ctx context.Context, job domain.Job) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}, app.WorkerConfig{
		Workers:           1,
		PollInterval:      time.Millisecond,
		LeaseDuration:     20 * time.Millisecond,
		HeartbeatInterval: 5 * time.Millisecond,
	}, testLogger())

	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: domain.JobReattributeEdits, Attempts: 1, MaxAttempts: 5,
	})
	if err == nil {
		t.Fatal("expected an error after the lease is lost")
	}
	if !queue.requeued {
		t.Fatal("an interrupted job must be requeued for another attempt")
	}
}

func TestProcessJobWithoutHandlerFails(t *testing.T) {
	t.Parallel()

	queue := &fakeJobQueue{}
	worker := newTestWorker(queue, map[domain.JobKind]app.JobHandler{})

	err := worker.ProcessJob(context.Background(), domain.Job{
		ID: "job-1", Kind: "mystery", Attempts: 1, MaxAttempts: 5,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !queue.failed {
		t.Fatal("a job without a handler must be failed, not retried")
	}
}
