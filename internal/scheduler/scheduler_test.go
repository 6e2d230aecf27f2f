package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline on the job context")
	}
	j.runs.Add(1)
	return j.err
}

func TestScheduler_RunNow(t *testing.T) {
	t.Run("returns_job_result", func(t *testing.T) {
		s := New()
		job := &countingJob{}
		if err := s.RunNow(job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.runs.Load() != 1 {
			t.Errorf("expected 1 run, got %d", job.runs.Load())
		}
	})

	t.Run("propagates_failure", func(t *testing.T) {
		s := New()
		boom := errors.New("boom")
		if err := s.RunNow(&countingJob{err: boom}); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestScheduler_AddJob(t *testing.T) {
	t.Run("rejects_invalid_spec", func(t *testing.T) {
		s := New()
		if err := s.AddJob("not a spec", &countingJob{}); err == nil {
			t.Error("expected an error for an invalid spec")
		}
	})

	t.Run("runs_on_schedule", func(t *testing.T) {
		s := New()
		job := &countingJob{}
		if err := s.AddJob("@every 1s", job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.Start()
		defer s.Stop()

		deadline := time.Now().Add(3 * time.Second)
		for job.runs.Load() == 0 && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		if job.runs.Load() == 0 {
			t.Error("expected the job to run at least once")
		}
	})
}
