package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingCheckpointer holds Run open until released, for overlap tests.
type blockingCheckpointer struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (c *blockingCheckpointer) Checkpoint(_ context.Context) error {
	c.calls.Add(1)
	c.started <- struct{}{}
	<-c.release
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())

	// Two prune jobs share the name "session_prune".
	if err := s.RegisterJob(&SessionPruneJob{Sessions: &stubSessions{}}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&SessionPruneJob{Sessions: &stubSessions{}}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	_ = s.RegisterJob(&WALCheckpointJob{
		Store:        &stubCheckpointer{},
		ScheduleExpr: "every minute",
	})

	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	_ = s.RegisterJob(&SessionPruneJob{
		Sessions: &stubSessions{},
		MaxIdle:  time.Hour,
		Logger:   discardLogger(),
	})
	_ = s.RegisterJob(&WALCheckpointJob{
		Store:  &stubCheckpointer{},
		Logger: discardLogger(),
	})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil) // should not panic
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestScheduler_OverlappingTickSkipped(t *testing.T) {
	t.Parallel()

	store := &blockingCheckpointer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := NewScheduler(discardLogger())
	job := &WALCheckpointJob{Store: store, Logger: discardLogger()}
	if err := s.RegisterJob(job); err != nil {
		t.Fatalf("register: %v", err)
	}
	e := s.entries[job.Name()]

	ctx := context.Background()
	go s.tick(ctx, e)
	<-store.started // first tick is now inside Checkpoint

	// Overlapping ticks must skip, not queue.
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(ctx, e)
		}()
	}
	wg.Wait()
	close(store.release)

	if got := store.calls.Load(); got != 1 {
		t.Errorf("Checkpoint ran %d times, want 1", got)
	}
}

func TestScheduler_TickSurvivesJobError(t *testing.T) {
	t.Parallel()

	store := &stubCheckpointer{err: errors.New("database is locked")}
	s := NewScheduler(discardLogger())
	job := &WALCheckpointJob{Store: store, Logger: discardLogger()}
	if err := s.RegisterJob(job); err != nil {
		t.Fatalf("register: %v", err)
	}

	e := s.entries[job.Name()]
	s.tick(context.Background(), e) // must not panic
	s.tick(context.Background(), e) // guard released after a failed run

	if store.calls != 2 {
		t.Errorf("Checkpoint ran %d times, want 2", store.calls)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(discardLogger())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
