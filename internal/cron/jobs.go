package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPruner is the subset of the dispatcher's session store needed
// by the prune job. Defined here to avoid a dependency on the dispatch
// package.
type SessionPruner interface {
	Prune(maxIdle time.Duration) int
	ActiveIDs() map[string]struct{}
}

// LaneCleaner drops per-session locks for sessions that no longer exist.
type LaneCleaner interface {
	Cleanup(activeIDs map[string]struct{})
}

// SessionPruneJob removes in-memory sessions idle longer than MaxIdle
// and releases their reply lanes.
type SessionPruneJob struct {
	Sessions     SessionPruner
	Lanes        LaneCleaner
	MaxIdle      time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/10 * * * *"
}

var _ Job = (*SessionPruneJob)(nil)

// Name implements Job.
func (j *SessionPruneJob) Name() string { return "session_prune" }

// Schedule implements Job.
func (j *SessionPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/10 * * * *"
}

// Run prunes idle sessions, then drops the lanes of whatever sessions
// remain gone.
func (j *SessionPruneJob) Run(_ context.Context) error {
	pruned := j.Sessions.Prune(j.MaxIdle)
	if j.Lanes != nil {
		j.Lanes.Cleanup(j.Sessions.ActiveIDs())
	}
	if pruned > 0 {
		j.logger().Info("cron: pruned idle sessions", "count", pruned)
	}
	return nil
}

func (j *SessionPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// Checkpointer flushes the durable store's write-ahead log.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// WALCheckpointJob truncates the sqlite WAL so the log file does not
// grow unbounded between restarts.
type WALCheckpointJob struct {
	Store        Checkpointer
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

var _ Job = (*WALCheckpointJob)(nil)

// Name implements Job.
func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

// Schedule implements Job.
func (j *WALCheckpointJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run performs the checkpoint.
func (j *WALCheckpointJob) Run(ctx context.Context) error {
	if err := j.Store.Checkpoint(ctx); err != nil {
		return fmt.Errorf("cron: wal checkpoint: %w", err)
	}
	j.logger().Debug("cron: wal checkpoint completed")
	return nil
}

func (j *WALCheckpointJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
