// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const cleanupTimeout = time.Minute

// Janitor periodically deletes expired history records on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	store  Store
	spec   string
	logger *slog.Logger
}

// NewJanitor returns a Janitor that runs store.CleanupExpired on spec
// (e.g. "@every 1h"). An empty spec uses DefaultCleanupSchedule.
func NewJanitor(store Store, spec string, logger *slog.Logger) *Janitor {
	if spec == "" {
		spec = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Janitor{
		cron:   cron.New(cron.WithLogger(cronLogger{logger}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		store:  store,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the cleanup job and starts the scheduler. ctx bounds every
// cleanup run.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling history cleanup %q: %w", j.spec, err)
	}
	j.cron.Start()
	j.logger.Info("history cleanup scheduled", "spec", j.spec)
	return nil
}

// Stop halts the scheduler and waits for a running cleanup to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce deletes expired records now and returns how many were removed.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	n, err := j.store.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("history cleanup failed", "err", err)
		return 0, err
	}
	if n > 0 {
		j.logger.Info("history cleanup", "removed", n)
	}
	return n, nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
