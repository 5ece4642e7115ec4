// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/jobstream/pkg/types"
)

const defaultPlatformTimeout = 20 * time.Second

var errBatchesClosed = errors.New("platform search already reported")

// Sink receives the events of one run in submission order. A non-nil error
// from Emit means the event was not delivered; the aggregator then cancels
// the run and emits nothing further.
type Sink interface {
	Emit(types.Event) error
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Observer is told about platform and run results. Implementations must be
// safe for concurrent use.
type Observer interface {
	PlatformDone(platform string, accepted int, elapsed time.Duration, err error)
	DuplicatesDropped(platform string, n int)
	RunDone(outcome Outcome, totalJobs int)
}

type nopObserver struct{}

func (nopObserver) PlatformDone(string, int, time.Duration, error) {}
func (nopObserver) DuplicatesDropped(string, int)                  {}
func (nopObserver) RunDone(Outcome, int)                           {}

// AdmitFunc decides whether a run may start. A non-nil error fails the run
// before any platform is searched.
type AdmitFunc func(ctx context.Context, q Query) error

// Summary describes a finished run.
type Summary struct {
	RunID          string
	Outcome        Outcome
	TotalJobs      int
	PlatformErrors []*PlatformError
}

// Aggregator runs queries against a fixed set of platforms. One Aggregator
// serves any number of concurrent runs; all per-run state lives in Run.
type Aggregator struct {
	platforms []Platform
	cfg       types.StreamConfig
	logger    *slog.Logger
	observer  Observer
	admit     AdmitFunc
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for run and platform diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithObserver sets the receiver of run and platform results.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// WithAdmission installs a check run before any platform is dispatched.
func WithAdmission(f AdmitFunc) Option {
	return func(a *Aggregator) { a.admit = f }
}

// NewAggregator returns an Aggregator over platforms.
func NewAggregator(platforms []Platform, cfg types.StreamConfig, opts ...Option) *Aggregator {
	if cfg.PlatformTimeout <= 0 {
		cfg.PlatformTimeout = defaultPlatformTimeout
	}
	a := &Aggregator{
		platforms: platforms,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PlatformNames lists the registered platforms in registration order.
func (a *Aggregator) PlatformNames() []string {
	return names(a.platforms)
}

// outcome is what a platform task sends to the run loop: either a batch of
// filtered, platform-tagged postings or, exactly once and last, its
// completion.
type outcome struct {
	platform string
	jobs     []types.JobPosting
	done     bool
	err      *PlatformError
	elapsed  time.Duration
}

// Run executes one search run and writes its events to sink: start, then
// progress, jobs and platform-complete events as platforms report, then
// complete. A run-level fault emits error instead and returns *RunError.
// If ctx is cancelled or sink fails, Run stops emitting and cancels the
// outstanding platform searches. A platform that ignores its context may
// keep running after Run returns; its results are discarded.
func (a *Aggregator) Run(ctx context.Context, query Query, sink Sink) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	q := query.Normalize()
	selected, selErr := a.selectPlatforms(q.Platforms)
	log := a.logger.With("run_id", sum.RunID)

	start := types.StartEvent{
		RunID:     sum.RunID,
		Keywords:  q.Keywords,
		Location:  q.Location,
		Platforms: names(selected),
	}
	if err := emit(ctx, sink, start); err != nil {
		return a.abort(log, sum, err)
	}

	fault := q.Validate()
	if fault == nil {
		fault = selErr
	}
	if fault == nil && a.admit != nil {
		if err := a.admit(ctx, q); err != nil {
			fault = asRunError("run refused", err)
		}
	}
	if fault != nil {
		return a.fail(ctx, log, sink, sum, fault)
	}

	log.Info("run started", "keywords", q.Keywords, "location", q.Location, "platforms", len(selected))
	for _, p := range selected {
		ev := types.ProgressEvent{Platform: p.Name(), Message: "searching " + p.Name()}
		if err := emit(ctx, sink, ev); err != nil {
			return a.abort(log, sum, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome)
	go a.dispatch(runCtx, selected, q, results)

	dedup := NewDeduplicator(a.cfg.Identity)

	accepted := make(map[string]int, len(selected))
	var stopErr error
	for msg := range results {
		if stopErr != nil {
			continue
		}
		if err := runCtx.Err(); err != nil {
			stopErr = err
			continue
		}
		if err := a.handle(runCtx, log, sink, dedup, msg, accepted, &sum); err != nil {
			stopErr = err
			cancel()
		}
	}
	if stopErr == nil {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		return a.abort(log, sum, stopErr)
	}

	if err := emit(ctx, sink, types.CompleteEvent{TotalJobs: sum.TotalJobs}); err != nil {
		return a.abort(log, sum, err)
	}
	sum.Outcome = OutcomeCompleted
	a.observer.RunDone(OutcomeCompleted, sum.TotalJobs)
	log.Info("run complete", "total_jobs", sum.TotalJobs, "platform_errors", len(sum.PlatformErrors))
	return sum, nil
}

// handle turns one platform message into events. Only the run loop touches
// dedup, so an identity is marked seen only for postings about to be emitted.
func (a *Aggregator) handle(ctx context.Context, log *slog.Logger, sink Sink, dedup *Deduplicator, msg outcome, accepted map[string]int, sum *Summary) error {
	if len(msg.jobs) > 0 {
		kept := dedup.Filter(msg.jobs)
		if n := len(msg.jobs) - len(kept); n > 0 {
			a.observer.DuplicatesDropped(msg.platform, n)
		}
		if len(kept) > 0 {
			if err := emit(ctx, sink, types.JobsEvent{Platform: msg.platform, Jobs: kept}); err != nil {
				return err
			}
			accepted[msg.platform] += len(kept)
			sum.TotalJobs += len(kept)
		}
	}
	if !msg.done {
		return nil
	}

	pc := types.PlatformCompleteEvent{Platform: msg.platform, JobCount: accepted[msg.platform]}
	var perr error
	if msg.err != nil {
		pc.Error = msg.err.Reason
		perr = msg.err
		sum.PlatformErrors = append(sum.PlatformErrors, msg.err)
		log.Warn("platform failed", "platform", msg.platform, "reason", msg.err.Reason, "err", msg.err.Err)
	} else {
		log.Debug("platform done", "platform", msg.platform, "jobs", pc.JobCount, "elapsed", msg.elapsed)
	}
	a.observer.PlatformDone(msg.platform, pc.JobCount, msg.elapsed, perr)
	return emit(ctx, sink, pc)
}

// fail ends a run with a single error event.
func (a *Aggregator) fail(ctx context.Context, log *slog.Logger, sink Sink, sum Summary, fault error) (Summary, error) {
	if err := emit(ctx, sink, types.ErrorEvent{Message: fault.Error()}); err != nil {
		return a.abort(log, sum, err)
	}
	sum.Outcome = OutcomeFailed
	a.observer.RunDone(OutcomeFailed, 0)
	log.Info("run failed", "err", fault)
	return sum, fault
}

func (a *Aggregator) abort(log *slog.Logger, sum Summary, err error) (Summary, error) {
	sum.Outcome = OutcomeCancelled
	a.observer.RunDone(OutcomeCancelled, sum.TotalJobs)
	log.Info("run cancelled", "err", err)
	return sum, err
}

// dispatch runs one task per platform and closes out once every task has
// returned. Tasks never return errors: one platform failing must not cancel
// its siblings.
func (a *Aggregator) dispatch(ctx context.Context, platforms []Platform, q Query, out chan<- outcome) {
	defer close(out)
	var g errgroup.Group
	if a.cfg.MaxConcurrency > 0 {
		g.SetLimit(a.cfg.MaxConcurrency)
	}
	for _, p := range platforms {
		g.Go(func() error {
			a.searchPlatform(ctx, p, q, out)
			return nil
		})
	}
	_ = g.Wait()
}

// searchPlatform runs one platform search under its own timeout and reports
// its batches and completion on out. The timeout bounds the search only:
// once the search has returned, delivery waits on the run context alone.
func (a *Aggregator) searchPlatform(ctx context.Context, p Platform, q Query, out chan<- outcome) {
	if ctx.Err() != nil {
		return
	}
	name := p.Name()
	started := time.Now()
	pctx, cancel := context.WithTimeout(ctx, a.cfg.PlatformTimeout)
	defer cancel()

	b := &batcher{
		ctx:      pctx,
		platform: name,
		exclude:  q.Exclude,
		out:      out,
	}
	// found is only read after fn has returned nil.
	var found []types.JobPosting
	err := callWithDeadline(pctx, func(ctx context.Context) error {
		if pager, ok := p.(Pager); ok {
			return pager.SearchPages(ctx, q, a.cfg, b.emit)
		}
		jobs, err := p.Search(ctx, q, a.cfg)
		found = jobs
		return err
	})
	b.close()
	if err == nil {
		if b.send(ctx, found) != nil {
			return
		}
	}

	done := outcome{platform: name, done: true, elapsed: time.Since(started)}
	if err != nil {
		done.err = classify(ctx, pctx, name, err)
	}
	select {
	case out <- done:
	case <-ctx.Done():
	}
}

// batcher drops red-flagged postings from one platform's pages, tags them
// with the platform, and forwards them to the run loop until the platform's
// search returns.
type batcher struct {
	ctx      context.Context
	platform string
	exclude  []string
	out      chan<- outcome

	mu     sync.Mutex
	closed bool
}

func (b *batcher) emit(batch []types.JobPosting) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errBatchesClosed
	}
	if err := b.ctx.Err(); err != nil {
		return err
	}
	return b.send(b.ctx, batch)
}

// send forwards batch to the run loop, giving up when ctx is done.
func (b *batcher) send(ctx context.Context, batch []types.JobPosting) error {
	tagged := make([]types.JobPosting, 0, len(batch))
	for _, j := range dropRedFlags(batch, b.exclude) {
		if j.Platform == "" {
			j.Platform = b.platform
		}
		tagged = append(tagged, j)
	}
	if len(tagged) == 0 {
		return nil
	}

	select {
	case b.out <- outcome{platform: b.platform, jobs: tagged}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *batcher) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// callWithDeadline runs fn and returns its error, or ctx.Err() as soon as
// ctx is done even when fn ignores its context. A panic in fn is returned as
// an error.
func callWithDeadline(ctx context.Context, fn func(context.Context) error) error {
	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("panic: %v", r)
			}
		}()
		errc <- fn(ctx)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		select {
		case err := <-errc:
			return err
		default:
			return ctx.Err()
		}
	}
}

// classify maps a platform search error to the reason reported to clients.
func classify(runCtx, platformCtx context.Context, platform string, err error) *PlatformError {
	switch {
	case runCtx.Err() != nil:
		return &PlatformError{Platform: platform, Reason: ReasonCancelled, Err: err}
	case errors.Is(platformCtx.Err(), context.DeadlineExceeded):
		return &PlatformError{Platform: platform, Reason: ReasonTimeout, Err: err}
	default:
		return &PlatformError{Platform: platform, Reason: err.Error(), Err: err}
	}
}

// selectPlatforms resolves the query's platform allow-list.
func (a *Aggregator) selectPlatforms(want []string) ([]Platform, error) {
	if len(a.platforms) == 0 {
		return nil, &RunError{Message: "no platforms configured"}
	}
	if len(want) == 0 {
		return a.platforms, nil
	}
	byName := make(map[string]Platform, len(a.platforms))
	for _, p := range a.platforms {
		byName[p.Name()] = p
	}
	var selected []Platform
	picked := make(map[string]bool, len(want))
	for _, n := range want {
		p, ok := byName[n]
		if !ok {
			return nil, &RunError{Message: fmt.Sprintf("unknown platform %q", n)}
		}
		if !picked[n] {
			picked[n] = true
			selected = append(selected, p)
		}
	}
	return selected, nil
}

func emit(ctx context.Context, sink Sink, ev types.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return sink.Emit(ev)
}

func asRunError(msg string, err error) *RunError {
	var re *RunError
	if errors.As(err, &re) {
		return re
	}
	return &RunError{Message: msg, Err: err}
}

func names(platforms []Platform) []string {
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, p.Name())
	}
	return out
}
