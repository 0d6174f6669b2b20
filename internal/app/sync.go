package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SyncState is the position of the sync engine inside a cycle.
type SyncState string

// Cycle states. Failed is reported once and then the engine returns to Idle.
const (
	SyncIdle       SyncState = "idle"
	SyncFetching   SyncState = "fetching"
	SyncMerging    SyncState = "merging"
	SyncPersisting SyncState = "persisting"
	SyncFailed     SyncState = "failed"
)

// Cycle triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Status messages emitted by a cycle.
const (
	msgSyncStarted = "Syncing with server..."
	msgSynced      = "Synced with server."
	msgSyncFailed  = "Sync failed; local quotes were kept."
	msgSyncOffline = "Server unreachable; local quotes kept."
)

// Metric results, mirrored by platform/metrics.
const (
	cycleSuccess = "success"
	cycleFailed  = "failed"
	cycleSkipped = "skipped"
)

// SyncObserver receives cycle measurements.
type SyncObserver interface {
	ObserveCycle(result string, d time.Duration)
	ObserveConflicts(n int)
	ObserveCollectionSize(n int)
}

type noopObserver struct{}

func (noopObserver) ObserveCycle(string, time.Duration) {}
func (noopObserver) ObserveConflicts(int)               {}
func (noopObserver) ObserveCollectionSize(int)          {}

// SyncReport describes one finished cycle.
type SyncReport struct {
	CycleID        string         `json:"cycleId"`
	Trigger        string         `json:"trigger"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
	RemoteCount    int            `json:"remoteCount"`
	Conflicts      []domain.Quote `json:"conflicts"`
	CollectionSize int            `json:"collectionSize"`
	Message        string         `json:"message"`
	Error          string         `json:"error,omitempty"`

	// RemoteError is set when the fetch failed and the cycle went on with an
	// empty snapshot.
	RemoteError string `json:"remoteError,omitempty"`
}

// Failed reports whether the cycle ended without persisting.
func (r SyncReport) Failed() bool {
	return r.Error != ""
}

// SyncEngine reconciles the local collection with the remote snapshot.
// Remote quotes win every collision by text.
type SyncEngine struct {
	store      *QuoteStore
	categories *CategoryIndex
	remote     ports.RemoteQuoteSource
	notifier   ports.StatusNotifier
	observer   SyncObserver
	executor   *Executor
	limit      int
	logger     *slog.Logger
	now        func() time.Time

	running atomic.Bool

	mu         sync.RWMutex
	state      SyncState
	lastReport *SyncReport
}

// SyncEngineConfig contains dependencies for the sync engine.
type SyncEngineConfig struct {
	Store      *QuoteStore
	Categories *CategoryIndex
	Remote     ports.RemoteQuoteSource
	Notifier   ports.StatusNotifier
	Observer   SyncObserver
	Executor   *Executor

	// Limit caps how many remote records a cycle consumes.
	Limit int

	Logger *slog.Logger
}

// NewSyncEngine creates a sync engine in the Idle state.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	if cfg.Store == nil || cfg.Categories == nil || cfg.Remote == nil {
		panic("app: SyncEngine requires Store, Categories and Remote")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.SyncEngine"))

	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(logger)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 5
	}

	return &SyncEngine{
		store:      cfg.Store,
		categories: cfg.Categories,
		remote:     cfg.Remote,
		notifier:   cfg.Notifier,
		observer:   observer,
		executor:   executor,
		limit:      limit,
		logger:     logger,
		now:        time.Now,
		state:      SyncIdle,
	}
}

// State returns the current cycle state.
func (e *SyncEngine) State() SyncState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state
}

// LastReport returns the report of the most recent finished cycle.
func (e *SyncEngine) LastReport() (SyncReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.lastReport == nil {
		return SyncReport{}, false
	}

	return *e.lastReport, true
}

// Busy reports whether a cycle is in flight.
func (e *SyncEngine) Busy() bool {
	return e.running.Load()
}

func (e *SyncEngine) setState(s SyncState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// FetchRemoteSnapshot returns the remote quotes, or an empty slice when the
// remote cannot be reached or decoded.
func (e *SyncEngine) FetchRemoteSnapshot(ctx context.Context) []domain.Quote {
	quotes, err := e.fetch(ctx)
	if err != nil {
		return []domain.Quote{}
	}

	return quotes
}

func (e *SyncEngine) fetch(ctx context.Context) ([]domain.Quote, error) {
	quotes, err := e.remote.FetchQuotes(ctx, e.limit)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "fetching remote snapshot failed", slog.Any("error", err))

		return nil, err
	}

	if len(quotes) > e.limit {
		quotes = quotes[:e.limit]
	}

	return quotes, nil
}

// RunCycle runs one manual cycle. A cycle already in flight makes it return
// a domain.ConflictError without doing anything.
func (e *SyncEngine) RunCycle(ctx context.Context) (SyncReport, error) {
	return e.runCycle(ctx, TriggerManual)
}

// cycleOutcome carries merge results from the archive step to the response.
type cycleOutcome struct {
	remote    []domain.Quote
	conflicts []domain.Quote
	size      int
}

func (e *SyncEngine) runCycle(ctx context.Context, trigger string) (SyncReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.observer.ObserveCycle(cycleSkipped, 0)

		return SyncReport{}, domain.NewConflictError("sync", "a cycle is already running")
	}
	defer e.running.Store(false)

	report := SyncReport{
		CycleID:   uuid.NewString(),
		Trigger:   trigger,
		StartedAt: e.now(),
	}

	if _, ok := logging.Lookup(ctx); !ok {
		ctx = logging.WithContext(ctx, e.logger)
	}

	ctx = logging.WithSyncCycle(ctx, report.CycleID, trigger)

	e.notify(ctx, ports.StatusInfo, msgSyncStarted)

	op := Operation[string, []domain.Quote, []domain.Quote, SyncReport]{
		Name: "sync.cycle",
		OnStep: func(step ExecutionStep) {
			switch step {
			case StepPerform:
				e.setState(SyncFetching)
			case StepVerify, StepArchive:
				e.setState(SyncMerging)
			}
		},
		Validate: func(ctx context.Context, _ string) error {
			return ctx.Err()
		},
		Perform: func(ctx context.Context, _ string) ([]domain.Quote, error) {
			remote, err := e.fetch(ctx)
			if err == nil {
				return remote, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			// An unreachable remote merges as an empty snapshot.
			report.RemoteError = err.Error()

			return []domain.Quote{}, nil
		},
		Verify: func(_ context.Context, _ string, remote []domain.Quote) ([]domain.Quote, error) {
			return verifyRemote(remote)
		},
	}

	outcome := &cycleOutcome{}
	op.Archive = func(ctx context.Context, _ string, remote []domain.Quote) error {
		return e.mergeAndPersist(ctx, remote, outcome)
	}
	op.Respond = func(_ context.Context, _ string, _ []domain.Quote) (SyncReport, error) {
		report.RemoteCount = len(outcome.remote)
		report.Conflicts = outcome.conflicts
		report.CollectionSize = outcome.size
		report.Message = syncMessage(len(outcome.conflicts))
		if report.RemoteError != "" {
			report.Message = msgSyncOffline
		}

		return report, nil
	}

	result, err := Execute(ctx, e.executor, op, trigger)
	if err != nil {
		return e.fail(ctx, report, err)
	}

	result.FinishedAt = e.now()
	e.finish(result)

	e.categories.Refresh()
	e.observer.ObserveCycle(cycleSuccess, result.FinishedAt.Sub(result.StartedAt))
	e.observer.ObserveConflicts(len(result.Conflicts))
	e.observer.ObserveCollectionSize(result.CollectionSize)

	logging.FromContext(ctx).InfoContext(ctx, "sync cycle completed",
		slog.Int("remote", result.RemoteCount),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("size", result.CollectionSize),
	)

	level := ports.StatusSuccess
	if result.RemoteError != "" {
		level = ports.StatusError
	}

	e.notify(ctx, level, result.Message)

	return result, nil
}

// mergeAndPersist merges against the collection as it is now, under the store
// lock, so local changes made while the fetch was in flight are kept.
func (e *SyncEngine) mergeAndPersist(ctx context.Context, remote []domain.Quote, out *cycleOutcome) error {
	collection, err := e.store.Update(ctx, func(c domain.Collection) (domain.Collection, error) {
		merged := domain.Merge(remote, c.Items)
		out.remote = remote
		out.conflicts = merged.Conflicts

		e.setState(SyncPersisting)

		return c.WithItems(merged.Merged), nil
	})
	if err != nil {
		return err
	}

	out.size = collection.Len()

	return nil
}

// fail records a cycle that persisted nothing.
func (e *SyncEngine) fail(ctx context.Context, report SyncReport, err error) (SyncReport, error) {
	e.setState(SyncFailed)

	report.FinishedAt = e.now()
	report.Message = msgSyncFailed
	report.Error = err.Error()

	step, _ := GetExecutionStep(err)
	logging.FromContext(ctx).ErrorContext(ctx, "sync cycle failed",
		slog.String("step", string(step)),
		slog.Any("error", err),
	)

	e.observer.ObserveCycle(cycleFailed, report.FinishedAt.Sub(report.StartedAt))
	e.notify(ctx, ports.StatusError, msgSyncFailed)
	e.finish(report)

	return report, err
}

func (e *SyncEngine) finish(report SyncReport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastReport = &report
	e.state = SyncIdle
}

func (e *SyncEngine) notify(ctx context.Context, level ports.StatusLevel, message string) {
	if e.notifier == nil {
		return
	}

	e.notifier.Notify(ctx, ports.Status{
		Kind:    ports.StatusSync,
		Level:   level,
		Message: message,
		At:      e.now(),
	})
}

// verifyRemote drops records that cannot be quotes. Remote text is trusted
// to be unique, so duplicates are left alone.
func verifyRemote(remote []domain.Quote) ([]domain.Quote, error) {
	verified := make([]domain.Quote, 0, len(remote))

	for _, q := range remote {
		if q.Text == "" || q.Category == "" {
			continue
		}

		verified = append(verified, q)
	}

	return verified, nil
}

func syncMessage(conflicts int) string {
	if conflicts == 0 {
		return msgSynced
	}

	return fmt.Sprintf("%s %d conflict(s) resolved; server data took precedence.", msgSynced, conflicts)
}

// Scheduler runs sync cycles on a fixed interval until stopped.
type Scheduler struct {
	engine   *SyncEngine
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler for engine.
func NewScheduler(engine *SyncEngine, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   logger.With(slog.String("component", "app.Scheduler")),
	}
}

// Start runs one cycle immediately and then one per interval, in a background
// goroutine, until Stop is called or ctx is cancelled. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.tick(ctx, TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugContext(ctx, "scheduler stopped")

			return
		case <-ticker.C:
			s.tick(ctx, TriggerSchedule)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, trigger string) {
	_, err := s.engine.runCycle(ctx, trigger)

	switch {
	case err == nil:
	case domain.IsConflict(err):
		s.logger.DebugContext(ctx, "previous cycle still running, skipping", slog.String("trigger", trigger))
	case errors.Is(err, context.Canceled):
		s.logger.DebugContext(ctx, "sync cancelled", slog.String("trigger", trigger))
	default:
		s.logger.ErrorContext(ctx, "scheduled sync failed", slog.String("trigger", trigger), slog.Any("error", err))
	}
}

// Stop cancels the loop and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}
