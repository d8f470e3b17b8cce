// Package extraction tracks a book's server-side entity-extraction job:
// a polling state machine over the process status resource, a
// remaining-time estimator, and the post-completion entity aggregation.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/types"
)

var (
	// ErrAlreadyRequested is returned by Trigger when the process has
	// left the unrequested state.
	ErrAlreadyRequested = errors.New("extraction already requested")

	// ErrPollingStalled is returned when polling fails transiently for
	// too many consecutive ticks.
	ErrPollingStalled = errors.New("polling stalled")
)

// ProcessService is the server surface the tracker needs.
// Satisfied by api.Service.
type ProcessService interface {
	GetExtractionProcess(ctx context.Context, bookID string) (types.ExtractionProcess, error)
	TriggerExtraction(ctx context.Context, bookID string) error
}

// Sample is one observed process status, stamped at observation time so
// the estimator works from the poll moment rather than render time.
type Sample struct {
	Process    types.ExtractionProcess
	ObservedAt time.Time
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	Interval         time.Duration // poll interval (default 1s)
	FailureThreshold int           // consecutive transient failures before stalling (default 10)
	Logger           *slog.Logger
}

// Tracker polls one book's extraction process until it completes. A
// tracker is single-use and owned by the currently selected book;
// switching books cancels its context and creates a fresh tracker.
type Tracker struct {
	svc       ProcessService
	bookID    string
	interval  time.Duration
	threshold int
	logger    *slog.Logger

	mu        sync.Mutex
	last      *Sample
	onSample  []func(Sample)
	completed bool
}

// NewTracker creates a tracker for the given book's process.
func NewTracker(svc ProcessService, bookID string, cfg TrackerConfig) *Tracker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		svc:       svc,
		bookID:    bookID,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// OnSample registers a callback invoked for every accepted sample.
// Register before Run; callbacks run on the polling goroutine.
func (t *Tracker) OnSample(fn func(Sample)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSample = append(t.onSample, fn)
}

// Last returns the most recently accepted sample.
func (t *Tracker) Last() (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Sample{}, false
	}
	return *t.last, true
}

// State returns the last observed process state, StateUnrequested if
// nothing has been observed yet.
func (t *Tracker) State() types.ProcessState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return types.StateUnrequested
	}
	return t.last.Process.State()
}

// Trigger starts the extraction job. It first refreshes process status
// and rejects with ErrAlreadyRequested unless the process is
// unrequested, matching the one-trigger lifecycle.
func (t *Tracker) Trigger(ctx context.Context) error {
	proc, err := t.svc.GetExtractionProcess(ctx, t.bookID)
	if err != nil {
		return fmt.Errorf("refresh process status: %w", err)
	}
	t.accept(Sample{Process: proc, ObservedAt: time.Now()})

	if proc.State() != types.StateUnrequested {
		return fmt.Errorf("%w: process is %s", ErrAlreadyRequested, proc.State())
	}
	if err := t.svc.TriggerExtraction(ctx, t.bookID); err != nil {
		return fmt.Errorf("trigger extraction: %w", err)
	}
	t.logger.Info("extraction triggered", "book_id", t.bookID)
	return nil
}

// Run polls the process until it completes. Returns nil once the
// process is complete (terminal; polling stops for good), ctx.Err() on
// cancellation, ErrPollingStalled after too many consecutive transient
// failures, and any auth or not-found error immediately.
func (t *Tracker) Run(ctx context.Context) error {
	// First poll immediately so the caller gets a sample without
	// waiting a full interval.
	if done, err := t.poll(ctx, new(int)); done || err != nil {
		return err
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := t.poll(ctx, &failures)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// poll fetches one status sample. done reports terminal completion.
func (t *Tracker) poll(ctx context.Context, failures *int) (done bool, err error) {
	// Cancellation is checked both before issuing the request and
	// before applying its response: a poll for a deselected book must
	// never leak a late update.
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	proc, err := t.svc.GetExtractionProcess(ctx, t.bookID)
	if err != nil {
		if api.IsTransient(err) {
			*failures++
			t.logger.Debug("poll failed, retrying next tick",
				"book_id", t.bookID, "consecutive", *failures, "error", err)
			if *failures >= t.threshold {
				return false, fmt.Errorf("%w after %d consecutive failures: %v", ErrPollingStalled, *failures, err)
			}
			return false, nil
		}
		// Auth and not-found failures are terminal for the tracker.
		return false, err
	}
	*failures = 0

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	accepted := t.accept(Sample{Process: proc, ObservedAt: time.Now()})
	if !accepted {
		t.logger.Debug("discarded regressive sample", "book_id", t.bookID)
	}

	if t.State() == types.StateComplete {
		t.mu.Lock()
		t.completed = true
		t.mu.Unlock()
		t.logger.Info("extraction complete", "book_id", t.bookID)
		return true, nil
	}
	return false, nil
}

// accept applies a sample unless it would regress completeness for the
// same requested_at. The server is authoritative and completeness is
// monotonic per run; a lower value is a stale read and is discarded.
func (t *Tracker) accept(s Sample) bool {
	t.mu.Lock()
	if t.last != nil && sameRun(t.last.Process, s.Process) &&
		s.Process.CompletenessValue() < t.last.Process.CompletenessValue() {
		t.mu.Unlock()
		return false
	}
	t.last = &s
	callbacks := make([]func(Sample), len(t.onSample))
	copy(callbacks, t.onSample)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(s)
	}
	return true
}

func sameRun(a, b types.ExtractionProcess) bool {
	if a.RequestedAt == nil || b.RequestedAt == nil {
		return a.RequestedAt == nil && b.RequestedAt == nil
	}
	return a.RequestedAt.Equal(*b.RequestedAt)
}
