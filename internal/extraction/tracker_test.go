package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/types"
)

func floatPtr(f float64) *float64 { return &f }

// fakeProcessService scripts process status responses.
type fakeProcessService struct {
	mu        sync.Mutex
	getFn     func(call int) (types.ExtractionProcess, error)
	calls     int
	triggered int
}

func (f *fakeProcessService) GetExtractionProcess(ctx context.Context, bookID string) (types.ExtractionProcess, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	fn := f.getFn
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeProcessService) TriggerExtraction(ctx context.Context, bookID string) error {
	f.mu.Lock()
	f.triggered++
	f.mu.Unlock()
	return nil
}

func (f *fakeProcessService) triggerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggered
}

func process(bookID string, requestedAt *time.Time, completeness *float64) types.ExtractionProcess {
	return types.ExtractionProcess{
		BookID:       bookID,
		IsRequested:  requestedAt != nil,
		RequestedAt:  requestedAt,
		Completeness: completeness,
	}
}

func testConfig() TrackerConfig {
	return TrackerConfig{Interval: 5 * time.Millisecond, FailureThreshold: 3}
}

func TestTracker_RunUntilComplete(t *testing.T) {
	started := time.Now()
	script := []*float64{floatPtr(0), floatPtr(0.4), floatPtr(0.8), floatPtr(1)}
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		if call >= len(script) {
			call = len(script) - 1
		}
		return process("b1", &started, script[call]), nil
	}}

	tr := NewTracker(svc, "b1", testConfig())

	var samples []float64
	var mu sync.Mutex
	tr.OnSample(func(s Sample) {
		mu.Lock()
		samples = append(samples, s.Process.CompletenessValue())
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tr.State() != types.StateComplete {
		t.Errorf("expected complete state, got %s", tr.State())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d: %v", len(samples), samples)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i] < samples[i-1] {
			t.Errorf("completeness regressed: %v", samples)
		}
	}
}

func TestTracker_DiscardsRegressiveSample(t *testing.T) {
	started := time.Now()
	script := []*float64{floatPtr(0.5), floatPtr(0.3), floatPtr(1)}
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		if call >= len(script) {
			call = len(script) - 1
		}
		return process("b1", &started, script[call]), nil
	}}

	tr := NewTracker(svc, "b1", testConfig())

	var samples []float64
	var mu sync.Mutex
	tr.OnSample(func(s Sample) {
		mu.Lock()
		samples = append(samples, s.Process.CompletenessValue())
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, c := range samples {
		if c == 0.3 {
			t.Fatalf("regressive sample must be discarded: %v", samples)
		}
	}
}

func TestTracker_NewRunResetsMonotonicGuard(t *testing.T) {
	firstRun := time.Now().Add(-time.Hour)
	secondRun := time.Now()
	script := []types.ExtractionProcess{
		process("b1", &firstRun, floatPtr(0.9)),
		// A re-run starts over: lower completeness with a new requested_at
		// is legitimate, not a stale read.
		process("b1", &secondRun, floatPtr(0.1)),
		process("b1", &secondRun, floatPtr(1)),
	}
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		if call >= len(script) {
			call = len(script) - 1
		}
		return script[call], nil
	}}

	tr := NewTracker(svc, "b1", testConfig())

	var samples []float64
	var mu sync.Mutex
	tr.OnSample(func(s Sample) {
		mu.Lock()
		samples = append(samples, s.Process.CompletenessValue())
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, c := range samples {
		if c == 0.1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the new run's 0.1 sample to be accepted: %v", samples)
	}
}

func TestTracker_TransientFailureThreshold(t *testing.T) {
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		return types.ExtractionProcess{}, &api.TransientError{Err: errors.New("connection refused")}
	}}

	tr := NewTracker(svc, "b1", testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tr.Run(ctx)
	if !errors.Is(err, ErrPollingStalled) {
		t.Fatalf("expected ErrPollingStalled, got %v", err)
	}
}

func TestTracker_TransientFailuresRecover(t *testing.T) {
	started := time.Now()
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		// Two failures, then success: under the threshold of 3.
		if call%3 != 2 {
			return types.ExtractionProcess{}, &api.TransientError{Err: errors.New("i/o timeout")}
		}
		if call >= 5 {
			return process("b1", &started, floatPtr(1)), nil
		}
		return process("b1", &started, floatPtr(0.5)), nil
	}}

	tr := NewTracker(svc, "b1", testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Run(ctx); err != nil {
		t.Fatalf("expected recovery across sparse failures, got %v", err)
	}
}

func TestTracker_AuthErrorStopsImmediately(t *testing.T) {
	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		return types.ExtractionProcess{}, api.ErrUnauthorized
	}}

	tr := NewTracker(svc, "b1", testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tr.Run(ctx)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected auth error to propagate, got %v", err)
	}
}

func TestTracker_Trigger(t *testing.T) {
	t.Run("triggers when unrequested", func(t *testing.T) {
		svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
			return process("b1", nil, nil), nil
		}}
		tr := NewTracker(svc, "b1", testConfig())

		if err := tr.Trigger(context.Background()); err != nil {
			t.Fatalf("Trigger failed: %v", err)
		}
		if svc.triggerCount() != 1 {
			t.Errorf("expected 1 trigger call, got %d", svc.triggerCount())
		}
	})

	t.Run("rejects when already requested", func(t *testing.T) {
		started := time.Now()
		svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
			return process("b1", &started, floatPtr(0.2)), nil
		}}
		tr := NewTracker(svc, "b1", testConfig())

		err := tr.Trigger(context.Background())
		if !errors.Is(err, ErrAlreadyRequested) {
			t.Fatalf("expected ErrAlreadyRequested, got %v", err)
		}
		if svc.triggerCount() != 0 {
			t.Errorf("expected no trigger call, got %d", svc.triggerCount())
		}
	})

	t.Run("rejects when complete", func(t *testing.T) {
		started := time.Now()
		svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
			return process("b1", &started, floatPtr(1)), nil
		}}
		tr := NewTracker(svc, "b1", testConfig())

		if err := tr.Trigger(context.Background()); !errors.Is(err, ErrAlreadyRequested) {
			t.Fatalf("expected ErrAlreadyRequested, got %v", err)
		}
	})
}

func TestTracker_LateResponseDiscardedOnCancel(t *testing.T) {
	started := time.Now()
	ctx, cancel := context.WithCancel(context.Background())

	svc := &fakeProcessService{getFn: func(call int) (types.ExtractionProcess, error) {
		// The book is deselected while this response is in flight.
		cancel()
		return process("b1", &started, floatPtr(0.9)), nil
	}}

	tr := NewTracker(svc, "b1", testConfig())

	var notified bool
	tr.OnSample(func(Sample) { notified = true })

	err := tr.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if notified {
		t.Error("late response must be discarded, not applied")
	}
	if _, ok := tr.Last(); ok {
		t.Error("no sample should be recorded after cancellation")
	}
}
