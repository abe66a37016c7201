package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"presence-tracker/internal/telemetry"
)

type fakeService struct {
	mu         sync.Mutex
	thresholds []time.Duration
	results    []int64
	errs       []error
}

func (f *fakeService) ExpireInactive(_ context.Context, threshold time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thresholds = append(f.thresholds, threshold)
	call := len(f.thresholds) - 1
	var n int64
	if call < len(f.results) {
		n = f.results[call]
	}
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	return n, err
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.thresholds)
}

type chanEmitter struct {
	ch chan *telemetry.Event
}

func (e *chanEmitter) Emit(_ context.Context, event *telemetry.Event) error {
	e.ch <- event
	return nil
}

// startSweeper runs the sweeper against a mock clock and returns after the
// ticker is installed, so Advance calls deterministically hit it.
func startSweeper(t *testing.T, svc Service, emitter telemetry.EventEmitter) (*quartz.Mock, context.CancelFunc, chan error) {
	t.Helper()
	clock := quartz.NewMock(t)
	trap := clock.Trap().TickerFunc("sweeper")
	defer trap.Close()

	s := New(svc, clock, time.Minute, 15*time.Minute, emitter, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)
	return clock, cancel, done
}

func TestSweeper_ExpiresEachTick(t *testing.T) {
	svc := &fakeService{results: []int64{2, 0}}
	emitter := &chanEmitter{ch: make(chan *telemetry.Event, 4)}
	clock, cancel, done := startSweeper(t, svc, emitter)

	ctx := context.Background()
	clock.Advance(time.Minute).MustWait(ctx)
	if got := svc.calls(); got != 1 {
		t.Fatalf("sweeps after one tick = %d, want 1", got)
	}

	select {
	case event := <-emitter.ch:
		if event.EventType != telemetry.EventSweep {
			t.Errorf("event type = %q, want sweep", event.EventType)
		}
		if event.Expired != 2 {
			t.Errorf("expired = %d, want 2", event.Expired)
		}
	case <-time.After(time.Second):
		t.Fatal("no sweep event emitted")
	}

	// Second tick expires nothing: sweep runs, no event.
	clock.Advance(time.Minute).MustWait(ctx)
	if got := svc.calls(); got != 2 {
		t.Fatalf("sweeps after two ticks = %d, want 2", got)
	}
	select {
	case event := <-emitter.ch:
		t.Errorf("unexpected event for empty sweep: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v, want nil on cancel", err)
	}
}

func TestSweeper_UsesConfiguredThreshold(t *testing.T) {
	svc := &fakeService{}
	clock, cancel, done := startSweeper(t, svc, nil)
	defer func() { cancel(); <-done }()

	clock.Advance(time.Minute).MustWait(context.Background())
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.thresholds) != 1 || svc.thresholds[0] != 15*time.Minute {
		t.Errorf("thresholds = %v, want one call at 15m", svc.thresholds)
	}
}

func TestSweeper_FailedSweepRetriesNextTick(t *testing.T) {
	svc := &fakeService{errs: []error{errors.New("store down"), nil}}
	clock, cancel, done := startSweeper(t, svc, nil)

	ctx := context.Background()
	clock.Advance(time.Minute).MustWait(ctx)
	clock.Advance(time.Minute).MustWait(ctx)
	if got := svc.calls(); got != 2 {
		t.Errorf("sweeps = %d, want 2: a failed sweep must not stop the loop", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v, want nil on cancel", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeService{}, nil, 0, 0, nil, zerolog.Nop())
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	if s.threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", s.threshold, DefaultThreshold)
	}
	if s.clock == nil {
		t.Error("clock should default to the real clock")
	}
}
