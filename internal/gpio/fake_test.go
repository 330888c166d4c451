package gpio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFakeDriverRecordsTimeline(t *testing.T) {
	f := NewFakeDriver()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	f.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}

	if err := f.High(26); err != nil {
		t.Fatalf("High: %v", err)
	}
	if err := f.Low(26); err != nil {
		t.Fatalf("Low: %v", err)
	}

	events := f.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Pin != 26 || events[0].Level != High {
		t.Errorf("event 0: got pin %d %s, want pin 26 HIGH", events[0].Pin, events[0].Level)
	}
	if events[1].Pin != 26 || events[1].Level != Low {
		t.Errorf("event 1: got pin %d %s, want pin 26 LOW", events[1].Pin, events[1].Level)
	}
	if !events[1].Time.After(events[0].Time) {
		t.Errorf("events out of order: %v then %v", events[0].Time, events[1].Time)
	}
}

func TestFakeDriverLowIsIdempotent(t *testing.T) {
	f := NewFakeDriver()

	for i := 0; i < 3; i++ {
		if err := f.Low(20); err != nil {
			t.Fatalf("Low #%d: %v", i, err)
		}
	}
	if f.Level(20) != Low {
		t.Errorf("expected pin 20 LOW, got %s", f.Level(20))
	}
}

func TestFakeDriverLevelPersists(t *testing.T) {
	f := NewFakeDriver()

	f.High(21)
	if f.Level(21) != High {
		t.Errorf("expected pin 21 HIGH after release, got %s", f.Level(21))
	}
	if f.Level(26) != Low {
		t.Errorf("untouched pin should read LOW, got %s", f.Level(26))
	}
}

func TestFakeDriverInjectedError(t *testing.T) {
	f := NewFakeDriver()
	f.HighError = errors.New("simulated")

	err := f.High(26)
	if !errors.Is(err, ErrSubsystemUnavailable) {
		t.Fatalf("expected ErrSubsystemUnavailable, got %v", err)
	}
	if len(f.Events()) != 0 {
		t.Errorf("failed write should not be recorded")
	}
	if f.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", f.Failures())
	}

	// Low is unaffected by HighError.
	if err := f.Low(26); err != nil {
		t.Errorf("Low: %v", err)
	}
}

func TestFakeDriverTracksOpenHandles(t *testing.T) {
	f := NewFakeDriver()
	f.WriteDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Low(26)
		}()
	}
	wg.Wait()

	if f.MaxOpenHandles() != 2 {
		t.Errorf("expected overlapping writes to be detected, max open = %d", f.MaxOpenHandles())
	}
}

func TestFakeDriverReset(t *testing.T) {
	f := NewFakeDriver()
	f.High(26)
	f.LowError = errors.New("x")

	f.Reset()

	if len(f.Events()) != 0 {
		t.Error("expected empty timeline after reset")
	}
	if f.Level(26) != Low {
		t.Error("expected pins low after reset")
	}
	if err := f.Low(26); err != nil {
		t.Errorf("injected error should be cleared: %v", err)
	}
}
