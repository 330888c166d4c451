package gpio

import (
	"sync"
	"time"
)

// Event is one write recorded by FakeDriver.
type Event struct {
	Time  time.Time
	Pin   uint8
	Level Level
}

// FakeDriver is a test double that records a timeline of writes.
// It is safe for concurrent use.
type FakeDriver struct {
	mu sync.Mutex

	// Now stamps recorded events. Defaults to time.Now.
	Now func() time.Time

	// HighError and LowError, if set, are returned by High and Low
	// instead of recording a write.
	HighError error
	LowError  error

	// WriteDelay holds the handle open for this long on every write.
	WriteDelay time.Duration

	events   []Event
	levels   map[uint8]Level
	open     int
	maxOpen  int
	failures int
}

// NewFakeDriver creates a FakeDriver with every pin low.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{levels: make(map[uint8]Level)}
}

// High records a high write.
func (f *FakeDriver) High(pin uint8) error {
	return f.write(pin, High)
}

// Low records a low write.
func (f *FakeDriver) Low(pin uint8) error {
	return f.write(pin, Low)
}

func (f *FakeDriver) write(pin uint8, level Level) error {
	f.mu.Lock()
	injected := f.LowError
	if level == High {
		injected = f.HighError
	}
	if injected != nil {
		f.failures++
		f.mu.Unlock()
		return &PinError{Op: "open", Pin: pin, Level: level, Kind: ErrSubsystemUnavailable, Err: injected}
	}
	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}
	delay := f.WriteDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	if f.levels == nil {
		f.levels = make(map[uint8]Level)
	}
	f.levels[pin] = level
	f.events = append(f.events, Event{Time: now(), Pin: pin, Level: level})
	f.open--
	return nil
}

// Events returns a copy of the recorded timeline.
func (f *FakeDriver) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// Level returns the level last written to pin (Low if never written).
func (f *FakeDriver) Level(pin uint8) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

// MaxOpenHandles returns the largest number of writes ever in flight at once.
func (f *FakeDriver) MaxOpenHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxOpen
}

// Failures returns how many writes were rejected by an injected error.
func (f *FakeDriver) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

// Reset clears the timeline and returns every pin to low.
func (f *FakeDriver) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.levels = make(map[uint8]Level)
	f.open = 0
	f.maxOpen = 0
	f.failures = 0
	f.HighError = nil
	f.LowError = nil
}
