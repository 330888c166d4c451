package gpio

import (
	"sync"

	rpio "github.com/stianeikeland/go-rpio"
)

// RpioDriver writes pins through the memory-mapped register window
// (/dev/gpiomem). Unmapping the window never touches the line, so the level
// written persists without any extra care.
type RpioDriver struct {
	opts Options

	// rpio keeps the mapping in package globals; one write at a time.
	mu sync.Mutex
}

// NewRpioDriver creates a driver backed by go-rpio.
func NewRpioDriver(opts Options) *RpioDriver {
	return &RpioDriver{opts: opts}
}

// High drives pin high.
func (d *RpioDriver) High(pin uint8) error {
	return d.write(pin, High)
}

// Low drives pin low.
func (d *RpioDriver) Low(pin uint8) error {
	return d.write(pin, Low)
}

func (d *RpioDriver) write(pin uint8, level Level) error {
	if pin > MaxPin {
		return &PinError{Op: "request", Pin: pin, Level: level, Kind: ErrPinUnavailable}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := rpio.Open(); err != nil {
		return &PinError{Op: "open", Pin: pin, Level: level, Kind: ErrSubsystemUnavailable, Err: err}
	}

	p := rpio.Pin(pin)
	p.Output()
	if level == High {
		p.High()
	} else {
		p.Low()
	}

	if d.opts.ResetOnRelease {
		p.Input()
	}

	if err := rpio.Close(); err != nil {
		return &PinError{Op: "release", Pin: pin, Level: level, Kind: ErrSubsystemUnavailable, Err: err}
	}
	return nil
}
