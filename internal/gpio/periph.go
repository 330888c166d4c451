package gpio

import (
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver writes pins through the periph.io pin registry.
// host.Init is idempotent, so calling it on every write is cheap.
type PeriphDriver struct {
	opts Options
}

// NewPeriphDriver creates a driver backed by periph.io.
func NewPeriphDriver(opts Options) *PeriphDriver {
	return &PeriphDriver{opts: opts}
}

// High drives pin high.
func (d *PeriphDriver) High(pin uint8) error {
	return d.write(pin, High)
}

// Low drives pin low.
func (d *PeriphDriver) Low(pin uint8) error {
	return d.write(pin, Low)
}

func (d *PeriphDriver) write(pin uint8, level Level) error {
	if _, err := host.Init(); err != nil {
		return &PinError{Op: "open", Pin: pin, Level: level, Kind: ErrSubsystemUnavailable, Err: err}
	}

	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return &PinError{Op: "request", Pin: pin, Level: level, Kind: ErrPinUnavailable}
	}

	if err := p.Out(pgpio.Level(level)); err != nil {
		return &PinError{Op: "write", Pin: pin, Level: level, Kind: ErrPinUnavailable, Err: err}
	}

	if d.opts.ResetOnRelease {
		if err := p.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
			return &PinError{Op: "release", Pin: pin, Level: level, Kind: ErrPinUnavailable, Err: err}
		}
	}
	return nil
}
