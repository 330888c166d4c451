//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "relay-runner"

// CdevDriver writes pins through the Linux GPIO character device.
//
// The kernel decides what happens to a line once its request is released;
// some pinctrl drivers revert it to input. Prefer RpioDriver on boards where
// that is the case.
type CdevDriver struct {
	opts Options
}

// NewCdevDriver creates a driver for the chip named in opts.
func NewCdevDriver(opts Options) *CdevDriver {
	if opts.Chip == "" {
		opts.Chip = DefaultChip
	}
	return &CdevDriver{opts: opts}
}

// High drives pin high.
func (d *CdevDriver) High(pin uint8) error {
	return d.write(pin, High)
}

// Low drives pin low.
func (d *CdevDriver) Low(pin uint8) error {
	return d.write(pin, Low)
}

func (d *CdevDriver) write(pin uint8, level Level) error {
	chip, err := gpiocdev.NewChip(d.opts.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return &PinError{Op: "open", Pin: pin, Level: level, Kind: ErrSubsystemUnavailable,
			Err: fmt.Errorf("open %s: %w", d.opts.Chip, err)}
	}
	defer chip.Close()

	v := 0
	if level == High {
		v = 1
	}

	line, err := chip.RequestLine(int(pin), gpiocdev.AsOutput(v))
	if err != nil {
		return &PinError{Op: "request", Pin: pin, Level: level, Kind: ErrPinUnavailable, Err: err}
	}

	var errs []error
	if err := line.SetValue(v); err != nil {
		errs = append(errs, &PinError{Op: "write", Pin: pin, Level: level, Kind: ErrPinUnavailable, Err: err})
	}
	if d.opts.ResetOnRelease {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, &PinError{Op: "release", Pin: pin, Level: level, Kind: ErrPinUnavailable,
				Err: fmt.Errorf("reconfigure: %w", err)})
		}
	}
	if err := line.Close(); err != nil {
		errs = append(errs, &PinError{Op: "release", Pin: pin, Level: level, Kind: ErrPinUnavailable, Err: err})
	}

	return errors.Join(errs...)
}
