// Package gpio drives relay output lines on a Raspberry Pi.
//
// Every write is self-contained: the backend opens the GPIO subsystem, claims
// the pin as an output, writes the level and releases everything again. No
// handle outlives a single call, so the only state a caller needs to keep is
// the BCM pin number. Releasing a handle leaves the line driven at the level
// last written unless Options.ResetOnRelease is set.
package gpio

import (
	"errors"
	"fmt"
	"log"
)

// Level is the electrical level of an output line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Driver asserts output levels on BCM-numbered pins.
// Both methods are idempotent.
type Driver interface {
	High(pin uint8) error
	Low(pin uint8) error
}

// Failure kinds carried by PinError.
var (
	ErrSubsystemUnavailable = errors.New("gpio subsystem unavailable")
	ErrPinUnavailable       = errors.New("gpio pin unavailable")
)

// PinError reports a failed write.
type PinError struct {
	Op    string // "open", "request", "write", "release"
	Pin   uint8
	Level Level
	Kind  error // ErrSubsystemUnavailable or ErrPinUnavailable
	Err   error
}

func (e *PinError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gpio %s pin %d %s: %v", e.Op, e.Pin, e.Level, e.Kind)
	}
	return fmt.Sprintf("gpio %s pin %d %s: %v: %v", e.Op, e.Pin, e.Level, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is.
func (e *PinError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MaxPin is the highest BCM line on the Pi's main GPIO bank.
const MaxPin = 53

// DefaultChip is the character device the cdev backend opens.
const DefaultChip = "gpiochip0"

// Options configure a backend.
type Options struct {
	// Chip names the character device (cdev backend only).
	Chip string

	// ResetOnRelease reverts the line to input when the handle is released.
	// Leave false for relays: the level must survive the release.
	ResetOnRelease bool
}

// Backend names accepted by Open.
const (
	BackendRpio   = "rpio"
	BackendPeriph = "periph"
	BackendCdev   = "cdev"
)

// Backends lists the names accepted by Open.
var Backends = []string{BackendRpio, BackendPeriph, BackendCdev}

// cdevReleaseWarning is logged when the cdev backend is selected.
const cdevReleaseWarning = "cdev backend: some kernels revert a line to input when its request is released; the relay may drop out early"

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown gpio backend")

// Open returns the named backend. Nothing touches the hardware until the
// first High or Low call.
func Open(name string, opts Options) (Driver, error) {
	if opts.Chip == "" {
		opts.Chip = DefaultChip
	}
	switch name {
	case BackendRpio:
		return NewRpioDriver(opts), nil
	case BackendPeriph:
		return NewPeriphDriver(opts), nil
	case BackendCdev:
		if !opts.ResetOnRelease {
			log.Printf("gpio: warning: %s", cdevReleaseWarning)
		}
		return NewCdevDriver(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
