//go:build !linux

package gpio

import "errors"

// CdevDriver is not available on non-Linux platforms.
type CdevDriver struct{}

// NewCdevDriver returns a driver whose writes always fail on non-Linux platforms.
func NewCdevDriver(opts Options) *CdevDriver {
	return &CdevDriver{}
}

var errCdevUnsupported = errors.New("gpio: character device requires Linux")

// High always fails on non-Linux platforms.
func (d *CdevDriver) High(pin uint8) error {
	return &PinError{Op: "open", Pin: pin, Level: High, Kind: ErrSubsystemUnavailable, Err: errCdevUnsupported}
}

// Low always fails on non-Linux platforms.
func (d *CdevDriver) Low(pin uint8) error {
	return &PinError{Op: "open", Pin: pin, Level: Low, Kind: ErrSubsystemUnavailable, Err: errCdevUnsupported}
}
