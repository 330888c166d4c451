// Package relay maps logical relay numbers to BCM pins and parses the
// invocation fields that select a relay and an activation window.
package relay

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Pin definitions (BCM numbering)
var pins = map[uint8]uint8{
	1: 26,
	2: 20,
	3: 21,
}

var (
	ErrInvalidID       = errors.New("relay number is not a small non-negative integer")
	ErrInvalidDuration = errors.New("duration is not a non-negative number of seconds")
	ErrInvalidRelay    = errors.New("no such relay")
)

// Pin returns the BCM pin wired to relay id.
func Pin(id uint8) (uint8, error) {
	pin, ok := pins[id]
	if !ok {
		return 0, fmt.Errorf("relay %d: %w", id, ErrInvalidRelay)
	}
	return pin, nil
}

// ParseID parses a relay number. Surrounding whitespace and a single leading
// plus sign are ignored.
func ParseID(s string) (uint8, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "+"), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidID)
	}
	return uint8(n), nil
}

// ParseSeconds parses a duration in seconds, fractions allowed.
// Surrounding whitespace is ignored. Range checks are left to Duration.
func ParseSeconds(s string) (float64, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidDuration)
	}
	return secs, nil
}

// Duration converts secs to a time.Duration, keeping sub-second precision.
// Negative, NaN, infinite and out-of-range values are rejected.
func Duration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, fmt.Errorf("%v seconds: %w", secs, ErrInvalidDuration)
	}
	ns := secs * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0, fmt.Errorf("%v seconds: too long: %w", secs, ErrInvalidDuration)
	}
	return time.Duration(ns), nil
}

// FormatSeconds renders secs in the shortest form that round-trips.
func FormatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', -1, 64)
}
