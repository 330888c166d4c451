// Package sequencer runs one relay activation: drive the relay's pin high,
// wait, drive it low.
package sequencer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sweeney/relay-runner/internal/gpio"
	"github.com/sweeney/relay-runner/internal/guard"
	"github.com/sweeney/relay-runner/internal/mqtt"
	"github.com/sweeney/relay-runner/internal/relay"
)

// ErrInterrupted is returned when a termination signal ended the activation.
// It is only seen when the guard's exit function returns, i.e. in tests.
var ErrInterrupted = errors.New("activation interrupted")

// Config wires a Sequencer.
type Config struct {
	Driver    gpio.Driver
	Publisher mqtt.Publisher // nil disables notifications; closed by Run
	Stdout    io.Writer      // announcement line; nil means os.Stdout

	// GuardOptions are passed through to guard.Install.
	GuardOptions []guard.Option

	// Now stamps published events. Defaults to time.Now.
	Now func() time.Time
}

// Sequencer performs activations.
type Sequencer struct {
	driver    gpio.Driver
	publisher mqtt.Publisher
	stdout    io.Writer
	guardOpts []guard.Option
	now       func() time.Time
}

// New creates a Sequencer.
func New(cfg Config) *Sequencer {
	s := &Sequencer{
		driver:    cfg.Driver,
		publisher: cfg.Publisher,
		stdout:    cfg.Stdout,
		guardOpts: cfg.GuardOptions,
		now:       cfg.Now,
	}
	if s.publisher == nil {
		s.publisher = mqtt.NopPublisher{}
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// activation carries the per-run fields every published event shares.
type activation struct {
	runID    string
	id       uint8
	pin      uint8
	duration time.Duration
}

// Run energizes relay id for secs seconds, then closes the publisher.
//
// Lookup and range errors (relay.ErrInvalidRelay, relay.ErrInvalidDuration)
// are returned before any pin is touched. A failed high write is returned as
// is; the pin is assumed untouched. A failed low write is returned after
// being reported; nothing more can be done from software.
//
// The guard stays installed until the publisher is closed, so a signal that
// arrives while events are still being flushed exits the process cleanly.
func (s *Sequencer) Run(id uint8, secs float64) error {
	pin, err := relay.Pin(id)
	if err != nil {
		s.closePublisher()
		return err
	}
	d, err := relay.Duration(secs)
	if err != nil {
		s.closePublisher()
		return err
	}

	a := activation{runID: mqtt.NewRunID(), id: id, pin: pin, duration: d}

	opts := append([]guard.Option{guard.WithHook(func(sig os.Signal, err error) {
		if err != nil {
			s.publish(a, mqtt.EventFailed, err.Error())
		} else {
			s.publish(a, mqtt.EventInterrupted, guard.SignalName(sig))
		}
		s.closePublisher()
	})}, s.guardOpts...)
	g := guard.Install(pin, s.driver, opts...)
	defer g.Release()
	defer s.flush(g)

	fmt.Fprintf(s.stdout, "Activating relay %d for %s seconds.\n", id, relay.FormatSeconds(secs))

	if sig, ok := g.Pending(); ok {
		g.Abort(sig)
		return ErrInterrupted
	}

	if err := s.driver.High(pin); err != nil {
		s.publish(a, mqtt.EventFailed, err.Error())
		return fmt.Errorf("activate relay %d: %w", id, err)
	}
	s.publish(a, mqtt.EventActivated, "")

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case sig := <-g.Signals():
		g.Teardown(sig)
		return ErrInterrupted
	}

	if err := s.driver.Low(pin); err != nil {
		log.Printf("relay %d left energized: %v", id, err)
		s.publish(a, mqtt.EventFailed, err.Error())
		return fmt.Errorf("deactivate relay %d: %w", id, err)
	}
	s.publish(a, mqtt.EventDeactivated, "")
	return nil
}

// flush closes the publisher while still answering signals. The pin is
// already settled by the time it runs.
func (s *Sequencer) flush(g *guard.Guard) {
	done := make(chan struct{})
	go func() {
		s.closePublisher()
		close(done)
	}()

	select {
	case <-done:
	case sig := <-g.Signals():
		g.Settle(sig)
	}
}

func (s *Sequencer) closePublisher() {
	if err := s.publisher.Close(); err != nil {
		log.Printf("mqtt: close: %v", err)
	}
}

func (s *Sequencer) publish(a activation, typ mqtt.EventType, reason string) {
	err := s.publisher.Publish(mqtt.Event{
		RunID:     a.runID,
		Timestamp: s.now(),
		Type:      typ,
		Relay:     a.id,
		Pin:       a.pin,
		Duration:  a.duration,
		Reason:    reason,
	})
	if err != nil {
		log.Printf("mqtt: publish %s: %v", typ, err)
	}
}
