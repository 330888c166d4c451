// Package guard keeps a relay from being left energized when the process is
// interrupted.
//
// A Guard holds nothing but a copy of the pin number and a driver that opens
// its own handle on every write, so teardown works no matter where the
// activation was when the signal arrived.
package guard

import (
	"log"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/sweeney/relay-runner/internal/gpio"
)

// ExitFailure is the status used when the final low write fails.
const ExitFailure = 5

// DefaultSignals are the signals that trigger teardown.
var DefaultSignals = []os.Signal{unix.SIGINT, unix.SIGTERM}

// Guard drives its pin low and exits when a termination signal arrives.
type Guard struct {
	pin     uint8
	driver  gpio.Driver
	signals []os.Signal
	exit    func(int)
	hook    func(sig os.Signal, err error)

	sig chan os.Signal
}

// Option configures a Guard.
type Option func(*Guard)

// WithExit replaces os.Exit. Tests use it to observe the exit status.
func WithExit(fn func(int)) Option {
	return func(g *Guard) { g.exit = fn }
}

// WithSignals overrides DefaultSignals.
func WithSignals(sigs ...os.Signal) Option {
	return func(g *Guard) { g.signals = sigs }
}

// WithHook runs fn after the teardown write and before exit. err is the
// result of the low write.
func WithHook(fn func(sig os.Signal, err error)) Option {
	return func(g *Guard) { g.hook = fn }
}

// Install starts catching termination signals for pin. It must be called
// before pin is first driven high.
func Install(pin uint8, driver gpio.Driver, opts ...Option) *Guard {
	g := &Guard{
		pin:     pin,
		driver:  driver,
		signals: DefaultSignals,
		exit:    os.Exit,
	}
	for _, o := range opts {
		o(g)
	}
	g.sig = make(chan os.Signal, 1)
	signal.Notify(g.sig, g.signals...)
	return g
}

// Signals delivers caught termination signals.
func (g *Guard) Signals() <-chan os.Signal {
	return g.sig
}

// Pending reports a signal that has already arrived, without blocking.
func (g *Guard) Pending() (os.Signal, bool) {
	select {
	case s := <-g.sig:
		return s, true
	default:
		return nil, false
	}
}

// Abort exits with status 0 without touching the pin. Use it only while the
// pin has not yet been driven high.
func (g *Guard) Abort(sig os.Signal) {
	log.Printf("received %v before activation, exiting", sig)
	g.exit(0)
}

// Teardown drives the pin low and exits: status 0 on success, ExitFailure
// if the write failed. Low is idempotent, so calling this after the pin is
// already low is harmless.
func (g *Guard) Teardown(sig os.Signal) {
	g.lowAndExit(sig, true)
}

// Settle handles a signal that arrives after the activation has finished:
// the pin is driven low once more and the process exits without running the
// hook.
func (g *Guard) Settle(sig os.Signal) {
	g.lowAndExit(sig, false)
}

func (g *Guard) lowAndExit(sig os.Signal, hook bool) {
	log.Printf("received %v, driving pin %d low", sig, g.pin)
	err := g.driver.Low(g.pin)
	if err != nil {
		log.Printf("teardown: %v", err)
	}
	if hook && g.hook != nil {
		g.hook(sig, err)
	}
	if err != nil {
		g.exit(ExitFailure)
		return
	}
	g.exit(0)
}

// Release stops catching signals. Call it once the pin is back low.
func (g *Guard) Release() {
	signal.Stop(g.sig)
}

// SignalName returns the conventional name of sig, e.g. "SIGINT".
func SignalName(sig os.Signal) string {
	if s, ok := sig.(unix.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	if sig == nil {
		return "UNKNOWN"
	}
	return sig.String()
}
