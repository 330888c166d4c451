package guard

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/sweeney/relay-runner/internal/gpio"
)

// exitRecorder captures the status passed to the exit function.
type exitRecorder struct {
	codes []int
}

func (r *exitRecorder) exit(code int) { r.codes = append(r.codes, code) }

// install registers a guard on SIGUSR1 so tests never raise SIGINT at the
// test binary itself.
func install(t *testing.T, pin uint8, d gpio.Driver, opts ...Option) (*Guard, *exitRecorder) {
	t.Helper()
	rec := &exitRecorder{}
	opts = append([]Option{WithSignals(unix.SIGUSR1), WithExit(rec.exit)}, opts...)
	g := Install(pin, d, opts...)
	t.Cleanup(g.Release)
	return g, rec
}

func raise(t *testing.T, sig unix.Signal) {
	t.Helper()
	require.NoError(t, unix.Kill(unix.Getpid(), sig))
}

func receive(t *testing.T, g *Guard) os.Signal {
	t.Helper()
	select {
	case s := <-g.Signals():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
		return nil
	}
}

func TestDefaultSignalsIncludeInterrupt(t *testing.T) {
	assert.Contains(t, DefaultSignals, os.Signal(unix.SIGINT))
	assert.Contains(t, DefaultSignals, os.Signal(unix.SIGTERM))
}

func TestSignalDeliveredToChannel(t *testing.T) {
	g, _ := install(t, 26, gpio.NewFakeDriver())

	raise(t, unix.SIGUSR1)
	assert.Equal(t, os.Signal(unix.SIGUSR1), receive(t, g))
}

func TestTeardownDrivesPinLowAndExitsZero(t *testing.T) {
	d := gpio.NewFakeDriver()
	require.NoError(t, d.High(20))

	var hookSig os.Signal
	var hookErr error
	g, rec := install(t, 20, d, WithHook(func(sig os.Signal, err error) {
		hookSig, hookErr = sig, err
	}))

	raise(t, unix.SIGUSR1)
	g.Teardown(receive(t, g))

	assert.Equal(t, gpio.Low, d.Level(20))
	assert.Equal(t, []int{0}, rec.codes)
	assert.Equal(t, os.Signal(unix.SIGUSR1), hookSig)
	assert.NoError(t, hookErr)

	events := d.Events()
	require.Len(t, events, 2)
	assert.Equal(t, gpio.High, events[0].Level)
	assert.Equal(t, gpio.Low, events[1].Level)
}

func TestTeardownOnLowPinIsHarmless(t *testing.T) {
	d := gpio.NewFakeDriver()
	require.NoError(t, d.Low(21))
	g, rec := install(t, 21, d)

	g.Teardown(unix.SIGUSR1)

	assert.Equal(t, gpio.Low, d.Level(21))
	assert.Equal(t, []int{0}, rec.codes)
}

func TestTeardownLowFailureExitsNonZero(t *testing.T) {
	d := gpio.NewFakeDriver()
	d.LowError = errors.New("chip gone")

	var hookErr error
	g, rec := install(t, 26, d, WithHook(func(_ os.Signal, err error) { hookErr = err }))

	g.Teardown(unix.SIGUSR1)

	assert.Equal(t, []int{ExitFailure}, rec.codes)
	assert.ErrorIs(t, hookErr, gpio.ErrSubsystemUnavailable)
}

func TestSettleSkipsHook(t *testing.T) {
	d := gpio.NewFakeDriver()
	hooked := false
	g, rec := install(t, 26, d, WithHook(func(os.Signal, error) { hooked = true }))

	g.Settle(unix.SIGUSR1)

	assert.Equal(t, gpio.Low, d.Level(26))
	assert.Equal(t, []int{0}, rec.codes)
	assert.False(t, hooked, "settle runs after the activation was already reported")
}

func TestSettleLowFailureExitsNonZero(t *testing.T) {
	d := gpio.NewFakeDriver()
	d.LowError = errors.New("chip gone")
	g, rec := install(t, 26, d)

	g.Settle(unix.SIGUSR1)

	assert.Equal(t, []int{ExitFailure}, rec.codes)
}

func TestPending(t *testing.T) {
	g, _ := install(t, 26, gpio.NewFakeDriver())

	_, ok := g.Pending()
	assert.False(t, ok, "no signal raised yet")

	raise(t, unix.SIGUSR1)
	require.Eventually(t, func() bool {
		return len(g.sig) == 1
	}, 2*time.Second, 5*time.Millisecond)

	sig, ok := g.Pending()
	assert.True(t, ok)
	assert.Equal(t, os.Signal(unix.SIGUSR1), sig)
}

func TestAbortLeavesPinUntouched(t *testing.T) {
	d := gpio.NewFakeDriver()
	hooked := false
	g, rec := install(t, 26, d, WithHook(func(os.Signal, error) { hooked = true }))

	g.Abort(unix.SIGUSR1)

	assert.Empty(t, d.Events())
	assert.Equal(t, []int{0}, rec.codes)
	assert.False(t, hooked)
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", SignalName(unix.SIGINT))
	assert.Equal(t, "SIGTERM", SignalName(unix.SIGTERM))
	assert.Equal(t, "UNKNOWN", SignalName(nil))
}
