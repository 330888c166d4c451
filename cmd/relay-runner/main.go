// Command relay-runner energizes one relay for a number of seconds.
//
//	relay_runner [flags] <relay number> <duration in seconds>
//
// The relay's GPIO line is driven low again when the time is up or when the
// process receives SIGINT or SIGTERM.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/sweeney/relay-runner/internal/gpio"
	"github.com/sweeney/relay-runner/internal/mqtt"
	"github.com/sweeney/relay-runner/internal/relay"
	"github.com/sweeney/relay-runner/internal/sequencer"
)

// Exit statuses.
const (
	exitOK       = 0
	exitArgs     = 1
	exitID       = 2
	exitDuration = 3
	exitRelay    = 4
	exitHardware = 5
)

const usage = "Usage: relay_runner <relay number> <duration in seconds>"

// Messages printed on the Error: line.
const (
	msgArgCount = "Exactly 2 arguments expected"
	msgID       = "Invalid Pin Argument"
	msgDuration = "Invalid Seconds Argument"
	msgRelay    = "Invalid Relay"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, deps{open: gpio.Open, publisher: newPublisher}))
}

type options struct {
	driver         string
	chip           string
	resetOnRelease bool
	broker         string
	topic          string
}

// deps are the collaborators tests substitute.
type deps struct {
	// open matches gpio.Open.
	open func(name string, opts gpio.Options) (gpio.Driver, error)

	// publisher is only called once the invocation has been validated.
	publisher func(broker, topic string) mqtt.Publisher
}

func newPublisher(broker, topic string) mqtt.Publisher {
	return mqtt.NewRealPublisher(broker, topic, fmt.Sprintf("relay-runner-%d", os.Getpid()))
}

func run(args []string, stdout io.Writer, d deps) int {
	var o options
	fs := flag.NewFlagSet("relay_runner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.driver, "driver", gpio.BackendRpio, "GPIO backend: "+strings.Join(gpio.Backends, ", "))
	fs.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO character device (cdev backend)")
	fs.BoolVar(&o.resetOnRelease, "reset-on-release", false, "Revert the line to input after each write (diagnostics only)")
	fs.StringVar(&o.broker, "broker", "", "MQTT broker for lifecycle events (empty to disable)")
	fs.StringVar(&o.topic, "topic", mqtt.DefaultTopic, "MQTT topic for lifecycle events")

	flagArgs, positional := splitArgs(fs, args)
	if err := fs.Parse(flagArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stdout, usage)
			fs.SetOutput(stdout)
			fs.PrintDefaults()
			return exitOK
		}
		printHelp(stdout, err.Error())
		return exitArgs
	}

	if len(positional) != 2 {
		printHelp(stdout, msgArgCount)
		return exitArgs
	}

	id, err := relay.ParseID(positional[0])
	if err != nil {
		printHelp(stdout, msgID)
		return exitID
	}
	secs, err := relay.ParseSeconds(positional[1])
	if err != nil {
		printHelp(stdout, msgDuration)
		return exitDuration
	}

	if _, err := relay.Pin(id); err != nil {
		printHelp(stdout, msgRelay)
		return exitRelay
	}
	if _, err := relay.Duration(secs); err != nil {
		printHelp(stdout, msgDuration)
		return exitDuration
	}

	driver, err := d.open(o.driver, gpio.Options{Chip: o.chip, ResetOnRelease: o.resetOnRelease})
	if err != nil {
		printHelp(stdout, err.Error())
		return exitArgs
	}

	// Run closes the publisher.
	var pub mqtt.Publisher = mqtt.NopPublisher{}
	if o.broker != "" {
		pub = d.publisher(o.broker, o.topic)
	}

	seq := sequencer.New(sequencer.Config{
		Driver:    driver,
		Publisher: pub,
		Stdout:    stdout,
	})

	err = seq.Run(id, secs)
	switch {
	case err == nil, errors.Is(err, sequencer.ErrInterrupted):
		return exitOK
	case errors.Is(err, relay.ErrInvalidRelay):
		printHelp(stdout, msgRelay)
		return exitRelay
	case errors.Is(err, relay.ErrInvalidDuration):
		printHelp(stdout, msgDuration)
		return exitDuration
	default:
		log.Printf("fatal: %v", err)
		return exitHardware
	}
}

func printHelp(w io.Writer, msg string) {
	fmt.Fprintf(w, "Error: %s\n", msg)
	fmt.Fprintln(w, usage)
}

// splitArgs separates leading flags from positional arguments. Anything that
// does not start with a dash followed by a letter ends the flags, so negative
// numbers such as -1 are treated as positionals. A bare "--" also ends them.
func splitArgs(fs *flag.FlagSet, args []string) (flags, positional []string) {
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			return args[:i], args[i+1:]
		}
		name, ok := flagName(a)
		if !ok {
			break
		}
		// "-name value" consumes the next argument unless name is boolean.
		if f := fs.Lookup(name); f != nil && !strings.Contains(a, "=") && !isBool(f) {
			i++
		}
		i++
	}
	if i > len(args) {
		i = len(args)
	}
	return args[:i], args[i:]
}

func flagName(a string) (string, bool) {
	name := strings.TrimLeft(a, "-")
	if name == a || len(a)-len(name) > 2 || name == "" {
		return "", false
	}
	c := name[0]
	if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') {
		return "", false
	}
	if eq := strings.IndexByte(name, '='); eq >= 0 {
		name = name[:eq]
	}
	return name, true
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
