package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
	outboxSize     = 16
)

type connState int

const (
	stateConnecting connState = iota
	stateReady
	stateFailed
	stateClosed
)

// RealPublisher publishes to an actual MQTT broker.
//
// The connection is made in the background, once, with a bounded timeout, so
// a slow broker never delays the relay. Events published before it settles
// are queued and sent in order when it succeeds. If it fails the publisher
// logs once and discards everything for the rest of the run.
type RealPublisher struct {
	client paho.Client
	topic  string

	// mu serializes publishing so queued events always go out first.
	mu      sync.Mutex
	state   connState
	queue   *outbox
	lost    int
	settled chan struct{}
}

// NewRealPublisher starts connecting to broker and returns immediately.
func NewRealPublisher(broker, topic, clientID string) *RealPublisher {
	p := &RealPublisher{
		topic:   topic,
		queue:   newOutbox(outboxSize),
		settled: make(chan struct{}),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	go func() {
		if !token.WaitTimeout(connectTimeout) {
			p.settle(errors.New("connect timeout"))
			return
		}
		p.settle(token.Error())
	}()
	return p
}

// settle records the outcome of the connection attempt and flushes or
// discards the queue accordingly.
func (p *RealPublisher) settle(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer close(p.settled)

	if p.state == stateClosed {
		return
	}
	pending := p.queue.take()
	if err != nil {
		p.state = stateFailed
		p.lost += len(pending)
		log.Printf("mqtt: connect: %v, notifications disabled", err)
		return
	}

	p.state = stateReady
	for _, msg := range pending {
		if err := wait(p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)); err != nil {
			p.lost++
			log.Printf("mqtt: publish queued: %v", err)
		}
	}
}

// Publish sends a relay event, queueing it until the connection settles.
// After a failed connection events are counted and discarded.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateConnecting:
		p.queue.add(bufferedMsg{topic: p.topic, payload: payload, qos: 1})
		return nil
	case stateFailed, stateClosed:
		p.lost++
		return nil
	}

	// QoS 1 (at-least-once), not retained
	if err := wait(p.client.Publish(p.topic, 1, false, payload)); err != nil {
		p.lost++
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close waits for the connection attempt to settle, then disconnects.
// It reports how many events were never delivered.
func (p *RealPublisher) Close() error {
	select {
	case <-p.settled:
	case <-time.After(connectTimeout):
	}

	p.mu.Lock()
	lost := p.lost + p.queue.size() + p.queue.dropped
	ready := p.state == stateReady
	p.state = stateClosed
	p.mu.Unlock()

	if ready {
		p.client.Disconnect(250)
	}
	if lost > 0 {
		return fmt.Errorf("%d events not delivered", lost)
	}
	return nil
}

func wait(token paho.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}
