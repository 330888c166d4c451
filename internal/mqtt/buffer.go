package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message until the connection is up.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues messages published before the broker connection settles.
// When full, the oldest message is discarded and counted. Not safe for
// concurrent use; caller must synchronize.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int
}

func newOutbox(limit int) *outbox {
	return &outbox{msgs: make([]bufferedMsg, 0, limit), limit: limit}
}

func (o *outbox) add(msg bufferedMsg) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.limit)
		}
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// take returns queued messages oldest first and empties the queue. The
// dropped count is kept; it reflects the whole lifetime of the outbox.
func (o *outbox) take() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]bufferedMsg, 0, o.limit)
	return out
}

func (o *outbox) size() int {
	return len(o.msgs)
}
