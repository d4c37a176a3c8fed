package mqtt

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues messages while the broker is unreachable. A retained message
// replaces any retained message already queued for its topic, because the
// broker would only keep the last one. When full, the oldest message is dropped.
// Not safe for concurrent use; the caller synchronizes.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages lost since last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{capacity: capacity}
}

// push queues msg. It reports whether this push was the first to drop a
// message since the last drain.
func (o *outbox) push(msg bufferedMsg) (firstDrop bool) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}
	if len(o.msgs) == o.capacity {
		o.msgs = o.msgs[1:]
		o.dropped++
		firstDrop = o.dropped == 1
	}
	o.msgs = append(o.msgs, msg)
	return firstDrop
}

// drain returns queued messages oldest first with the number dropped, and
// empties the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs = nil
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
