package mqtt

import "log"

// queuedMsg is a serialized message held for replay after reconnect.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages raised while the broker is unreachable. It is
// bounded; when full the oldest message is dropped. Not safe for concurrent
// use, the caller must synchronize.
type outbox struct {
	msgs    []queuedMsg
	limit   int
	dropped int // messages dropped since the last drain
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit}
}

func (o *outbox) add(m queuedMsg) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.limit)
		}
		o.dropped++
		o.msgs = o.msgs[1:]
	}
	o.msgs = append(o.msgs, m)
}

// drain returns the queued messages oldest-first and empties the outbox.
func (o *outbox) drain() []queuedMsg {
	msgs := o.msgs
	o.msgs = nil
	o.dropped = 0
	return msgs
}

func (o *outbox) size() int {
	return len(o.msgs)
}
