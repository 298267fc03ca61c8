package netonl

import "context"

// eventStreamCapacity bounds the event channel. The producer's send path
// never drops silently, so a full channel means the producer suspends until
// the consumer drains it.
const eventStreamCapacity = 100

// eventStream is the bounded, single-producer/single-consumer pipe the
// decision loop publishes State transitions on.
type eventStream struct {
	ch chan State
}

func newEventStream() *eventStream {
	return &eventStream{ch: make(chan State, eventStreamCapacity)}
}

// send blocks until the event is enqueued or ctx is canceled. It never
// drops an event silently.
func (s *eventStream) send(ctx context.Context, st State) {
	select {
	case s.ch <- st:
	case <-ctx.Done():
	}
}

func (s *eventStream) close() {
	close(s.ch)
}

// EventReceiver is the consumer end of a Controller's event stream,
// returned by Start. The caller owns it; the Controller itself is no
// longer directly reachable once started.
type EventReceiver struct {
	ch <-chan State
}

// Recv yields the next state event. ok is false once the stream is closed
// and drained, mirroring a Go channel receive.
func (r *EventReceiver) Recv() (st State, ok bool) {
	st, ok = <-r.ch
	return st, ok
}
