package source

import (
	"context"
	"sync/atomic"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
	"pulsedesk/pkg/exception"
)

type EventType uint8

const (
	EventTicker EventType = iota + 1
	EventStatus
)

// Event is the unit adapters publish into the manager's sink.
// Ticker is set for EventTicker; Source/Status for EventStatus. Aggregate is
// filled by the manager before fan-out so consumers never re-reduce.
type Event struct {
	Type      EventType
	Ticker    model.TickerRecord
	Source    string
	Status    enum.ConnectionStatus
	Aggregate enum.ConnectionStatus
}

// Sink is a bounded, non-blocking event queue between adapters and the
// manager. Publishing never blocks a transport read loop.
type Sink struct {
	ch     chan Event
	closed uint32
}

// NewSink allocates a sink with the given capacity.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = 1
	}
	return &Sink{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking.
func (s *Sink) TryPublish(e Event) error {
	if atomic.LoadUint32(&s.closed) != 0 {
		return exception.ErrSinkClosed
	}
	select {
	case s.ch <- e:
		return nil
	default:
		return exception.ErrSinkFull
	}
}

// Close stops the sink from accepting new events.
func (s *Sink) Close() {
	if atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		close(s.ch)
	}
}

// Run consumes events until the context is done or the sink is closed.
func (s *Sink) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
