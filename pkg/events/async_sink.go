package events

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

// ErrQueueFull is returned when an event is dropped because the publish
// queue has no room left.
var ErrQueueFull = errors.New("event publish queue is full")

// asyncSink hands events to a single publishing goroutine so callers (the
// bubbletea update loop among them) never wait on the transport.
type asyncSink struct {
	publish func(chat.Event) error
	queue   chan chat.Event
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newAsyncSink(publish func(chat.Event) error, buffer int) *asyncSink {
	a := &asyncSink{
		publish: publish,
		queue:   make(chan chat.Event, buffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *asyncSink) Publish(ev chat.Event) error {
	select {
	case <-a.stop:
		return errors.New("event sink is closed")
	default:
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *asyncSink) loop() {
	defer close(a.done)
	for {
		select {
		case ev := <-a.queue:
			a.send(ev)
		case <-a.stop:
			for {
				select {
				case ev := <-a.queue:
					a.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *asyncSink) send(ev chat.Event) {
	if err := a.publish(ev); err != nil {
		log.Warn().Err(err).
			Str("component", "event_bus").
			Str("session_id", ev.SessionID).
			Str("event", string(ev.Type)).
			Msg("failed to publish session event")
	}
}

// Close flushes queued events and stops the publishing goroutine.
func (a *asyncSink) Close() {
	a.once.Do(func() { close(a.stop) })
	<-a.done
}
