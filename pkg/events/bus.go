package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

// Settings holds the transport configuration for session events.
type Settings struct {
	RedisEnabled  bool   `mapstructure:"redis-enabled" yaml:"redis-enabled"`
	RedisAddr     string `mapstructure:"redis-addr" yaml:"redis-addr"`
	RedisGroup    string `mapstructure:"redis-group" yaml:"redis-group"`
	RedisConsumer string `mapstructure:"redis-consumer" yaml:"redis-consumer"`
}

func DefaultSettings() Settings {
	return Settings{
		RedisAddr:     "localhost:6379",
		RedisGroup:    "itb-chat",
		RedisConsumer: "ui-1",
	}
}

// TopicForSession is the topic (or Redis stream) carrying a session's events.
func TopicForSession(sessionID string) string { return "chat:" + sessionID }

// Bus carries chat.Event notifications from sessions to their observers.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	redis      *redis.Client
	// async is set for remote transports; local observers publish inline
	async *asyncSink
}

const remoteQueueSize = 256

// BuildBus returns a Redis Streams backed bus when enabled and an in-memory
// gochannel bus otherwise.
func BuildBus(s Settings) (*Bus, error) {
	logger := NewWatermillLogger(log.Logger)
	if !s.RedisEnabled {
		return NewInMemoryBus(logger), nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to create redis stream publisher")
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.RedisGroup,
		Consumer:      s.RedisConsumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to create redis stream subscriber")
	}
	log.Info().Str("addr", s.RedisAddr).Str("group", s.RedisGroup).Msg("session events mirrored to redis streams")
	b := &Bus{publisher: pub, subscriber: sub, redis: client}
	b.async = newAsyncSink(b.publishEvent, remoteQueueSize)
	return b, nil
}

// NewInMemoryBus never blocks publishers on slow subscribers; observers
// treat events as "something changed" and re-read the session.
func NewInMemoryBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	gc := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: false,
	}, logger)
	return &Bus{publisher: gc, subscriber: gc}
}

// EnsureGroupAtTail creates the consumer group for a session stream at the
// tail so a new observer does not replay history. No-op for in-memory buses.
func (b *Bus) EnsureGroupAtTail(ctx context.Context, sessionID, group string) error {
	if b.redis == nil {
		return nil
	}
	stream := TopicForSession(sessionID)
	err := b.redis.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "failed to create consumer group for %s", stream)
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}

// Sink returns a chat.Sink that publishes each event on its session topic.
// Remote buses publish from a background queue and skip draft changes, which
// fire on every keystroke.
func (b *Bus) Sink() chat.Sink {
	if b.async == nil {
		return chat.SinkFunc(b.publishEvent)
	}
	return chat.SinkFunc(func(ev chat.Event) error {
		if ev.Type == chat.EventDraftChanged {
			return nil
		}
		return b.async.Publish(ev)
	})
}

func (b *Bus) publishEvent(ev chat.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to encode session event")
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", string(ev.Type))
	return b.publisher.Publish(TopicForSession(ev.SessionID), msg)
}

func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan *message.Message, error) {
	ch, err := b.subscriber.Subscribe(ctx, TopicForSession(sessionID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to session %s", sessionID)
	}
	return ch, nil
}

func (b *Bus) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.async != nil {
		b.async.Close()
	}
	// closing a gochannel twice is a no-op, so publisher and subscriber can
	// be the same value
	keep(b.publisher.Close())
	keep(b.subscriber.Close())
	if b.redis != nil {
		keep(b.redis.Close())
	}
	return firstErr
}

// DecodeEvent reads the chat.Event carried by a bus message.
func DecodeEvent(msg *message.Message) (chat.Event, error) {
	var ev chat.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return chat.Event{}, errors.Wrap(err, "failed to decode session event")
	}
	return ev, nil
}

// Forward drains a subscription, acking every message and passing decoded
// events to handle, until the channel closes or ctx is done.
func Forward(ctx context.Context, ch <-chan *message.Message, handle func(chat.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := DecodeEvent(msg)
			msg.Ack()
			if err != nil {
				log.Warn().Err(err).Str("component", "event_forwarder").Msg("dropping undecodable event")
				continue
			}
			handle(ev)
		}
	}
}
