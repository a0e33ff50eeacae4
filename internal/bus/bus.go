// Package bus provides the durable, at-least-once message bus every agent
// publishes and subscribes through. It wraps NATS JetStream instead of
// core-NATS pub/sub (internal/orchestrator/messagebus.go) to get
// persistent queues with bounded redelivery and a per-topic dead-letter
// queue — guarantees core NATS pub/sub does not give.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// Config configures the bus connection and JetStream stream.
type Config struct {
	URL          string
	StreamName   string // default "PIPELINE"
	MaxDeliver   int    // bounded retries before a message is routed to the DLQ
	AckWait      time.Duration
	StreamPrefix string // subject prefix captured by the stream, default "pipeline."
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() Config {
	return Config{
		URL:          nats.DefaultURL,
		StreamName:   "PIPELINE",
		MaxDeliver:   5,
		AckWait:      30 * time.Second,
		StreamPrefix: "pipeline.",
	}
}

// Bus is the JetStream-backed message bus. One Bus is shared by all of an
// agent process's publishers and consumers.
type Bus struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    Config
}

// Connect dials NATS, ensures the pipeline stream exists, and returns a ready
// Bus. Reconnection is infinite and transparent to callers, matching the
// teacher's messagebus.go connection policy.
func Connect(ctx context.Context, cfg Config) (*Bus, error) {
	if cfg.StreamName == "" {
		cfg.StreamName = "PIPELINE"
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.AckWait == 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = "pipeline."
	}

	conn, err := nats.Connect(
		cfg.URL,
		nats.Name("tradingpipeline"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{cfg.StreamPrefix + ">"},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}

	log.Info().Str("url", cfg.URL).Str("stream", cfg.StreamName).Msg("bus connected")

	return &Bus{conn: conn, js: js, stream: stream, cfg: cfg}, nil
}

// subject maps a canonical topic (e.g. "trade.intent") to the JetStream
// subject it is published under.
func (b *Bus) subject(topic string) string {
	return b.cfg.StreamPrefix + topic
}

// Publish wraps payload in a protocol.Envelope and publishes it to topic,
// waiting for the broker's durable-write ack.
func (b *Bus) Publish(ctx context.Context, topic, sourceAgent string, payload interface{}) error {
	env, err := protocol.NewEnvelope(sourceAgent, topic, payload)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}

	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if _, err := b.js.Publish(ctx, b.subject(topic), data); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	log.Debug().
		Str("message_id", env.MessageID.String()).
		Str("source_agent", sourceAgent).
		Str("topic", topic).
		Msg("published message")

	return nil
}

// Handler processes one envelope. Returning nil acks the message; returning
// an error naks it for redelivery, up to the consumer's MaxDeliver, after
// which the broker routes it to the topic's DLQ.
type Handler func(ctx context.Context, env *protocol.Envelope) error

// Subscription is an active durable consumer on one topic.
type Subscription struct {
	consumeCtx jetstream.ConsumeContext
}

// Stop cancels the subscription's delivery loop.
func (s *Subscription) Stop() {
	if s.consumeCtx != nil {
		s.consumeCtx.Stop()
	}
}

// Subscribe creates (or reattaches to) a durable consumer named
// consumerName on topic and delivers every message to handler. Handler
// errors nak the message for redelivery; after cfg.MaxDeliver attempts the
// message is forwarded to the topic's DLQ subject
// ("<prefix>dlq.<topic>") and acked so it does not loop forever, and the
// poison-message counter is logged.
//
// Concurrent handler invocation per topic is the default; pass a handler
// that serializes internally (e.g. a per-symbol mutex) when ordering must
// be preserved.
func (b *Bus) Subscribe(ctx context.Context, topic, consumerName string, handler Handler) (*Subscription, error) {
	cons, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: b.subject(topic),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.cfg.AckWait,
		MaxDeliver:    b.cfg.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s on %s: %w", consumerName, topic, err)
	}

	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		b.deliver(ctx, topic, consumerName, msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("start consuming %s: %w", topic, err)
	}

	log.Info().Str("topic", topic).Str("consumer", consumerName).Msg("subscribed")

	return &Subscription{consumeCtx: consumeCtx}, nil
}

func (b *Bus) deliver(ctx context.Context, topic, consumerName string, msg jetstream.Msg, handler Handler) {
	env, err := protocol.UnmarshalEnvelope(msg.Data())
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("malformed envelope, routing to dlq")
		b.toDLQ(ctx, topic, msg.Data())
		_ = msg.Ack()
		return
	}

	meta, _ := msg.Metadata()
	var deliveries uint64
	if meta != nil {
		deliveries = meta.NumDelivered
	}

	if err := handler(ctx, env); err != nil {
		if int(deliveries) >= b.cfg.MaxDeliver {
			log.Error().
				Err(err).
				Str("message_id", env.MessageID.String()).
				Str("topic", topic).
				Uint64("deliveries", deliveries).
				Msg("poison message exceeded max deliveries, routing to dlq")
			b.toDLQ(ctx, topic, msg.Data())
			_ = msg.Ack()
			return
		}

		log.Warn().
			Err(err).
			Str("message_id", env.MessageID.String()).
			Str("consumer", consumerName).
			Str("topic", topic).
			Uint64("deliveries", deliveries).
			Msg("handler failed, nak for redelivery")
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

func (b *Bus) toDLQ(ctx context.Context, topic string, data []byte) {
	subject := b.cfg.StreamPrefix + "dlq." + topic
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish to dlq")
	}
}

// Close closes the underlying NATS connection.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
		log.Info().Msg("bus closed")
	}
}

// Conn exposes the raw NATS connection for components that need it directly
// (e.g. the agent framework's control-topic subscription).
func (b *Bus) Conn() *nats.Conn {
	return b.conn
}
