package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mcdev12/scorepad/go/internal/scorebus"
)

// NATSPublisherConfig holds configuration for the JetStream publisher
type NATSPublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSPublisherConfig returns default JetStream publisher configuration
func DefaultNATSPublisherConfig() NATSPublisherConfig {
	return NATSPublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "SCORE_EVENTS",
		SubjectPrefix: "score.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes outbox events to a JetStream stream. The wire
// format is the scorebus envelope, so gateway consumers can relay messages
// to clients without re-encoding.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config NATSPublisherConfig
	logger *slog.Logger
}

// NewNATSPublisher connects to NATS and ensures the stream exists.
func NewNATSPublisher(config NATSPublisherConfig, logger *slog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error("NATS disconnected", slog.String("error", fmt.Sprint(err)))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &NATSPublisher{
		nc:     nc,
		js:     js,
		config: config,
		logger: logger,
	}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

// ensureStream creates or updates the JetStream stream
func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      p.config.StreamName,
		Subjects:  []string{p.config.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	p.logger.Info("JetStream stream ready",
		slog.String("stream", p.config.StreamName),
		slog.String("subjects", p.config.SubjectPrefix+".>"))
	return nil
}

// Publish sends one event to the stream. The outbox row ID becomes the
// envelope ID, so clients can dedup redeliveries.
func (p *NATSPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, event.EventType)

	envelope := scorebus.Envelope{
		ID:        event.ID.String(),
		SessionID: event.SessionID,
		Type:      scorebus.EventType(event.EventType),
		Timestamp: event.CreatedAt,
		Data:      event.Payload,
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Msg-ID dedup keeps a crashed worker from double-publishing a row.
	if _, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    messageBytes,
	}, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.Debug("published event",
		slog.String("subject", subject),
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType))

	return nil
}

// Close shuts down the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// MockPublisher is a simple in-memory publisher for development/testing
type MockPublisher struct {
	logger *slog.Logger

	Published []OutboxEvent
}

func NewMockPublisher(logger *slog.Logger) *MockPublisher {
	return &MockPublisher{logger: logger}
}

func (p *MockPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.Published = append(p.Published, event)
	p.logger.Info("publishing event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("session_id", event.SessionID.String()))
	return nil
}
