package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorepad/go/internal/scorebus"
)

// Handler consumes broadcast envelopes arriving over the feed.
type Handler interface {
	HandleBroadcast(ctx context.Context, env *scorebus.Envelope) error
}

// FeedConfig holds configuration for the WebSocket feed
type FeedConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64

	// Reconnect backoff bounds
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// DefaultFeedConfig returns default WebSocket feed configuration
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		ReconnectMin:   time.Second,
		ReconnectMax:   30 * time.Second,
	}
}

// Feed maintains a WebSocket subscription to the session event stream and
// forwards every decoded envelope to the handler. The handler is in charge
// of dedup and session filtering; the feed only moves bytes.
type Feed struct {
	url     string
	header  http.Header
	handler Handler
	config  FeedConfig
	dialer  *websocket.Dialer
}

// NewFeed creates a feed for the given WebSocket URL.
func NewFeed(url string, handler Handler, config FeedConfig) *Feed {
	return &Feed{
		url:     url,
		handler: handler,
		config:  config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SetHeader adds a header sent on the WebSocket handshake.
func (f *Feed) SetHeader(key, value string) {
	if f.header == nil {
		f.header = make(http.Header)
	}
	f.header.Set(key, value)
}

// Run connects and consumes the feed until ctx is cancelled, reconnecting
// with exponential backoff on any failure. Events delivered during an
// outage are lost; the handler's reload path covers that gap.
func (f *Feed) Run(ctx context.Context) error {
	backoff := f.config.ReconnectMin

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
		if err != nil {
			log.Warn().Err(err).Str("url", f.url).Dur("retry_in", backoff).Msg("failed to connect to event feed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > f.config.ReconnectMax {
				backoff = f.config.ReconnectMax
			}
			continue
		}

		log.Info().Str("url", f.url).Msg("event feed connected")
		backoff = f.config.ReconnectMin

		err = f.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("event feed disconnected, reconnecting")
	}
}

// consume reads envelopes off a single connection until it fails.
func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(f.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		return nil
	})

	// Close the connection on cancellation to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go f.pingLoop(ctx, conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("unexpected close: %w", err)
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		var env scorebus.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn().Err(err).Msg("dropping undecodable feed message")
			continue
		}

		if err := f.handler.HandleBroadcast(ctx, &env); err != nil {
			log.Error().Err(err).Str("event_id", env.ID).Msg("failed to handle broadcast event")
		}
	}
}

// pingLoop keeps the connection alive; the server drops silent peers.
func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
