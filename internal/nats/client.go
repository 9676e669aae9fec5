package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/resumeai-platform/resumeai/internal/config"
)

// Client wraps a NATS connection with JetStream support.
type Client struct {
	conn      *nats.Conn
	js        jetstream.JetStream
	retention time.Duration
}

// NewClient connects to NATS and ensures the events stream exists.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("resumeai-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	retention := cfg.AuditRetention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	c := &Client{conn: nc, js: js, retention: retention}

	if err := c.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring stream: %w", err)
	}

	slog.Info("connected to NATS", "url", cfg.URL)
	return c, nil
}

func (c *Client) ensureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:      StreamEvents,
		Subjects:  []string{SubjectEventsAll},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    c.retention,

		// Publishes are deduplicated by event id within this window.
		Duplicates: 10 * time.Minute,
	}
	if _, err := c.js.CreateOrUpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("creating stream %s: %w", cfg.Name, err)
	}
	slog.Debug("ensured NATS stream", "name", cfg.Name, "max_age", cfg.MaxAge)
	return nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Healthy returns true if NATS connection is active.
func (c *Client) Healthy() bool {
	return c.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("draining NATS connection", "error", err)
	}
}
