package natssource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ConnectionConfig describes the NATS server a Source consumes from and how
// the client behaves while the link is down.
type ConnectionConfig struct {
	URL  string
	Name string // client name shown in server monitoring

	// MaxReconnects of -1 retries forever.
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	// At most one of Token, Username/Password or CredentialsFile is used,
	// checked in that order.
	Token           string
	Username        string
	Password        string
	CredentialsFile string
}

// DefaultConnectionConfig returns the settings the conduit CLI consumes with.
func DefaultConnectionConfig(url string) *ConnectionConfig {
	return &ConnectionConfig{
		URL:           url,
		Name:          "conduit",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

func (c *ConnectionConfig) validate() error {
	if c == nil {
		return errors.New("natssource: connection config is required")
	}
	if c.URL == "" {
		return errors.New("natssource: server URL is required")
	}
	return nil
}

func (c *ConnectionConfig) natsOptions(logger *zap.Logger) []nats.Option {
	logger = logger.With(zap.String("client", c.Name))
	opts := []nats.Option{
		nats.Name(c.Name),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.Timeout(c.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("lost connection to NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	switch {
	case c.Token != "":
		opts = append(opts, nats.Token(c.Token))
	case c.Username != "":
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	case c.CredentialsFile != "":
		opts = append(opts, nats.UserCredentials(c.CredentialsFile))
	}
	return opts
}

// Connect dials the server described by cfg. nats.Connect does not take a
// context, so a dial that completes after ctx is done is closed and the
// context error returned.
func Connect(ctx context.Context, cfg *ConnectionConfig, logger *zap.Logger) (*nats.Conn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := cfg.natsOptions(logger)

	type dialed struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan dialed, 1)
	go func() {
		conn, err := nats.Connect(cfg.URL, opts...)
		done <- dialed{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if d := <-done; d.conn != nil {
				d.conn.Close()
			}
		}()
		return nil, fmt.Errorf("natssource: connect to %s: %w", cfg.URL, ctx.Err())
	case d := <-done:
		if d.err != nil {
			return nil, fmt.Errorf("natssource: connect to %s: %w", cfg.URL, d.err)
		}
		logger.Info("connected to NATS", zap.String("url", d.conn.ConnectedUrl()))
		return d.conn, nil
	}
}

// Close drains conn, letting subscriptions finish delivered messages. A failed
// drain closes the connection outright.
func Close(conn *nats.Conn) error {
	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("natssource: drain: %w", err)
	}
	return nil
}
