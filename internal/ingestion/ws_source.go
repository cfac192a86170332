package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"channel-trust-lab/internal/observability"
)

// WSConfig configures WebSocket feed behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages; a pong extends it.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control and subscribe frames.
	WriteTimeout time.Duration
	// Buffer is the capacity of the payload channel.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1000,
	}
}

// subscribeRequest is sent after every (re)connect when channels are configured.
type subscribeRequest struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// WSSource reads snapshot payloads from a scanner WebSocket feed and
// reconnects with exponential backoff when the connection drops.
type WSSource struct {
	endpoint string
	channels []string
	config   WSConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// WSSourceOptions contains configuration for creating a WSSource.
type WSSourceOptions struct {
	Endpoint string
	Channels []string  // optional channel filter sent in the subscribe frame
	Config   *WSConfig // nil uses DefaultWSConfig
	Logger   *zap.Logger
	Metrics  *observability.Metrics // optional
}

// NewWSSource creates a new WebSocket snapshot source.
func NewWSSource(opts WSSourceOptions) *WSSource {
	cfg := DefaultWSConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSSource{
		endpoint: opts.Endpoint,
		channels: opts.Channels,
		config:   cfg,
		logger:   logger.Named("ws"),
		metrics:  opts.Metrics,
	}
}

var _ SnapshotSource = (*WSSource)(nil)

// Subscribe dials the feed and streams payloads until ctx is cancelled.
// The first dial error is returned; later disconnects are retried.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan []byte, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscribed to feed", zap.String("endpoint", s.endpoint), zap.Strings("channels", s.channels))

	out := make(chan []byte, s.config.Buffer)
	go s.loop(ctx, conn, out)
	return out, nil
}

// dial establishes the connection and sends the subscribe frame.
func (s *WSSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	if len(s.channels) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(subscribeRequest{Type: "subscribe", Channels: s.channels}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write subscribe: %w", err)
		}
	}
	return conn, nil
}

// loop reads from conn and reconnects on failure until ctx is done.
func (s *WSSource) loop(ctx context.Context, conn *websocket.Conn, out chan<- []byte) {
	defer close(out)

	for {
		err := s.read(ctx, conn, out)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("feed connection lost", zap.Error(err))

		conn = s.reconnect(ctx)
		if conn == nil {
			return
		}
	}
}

// reconnect dials with exponential backoff. Returns nil when ctx is done.
func (s *WSSource) reconnect(ctx context.Context) *websocket.Conn {
	delay := s.config.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := s.dial(ctx)
		if err == nil {
			if s.metrics != nil {
				s.metrics.FeedReconnects.Inc()
			}
			s.logger.Info("feed reconnected", zap.Int("attempt", attempt))
			return conn
		}
		s.logger.Warn("feed reconnect failed", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// read forwards messages from one connection until it fails or ctx is done.
func (s *WSSource) read(ctx context.Context, conn *websocket.Conn, out chan<- []byte) error {
	stop := make(chan struct{})
	defer close(stop)

	// Unblock ReadMessage on cancellation and keep the connection alive.
	go func() {
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(s.config.WriteTimeout))
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			}
		}
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		select {
		case out <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
