package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"chainledger/internal/domain"
	"chainledger/internal/observability"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the emitted channel's capacity.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            100,
	}
}

// WSSource streams raw transactions from a WebSocket feed. It subscribes for
// a set of wallet IDs and reconnects with exponential backoff when the
// connection drops.
type WSSource struct {
	endpoint string
	wallets  []string
	config   WSConfig
	logger   *log.Logger
	now      func() time.Time
}

// NewWSSource creates a WSSource for the given endpoint and wallet IDs.
func NewWSSource(endpoint string, wallets []string, config *WSConfig, logger *log.Logger) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WSSource{
		endpoint: endpoint,
		wallets:  wallets,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Source = (*WSSource)(nil)

type wsSubscribeRequest struct {
	Op      string   `json:"op"`
	Wallets []string `json:"wallets"`
}

// Subscribe connects and returns the transaction stream. The stream survives
// connection drops; it closes only when the context is cancelled.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan *domain.RawTransaction, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *domain.RawTransaction, s.config.Buffer)
	go s.readLoop(ctx, conn, out)
	return out, nil
}

// connect dials the endpoint and sends the subscription request.
func (s *WSSource) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetWriteDeadline(s.now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(wsSubscribeRequest{Op: "subscribe", Wallets: s.wallets}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("websocket subscribe: %w", err)
	}
	return conn, nil
}

// readLoop reads messages until the context ends, reconnecting on errors.
func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- *domain.RawTransaction) {
	defer close(out)
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	delay := s.config.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		if conn == nil {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}

			next, err := s.connect(ctx)
			if err != nil {
				s.logger.Printf("[ingest] reconnect failed: %v", err)
				observability.DefaultMetrics.IngestErrors.Inc()
				continue
			}
			observability.DefaultMetrics.WSReconnects.Inc()
			conn = next
		}

		conn.SetReadDeadline(s.now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			conn = nil
			s.logger.Printf("[ingest] read failed, reconnecting in %v: %v", delay, err)
			continue
		}
		delay = s.config.ReconnectDelay

		var wire wireTransaction
		if err := json.Unmarshal(msg, &wire); err != nil {
			s.logger.Printf("[ingest] malformed message dropped: %v", err)
			observability.DefaultMetrics.IngestErrors.Inc()
			continue
		}
		tx, err := wire.toDomain(s.now().UnixMilli())
		if err != nil {
			s.logger.Printf("[ingest] invalid transaction dropped: %v", err)
			observability.DefaultMetrics.IngestErrors.Inc()
			continue
		}

		select {
		case out <- tx:
		case <-ctx.Done():
			return
		}
	}
}
