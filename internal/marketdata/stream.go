package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/logger"
)

const pingWriteWait = 5 * time.Second

// Stream implements a TickStream backed by a trade websocket feed.
type Stream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream creates a live trade feed client.
func NewStream(log *logger.Logger, apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) repository.TickStream {
	if log == nil {
		log = logger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the websocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.log.Info("market stream connected")
	return nil
}

// current snapshots the connection under the lock.
func (s *Stream) current() (*websocket.Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.connected
}

// Subscribe subscribes to the configured symbols. It must not run
// concurrently with an active read cycle's data writes; the collector
// calls it only before Read and on the reconnect path, after the
// previous cycle has ended.
func (s *Stream) Subscribe(ctx context.Context) error {
	conn, ok := s.current()
	if !ok {
		return fmt.Errorf("stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		s.log.Info("subscribed", logger.String("symbol", sym))
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams ticks and errors until ctx is cancelled or the
// connection drops. Ticks are dropped on backpressure rather than
// stalling the read loop. Each call owns the connection that was
// current when it started; the keep-alive loop it spawns ends with
// the read loop, not with ctx.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	conn, ok := s.current()
	if !ok {
		errs <- fmt.Errorf("stream not connected")
		close(ticks)
		close(errs)
		return ticks, errs
	}

	done := make(chan struct{})
	go s.keepAlive(ctx, conn, done)

	go func() {
		defer close(done)
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("stream read: %w", err)
				return
			}
			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil {
				// ignore non-trade frames
				continue
			}
			if m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				tick := &models.Tick{
					Symbol:    d.S,
					Timestamp: d.T / 1000,
					Price:     d.P,
					Volume:    d.V,
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// keepAlive pings the connection it was started with. Control frames
// may be written concurrently with the data writer, so this never
// races with Subscribe. done is closed when the owning read cycle
// exits.
func (s *Stream) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(pingWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// Reconnect closes and re-establishes the connection.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected reports the connection state.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
