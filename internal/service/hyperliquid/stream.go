package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream maintains live mid prices over the Hyperliquid WebSocket feed.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool

	mu   sync.RWMutex
	mids map[string]float64
}

// NewStream creates a mid-price stream; call Start to connect.
func NewStream(url string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Stream {
	return &Stream{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
		mids:           make(map[string]float64),
	}
}

type subscribeMessage struct {
	Method       string           `json:"method"`
	Subscription subscriptionSpec `json:"subscription"`
}

type subscriptionSpec struct {
	Type string `json:"type"`
}

type wsMessage struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid ws connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	if s.l != nil {
		s.l.Info("hyperliquid ws connected")
	}
	return nil
}

// Subscribe subscribes to the allMids channel.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("hyperliquid ws not connected")
	}
	msg := subscribeMessage{Method: "subscribe", Subscription: subscriptionSpec{Type: "allMids"}}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe allMids: %w", err)
	}
	return nil
}

// Start connects, subscribes and runs the read loop, reconnecting on
// failure until ctx is cancelled.
func (s *Stream) Start(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	if err := s.Subscribe(ctx); err != nil {
		return err
	}

	go s.pingLoop(ctx)
	go s.readLoop(ctx)
	return nil
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn != nil {
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *Stream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.conn == nil {
			return
		}
		_, b, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.l != nil {
				s.l.Warn("hyperliquid ws read error, reconnecting", applogger.Error(err))
			}
			if err := s.Reconnect(ctx); err != nil {
				if s.l != nil {
					s.l.Error("hyperliquid ws reconnect failed", applogger.Error(err))
				}
				return
			}
			continue
		}

		var m wsMessage
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore non-JSON frames
			continue
		}
		if m.Channel != "allMids" || len(m.Data.Mids) == 0 {
			continue
		}
		s.storeMids(m.Data.Mids)
	}
}

func (s *Stream) storeMids(raw map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for coin, v := range raw {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			s.mids[coin] = price
		}
	}
}

// LastPrice returns the most recent mid for the instrument.
func (s *Stream) LastPrice(instrument string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.mids[instrument]
	return price, ok
}

// Reconnect closes and re-establishes the connection and subscription.
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

// Close closes the WebSocket connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
