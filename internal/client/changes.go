package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/realtime"
	"github.com/gorilla/websocket"
)

// ChangeSource subscribes to the server's inquiry change stream over WebSocket.
type ChangeSource struct {
	client *Client
	dialer *websocket.Dialer
	log    *slog.Logger
}

func NewChangeSource(c *Client, log *slog.Logger) *ChangeSource {
	if log == nil {
		log = slog.Default()
	}
	return &ChangeSource{client: c, dialer: websocket.DefaultDialer, log: log}
}

type wsSub struct {
	conn *websocket.Conn
	once sync.Once
	done chan struct{}
	// closing is set before a local Close so the reader stays quiet.
	mu      sync.Mutex
	closing bool
}

func (s *wsSub) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		err = s.conn.Close()
		<-s.done
	})
	return err
}

func (s *wsSub) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Subscribe dials the stream and reports Subscribed once the handshake succeeds.
// A 401 handshake renews the session and dials once more. A dial failure is returned
// as an error. After that, a clean close from the server reports Closed and any
// other read failure reports ChannelError.
func (s *ChangeSource) Subscribe(ctx context.Context, onEvent realtime.Handler, onStatus realtime.StatusFunc) (realtime.Subscription, error) {
	u, err := s.streamURL()
	if err != nil {
		return nil, err
	}
	used := s.client.Token()
	conn, err := s.dial(ctx, u, used)
	if isUnauthorized(err) && used != "" {
		if rerr := s.client.renew(ctx, used); rerr != nil {
			return nil, err
		}
		conn, err = s.dial(ctx, u, s.client.Token())
	}
	if err != nil {
		return nil, err
	}
	onStatus(realtime.Subscribed, nil)

	sub := &wsSub{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		s.read(ctx, sub, onEvent, onStatus)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *ChangeSource) dial(ctx context.Context, u, token string) (*websocket.Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := s.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial change stream: %w", &APIError{Status: resp.StatusCode, Message: resp.Status})
		}
		return nil, fmt.Errorf("dial change stream: %w", err)
	}
	return conn, nil
}

func (s *ChangeSource) read(ctx context.Context, sub *wsSub, onEvent realtime.Handler, onStatus realtime.StatusFunc) {
	for {
		_, msg, err := sub.conn.ReadMessage()
		if err != nil {
			if sub.isClosing() || ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				onStatus(realtime.Closed, nil)
			} else {
				onStatus(realtime.ChannelError, err)
			}
			return
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.log.Warn("bad change message", "err", err)
			continue
		}
		onEvent(ev)
	}
}

func (s *ChangeSource) streamURL() (string, error) {
	u := *s.client.base
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/admin/inquiries/changes"
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String(), nil
}
