package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, v map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_StoresTokenAndSendsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/auth/login":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"access_token": "tok-1", "refresh_token": "r", "expires_in": 3600},
			})
		case "/api/admin/inquiries":
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    []map[string]interface{}{{"id": "i1", "status": "pending"}},
			})
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.AccessToken)

	items, err := c.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].InquiryID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestDo_ErrorEnvelopeUnwrapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "유효하지 않은 상태 값입니다"})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.UpdateStatus(context.Background(), "i1", "archived")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "유효하지 않은 상태 값입니다", apiErr.Message)
}

type statusLog struct {
	mu       sync.Mutex
	statuses []realtime.SubscriptionStatus
	events   []domain.ChangeEvent
}

func (l *statusLog) onStatus(st realtime.SubscriptionStatus, _ error) {
	l.mu.Lock()
	l.statuses = append(l.statuses, st)
	l.mu.Unlock()
}

func (l *statusLog) onEvent(ev domain.ChangeEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *statusLog) snapshot() ([]realtime.SubscriptionStatus, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]realtime.SubscriptionStatus(nil), l.statuses...), len(l.events)
}

func TestChangeSource_EventsThenCleanClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(domain.ChangeEvent{Type: domain.ChangeInsert, New: json.RawMessage(`{"id":"i1"}`)})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	c.SetToken("tok")

	var log statusLog
	sub, err := NewChangeSource(c, nil).Subscribe(context.Background(), log.onEvent, log.onStatus)
	require.NoError(t, err)
	defer sub.Close()

	assert.Eventually(t, func() bool {
		st, _ := log.snapshot()
		return len(st) == 2
	}, 2*time.Second, 10*time.Millisecond)

	st, n := log.snapshot()
	assert.Equal(t, []realtime.SubscriptionStatus{realtime.Subscribed, realtime.Closed}, st)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestChangeSource_DialFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var log statusLog
	_, err = NewChangeSource(c, nil).Subscribe(context.Background(), log.onEvent, log.onStatus)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	st, _ := log.snapshot()
	assert.Empty(t, st)
}

func TestChangeSource_LocalCloseIsSilent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var log statusLog
	sub, err := NewChangeSource(c, nil).Subscribe(context.Background(), log.onEvent, log.onStatus)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	st, _ := log.snapshot()
	assert.Equal(t, []realtime.SubscriptionStatus{realtime.Subscribed}, st)
}

// authServer accepts only its current access token and rotates tokens on refresh.
type authServer struct {
	mu        sync.Mutex
	access    string
	refresh   string
	rejectAll bool
	refreshes int
	upgrader  websocket.Upgrader
}

func (s *authServer) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+s.access
}

func (s *authServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/admin/auth/login":
		s.mu.Lock()
		data := map[string]interface{}{"access_token": "tok-stale", "refresh_token": s.refresh, "expires_in": 3600}
		s.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
	case "/api/admin/auth/refresh":
		var req domain.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.refreshes++
		if s.rejectAll || req.RefreshToken != s.refresh {
			s.mu.Unlock()
			writeEnvelope(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "세션이 만료되었습니다"})
			return
		}
		s.refresh = "r-next"
		data := map[string]interface{}{"access_token": s.access, "refresh_token": s.refresh, "expires_in": 3600}
		s.mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
	case "/api/admin/inquiries":
		if !s.authorized(r) {
			writeEnvelope(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "인증이 필요합니다"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": []map[string]interface{}{{"id": "i1"}}})
	case "/api/admin/inquiries/changes":
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (s *authServer) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func signedInWithExpiredToken(t *testing.T, s *authServer, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "tok-stale", c.Token())
	return c
}

func TestDo_ExpiredTokenRenewedAndRetried(t *testing.T) {
	s := &authServer{access: "tok-fresh", refresh: "r-1"}
	expired := 0
	c := signedInWithExpiredToken(t, s, WithSessionExpired(func() { expired++ }))

	items, err := c.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tok-fresh", c.Token())
	assert.Equal(t, 1, s.refreshCount())
	assert.Zero(t, expired)
}

func TestDo_RejectedRefreshExpiresSession(t *testing.T) {
	s := &authServer{access: "tok-fresh", refresh: "r-1", rejectAll: true}
	expired := 0
	c := signedInWithExpiredToken(t, s, WithSessionExpired(func() { expired++ }))

	_, err := c.ListRecent(context.Background(), 100)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, s.refreshCount())
	assert.Empty(t, c.Token())

	// Without tokens there is nothing left to renew.
	_, err = c.ListRecent(context.Background(), 100)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, s.refreshCount())
}

func TestRefresh_WithoutRefreshToken(t *testing.T) {
	c, err := New("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChangeSource_DialRenewsExpiredToken(t *testing.T) {
	s := &authServer{access: "tok-fresh", refresh: "r-1"}
	c := signedInWithExpiredToken(t, s)

	var log statusLog
	sub, err := NewChangeSource(c, nil).Subscribe(context.Background(), log.onEvent, log.onStatus)
	require.NoError(t, err)
	defer sub.Close()

	st, _ := log.snapshot()
	assert.Equal(t, []realtime.SubscriptionStatus{realtime.Subscribed}, st)
	assert.Equal(t, 1, s.refreshCount())
}

func TestChangeSource_DialRejectedRefreshExpiresSession(t *testing.T) {
	s := &authServer{access: "tok-fresh", refresh: "r-1", rejectAll: true}
	expired := make(chan struct{}, 1)
	c := signedInWithExpiredToken(t, s, WithSessionExpired(func() { expired <- struct{}{} }))

	var log statusLog
	_, err := NewChangeSource(c, nil).Subscribe(context.Background(), log.onEvent, log.onStatus)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	select {
	case <-expired:
	default:
		t.Fatal("session expiry not reported")
	}
}
