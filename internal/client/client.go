// Package client talks to the back office API as an admin.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corpsite-backoffice/internal/application/authgate"
	"github.com/corpsite-backoffice/internal/application/session"
	"github.com/corpsite-backoffice/internal/domain"
)

// APIError is a non-2xx response. It unwraps to the matching domain sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return domain.ErrBadRequest
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

const authPrefix = "/api/admin/auth/"

// Client is a typed HTTP client. It keeps the tokens from the last sign-in, sends
// the access token as a bearer token and renews it once when a call gets 401.
type Client struct {
	base      *url.URL
	http      *http.Client
	onExpired func()

	mu           sync.RWMutex
	token        string
	refreshToken string

	// renewMu serialises renewals so a rotated refresh token is used only once.
	renewMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionExpired sets a callback run when the session can no longer be renewed.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 15 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) setTokens(t session.Tokens) {
	c.mu.Lock()
	c.token, c.refreshToken = t.AccessToken, t.RefreshToken
	c.mu.Unlock()
}

func (c *Client) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	var res session.LoginResult
	err := c.do(ctx, http.MethodPost, authPrefix+"login", domain.LoginRequest{Email: email, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	c.setTokens(res.Tokens)
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, authPrefix+"logout", nil, nil)
	c.setTokens(session.Tokens{})
	return err
}

// Refresh trades the stored refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context) (*session.Tokens, error) {
	c.mu.RLock()
	rt := c.refreshToken
	c.mu.RUnlock()
	if rt == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "no refresh token"}
	}
	var tok session.Tokens
	if err := c.send(ctx, http.MethodPost, authPrefix+"refresh", domain.RefreshRequest{RefreshToken: rt}, &tok); err != nil {
		return nil, err
	}
	c.setTokens(tok)
	return &tok, nil
}

// renew refreshes the session after a 401 seen with access token used. It returns
// nil when a newer token is in place, either from this call or a concurrent one.
// A rejected refresh runs the expiry callback.
func (c *Client) renew(ctx context.Context, used string) error {
	c.renewMu.Lock()
	defer c.renewMu.Unlock()
	if cur := c.Token(); cur != "" && cur != used {
		return nil
	}
	_, err := c.Refresh(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrBadRequest) {
		c.setTokens(session.Tokens{})
		if c.onExpired != nil {
			c.onExpired()
		}
	}
	return err
}

// Session resolves the identity behind the current token.
func (c *Client) Session(ctx context.Context) (authgate.Identity, error) {
	var id authgate.Identity
	err := c.do(ctx, http.MethodGet, "/api/admin/auth/session", nil, &id)
	return id, err
}

// ListRecent returns the newest inquiries, created_at descending.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error) {
	var items []domain.Inquiry
	err := c.do(ctx, http.MethodGet, "/api/admin/inquiries?limit="+strconv.Itoa(limit), nil, &items)
	return items, err
}

func (c *Client) UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error) {
	var inq domain.Inquiry
	path := "/api/admin/inquiries/" + url.PathEscape(inquiryID)
	if err := c.do(ctx, http.MethodPatch, path, domain.UpdateInquiryStatusRequest{Status: status}, &inq); err != nil {
		return nil, err
	}
	return &inq, nil
}

// do sends one request. A 401 outside the auth routes renews the session and
// retries once.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	used := c.Token()
	err := c.send(ctx, method, path, body, out)
	if !isUnauthorized(err) || strings.HasPrefix(path, authPrefix) || used == "" {
		return err
	}
	if rerr := c.renew(ctx, used); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, body, out)
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
