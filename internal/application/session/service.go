package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/pkg/id"
	"github.com/corpsite-backoffice/internal/pkg/token"
	"github.com/corpsite-backoffice/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("이메일 또는 비밀번호가 올바르지 않습니다: %w", domain.ErrUnauthorized)

// Tokens is the credential pair handed to a signed-in client.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LoginResult struct {
	Tokens
	Profile *domain.Profile `json:"profile"`
	Session *domain.Session `json:"session"`
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	// Register creates an admin account. req.SecretKey must match the configured
	// registration key; registration is closed when no key is configured.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Profile, error)
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, userID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Disable(ctx context.Context, sessionID string) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// Signer issues access tokens bound to a session.
type Signer interface {
	Sign(userID, email, sessionID string) (string, error)
	Expiry() time.Duration
}

type service struct {
	accounts    accountStore
	sessions    sessionStore
	profiles    profileStore
	signer      Signer
	refreshTTL  time.Duration
	registerKey string
	log         *slog.Logger
}

type ServiceDeps struct {
	Accounts    accountStore
	Sessions    sessionStore
	Profiles    profileStore
	Signer      Signer
	RefreshTTL  time.Duration
	RegisterKey string
	Logger      *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{
		accounts:    deps.Accounts,
		sessions:    deps.Sessions,
		profiles:    deps.Profiles,
		signer:      deps.Signer,
		refreshTTL:  deps.RefreshTTL,
		registerKey: deps.RegisterKey,
		log:         log,
	}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	acc, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !acc.Enable {
		return nil, fmt.Errorf("비활성화된 계정입니다: %w", domain.ErrForbidden)
	}
	profile, err := s.profiles.Get(ctx, acc.UserID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	refresh, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           acc.UserID,
		Enable:           true,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.refreshTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	access, err := s.signer.Sign(acc.UserID, acc.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	s.log.Info("admin signed in", "user_id", acc.UserID, "session_id", sess.SessionID)
	return &LoginResult{
		Tokens:  s.tokens(access, refresh),
		Profile: profile,
		Session: sess,
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Disable(ctx, sessionID)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	acc, err := s.accounts.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !acc.Enable {
		return nil, fmt.Errorf("비활성화된 계정입니다: %w", domain.ErrForbidden)
	}
	next, err := token.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, next, time.Now().Add(s.refreshTTL).Unix()); err != nil {
		return nil, err
	}
	access, err := s.signer.Sign(acc.UserID, acc.Email, sess.SessionID)
	if err != nil {
		return nil, err
	}
	t := s.tokens(access, next)
	return &t, nil
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Profile, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	if !token.SecretEqual(req.SecretKey, s.registerKey) {
		return nil, fmt.Errorf("유효하지 않은 가입 키입니다: %w", domain.ErrForbidden)
	}
	if _, err := s.accounts.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("이미 등록된 이메일입니다: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	acc := &domain.Account{
		UserID:       id.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	p := &domain.Profile{
		UserID:    acc.UserID,
		Email:     acc.Email,
		FullName:  req.FullName,
		Role:      domain.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Put(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("admin registered", "user_id", acc.UserID)
	return p, nil
}

func (s *service) tokens(access, refresh string) Tokens {
	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.signer.Expiry() / time.Second),
	}
}
