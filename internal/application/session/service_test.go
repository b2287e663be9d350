package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) Get(ctx context.Context, userID string) (*domain.Account, error) {
	args := m.Called(ctx, userID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Disable(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Put(ctx context.Context, p *domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type stubSigner struct{}

func (stubSigner) Sign(userID, _, sessionID string) (string, error) {
	return "jwt." + userID + "." + sessionID, nil
}
func (stubSigner) Expiry() time.Duration { return time.Hour }

type fixture struct {
	accounts *mockAccountStore
	sessions *mockSessionStore
	profiles *mockProfileStore
	svc      Service
}

func newFixture(registerKey string) *fixture {
	f := &fixture{
		accounts: new(mockAccountStore),
		sessions: new(mockSessionStore),
		profiles: new(mockProfileStore),
	}
	f.svc = NewService(ServiceDeps{
		Accounts:    f.accounts,
		Sessions:    f.sessions,
		Profiles:    f.profiles,
		Signer:      stubSigner{},
		RefreshTTL:  24 * time.Hour,
		RegisterKey: registerKey,
	})
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newFixture("")
	acc := &domain.Account{UserID: "u1", Email: "admin@example.com", PasswordHash: hashed(t, "s3cret!!"), Enable: true}
	f.accounts.On("GetByEmail", mock.Anything, "admin@example.com").Return(acc, nil)
	f.profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: domain.RoleAdmin}, nil)
	f.sessions.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)

	res, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: " Admin@Example.com ", Password: "s3cret!!"})

	require.NoError(t, err)
	assert.Equal(t, "jwt.u1."+res.Session.SessionID, res.AccessToken)
	assert.Len(t, res.RefreshToken, 64)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.True(t, res.Profile.IsAdmin())
	assert.True(t, res.Session.Enable)
	assert.Greater(t, res.Session.RefreshExpiresAt, time.Now().Unix())
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture("")
	acc := &domain.Account{UserID: "u1", Email: "a@b.com", PasswordHash: hashed(t, "right-pass"), Enable: true}
	f.accounts.On("GetByEmail", mock.Anything, "a@b.com").Return(acc, nil)

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.com", Password: "wrong-pass"})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newFixture("")
	f.accounts.On("GetByEmail", mock.Anything, "nobody@b.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "nobody@b.com", Password: "x"})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, errInvalidCredentials, err)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newFixture("")
	acc := &domain.Account{UserID: "u1", Email: "a@b.com", PasswordHash: hashed(t, "pw"), Enable: false}
	f.accounts.On("GetByEmail", mock.Anything, "a@b.com").Return(acc, nil)

	_, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// --- Logout ---

func TestLogout_DisablesSession(t *testing.T) {
	f := newFixture("")
	f.sessions.On("Disable", mock.Anything, "s1").Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), "s1"))
	f.sessions.AssertExpectations(t)
}

// --- Refresh ---

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture("")
	sess := &domain.Session{SessionID: "s1", UserID: "u1", Enable: true, RefreshExpiresAt: time.Now().Add(time.Hour).Unix()}
	f.sessions.On("GetByRefreshToken", mock.Anything, "old").Return(sess, nil)
	f.accounts.On("Get", mock.Anything, "u1").Return(&domain.Account{UserID: "u1", Email: "a@b.com", Enable: true}, nil)
	f.sessions.On("RotateRefreshToken", mock.Anything, "s1", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).Return(nil)

	tok, err := f.svc.Refresh(context.Background(), "old")

	require.NoError(t, err)
	assert.NotEqual(t, "old", tok.RefreshToken)
	assert.Equal(t, "jwt.u1.s1", tok.AccessToken)
}

func TestRefresh_Expired(t *testing.T) {
	f := newFixture("")
	sess := &domain.Session{SessionID: "s1", UserID: "u1", Enable: true, RefreshExpiresAt: time.Now().Add(-time.Minute).Unix()}
	f.sessions.On("GetByRefreshToken", mock.Anything, "old").Return(sess, nil)

	_, err := f.svc.Refresh(context.Background(), "old")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.sessions.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_DisabledSession(t *testing.T) {
	f := newFixture("")
	f.sessions.On("GetByRefreshToken", mock.Anything, "old").Return(nil, domain.ErrUnauthorized)

	_, err := f.svc.Refresh(context.Background(), "old")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// --- Register ---

func registerReq(key string) domain.RegisterRequest {
	return domain.RegisterRequest{Email: "new@example.com", Password: "long-enough", FullName: "홍길동", SecretKey: key}
}

func TestRegister_WrongKeyForbidden(t *testing.T) {
	f := newFixture("open-sesame")

	_, err := f.svc.Register(context.Background(), registerReq("guess"))

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_ClosedWhenNoKeyConfigured(t *testing.T) {
	f := newFixture("")

	_, err := f.svc.Register(context.Background(), registerReq("anything"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture("open-sesame")
	f.accounts.On("GetByEmail", mock.Anything, "new@example.com").Return(&domain.Account{UserID: "u0"}, nil)

	_, err := f.svc.Register(context.Background(), registerReq("open-sesame"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_CreatesAdminProfile(t *testing.T) {
	f := newFixture("open-sesame")
	f.accounts.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound)
	f.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Enable && bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("long-enough")) == nil
	})).Return(nil)
	f.profiles.On("Put", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(nil)

	p, err := f.svc.Register(context.Background(), registerReq("open-sesame"))

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, "홍길동", p.FullName)
	f.accounts.AssertExpectations(t)
}

func TestRegister_ValidationError(t *testing.T) {
	f := newFixture("open-sesame")
	req := registerReq("open-sesame")
	req.Password = "short"

	_, err := f.svc.Register(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
