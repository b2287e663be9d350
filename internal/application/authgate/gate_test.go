package authgate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corpsite-backoffice/internal/domain"
	jwtinfra "github.com/corpsite-backoffice/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeVerifier map[string]*jwtinfra.Claims

func (f fakeVerifier) Verify(token string) (*jwtinfra.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestGate() (*Gate, *mockSessionStore, *mockProfileStore) {
	sessions := new(mockSessionStore)
	profiles := new(mockProfileStore)
	g := NewGate(GateDeps{
		Verifier: fakeVerifier{
			"good": {UserID: "u1", Email: "a@b.com", SessionID: "s1"},
		},
		Sessions:   sessions,
		Profiles:   profiles,
		CookieName: "access_token",
	})
	return g, sessions, profiles
}

func requestWithCookie(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	return r
}

func TestResolve_NoCredentials(t *testing.T) {
	g, _, _ := newTestGate()
	id := g.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, Identity{}, id)
}

func TestResolve_InvalidToken(t *testing.T) {
	g, sessions, _ := newTestGate()
	id := g.Resolve(requestWithCookie("forged"))
	assert.False(t, id.IsAuthenticated)
	assert.False(t, id.IsAdmin)
	sessions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestResolve_DisabledSession(t *testing.T) {
	g, sessions, _ := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: false}, nil)

	id := g.Resolve(requestWithCookie("good"))
	assert.False(t, id.IsAuthenticated)
	assert.Nil(t, id.User)
}

func TestResolve_SessionStoreError(t *testing.T) {
	g, sessions, _ := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(nil, errors.New("timeout"))

	id := g.Resolve(requestWithCookie("good"))
	assert.Equal(t, Identity{}, id)
}

func TestResolve_ProfileFailureFailsClosedForAdmin(t *testing.T) {
	g, sessions, profiles := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	profiles.On("Get", mock.Anything, "u1").Return(nil, errors.New("throttled"))

	id := g.Resolve(requestWithCookie("good"))
	assert.True(t, id.IsAuthenticated)
	assert.False(t, id.IsAdmin)
	assert.False(t, id.IsSuperAdmin)
	assert.Nil(t, id.Profile)
	assert.Equal(t, "u1", id.User.ID)
}

func TestResolve_RoleCapabilities(t *testing.T) {
	cases := []struct {
		role       string
		admin      bool
		superAdmin bool
	}{
		{domain.RoleSuperAdmin, true, true},
		{domain.RoleAdmin, true, false},
		{domain.RoleUser, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			g, sessions, profiles := newTestGate()
			sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
			profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: tc.role}, nil)

			id := g.Resolve(requestWithCookie("good"))
			assert.True(t, id.IsAuthenticated)
			assert.Equal(t, tc.admin, id.IsAdmin)
			assert.Equal(t, tc.superAdmin, id.IsSuperAdmin)
			assert.Equal(t, "s1", id.SessionID)
		})
	}
}

func TestResolve_BearerHeaderPreferred(t *testing.T) {
	g, sessions, profiles := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: domain.RoleAdmin}, nil)

	r := requestWithCookie("forged")
	r.Header.Set("Authorization", "Bearer good")

	assert.True(t, g.Resolve(r).IsAdmin)
}

func TestRecheck_SignedOutSessionLosesAccess(t *testing.T) {
	g, sessions, profiles := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil).Once()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: false}, nil).Once()
	profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: domain.RoleAdmin}, nil)

	id := g.Resolve(requestWithCookie("good"))
	assert.True(t, id.IsAdmin)

	again := g.Recheck(context.Background(), id)
	assert.False(t, again.IsAuthenticated)
	assert.False(t, again.IsAdmin)
}

func TestRecheck_DemotedProfile(t *testing.T) {
	g, sessions, profiles := newTestGate()
	sessions.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: domain.RoleAdmin}, nil).Once()
	profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1", Role: domain.RoleUser}, nil).Once()

	id := g.Resolve(requestWithCookie("good"))
	assert.True(t, id.IsAdmin)

	again := g.Recheck(context.Background(), id)
	assert.True(t, again.IsAuthenticated)
	assert.False(t, again.IsAdmin)
}

func TestRecheck_AnonymousStaysAnonymous(t *testing.T) {
	g, sessions, _ := newTestGate()
	assert.Equal(t, Identity{}, g.Recheck(context.Background(), Identity{}))
	sessions.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
