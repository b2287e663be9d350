package http

import (
	"context"

	"github.com/corpsite-backoffice/internal/domain"
)

// InquiryRepository is the minimal interface the router requires from an inquiry store.
type InquiryRepository interface {
	Put(ctx context.Context, inq *domain.Inquiry) error
	Get(ctx context.Context, inquiryID string) (*domain.Inquiry, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error)
	List(ctx context.Context, f domain.InquiryFilter) ([]domain.Inquiry, int, error)
	UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error)
	Delete(ctx context.Context, inquiryID string) (*domain.Inquiry, error)
}

// NoticeRepository is the minimal interface the router requires from a notice store.
type NoticeRepository interface {
	Put(ctx context.Context, n *domain.Notice) error
	Get(ctx context.Context, noticeID string) (*domain.Notice, error)
	Scan(ctx context.Context, publishedOnly bool) ([]domain.Notice, error)
	Update(ctx context.Context, noticeID string, updates map[string]interface{}) (*domain.Notice, error)
	IncrementViews(ctx context.Context, noticeID string) (*domain.Notice, error)
	HardDelete(ctx context.Context, noticeID string) error
}

// ProfileRepository is the minimal interface the router requires from a profile store.
type ProfileRepository interface {
	Put(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateRole(ctx context.Context, userID, role string) (*domain.Profile, error)
}

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, userID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Disable(ctx context.Context, sessionID string) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}
