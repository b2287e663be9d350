package profile

import (
	"context"
	"fmt"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/pkg/validate"
)

// Service reads and manages profiles. Callers of SetRole must already be
// authorised as super_admin.
type Service interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	SetRole(ctx context.Context, userID, role string) (*domain.Profile, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateRole(ctx context.Context, userID, role string) (*domain.Profile, error)
}

type service struct {
	repo profileStore
}

func NewService(repo profileStore) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) SetRole(ctx context.Context, userID, role string) (*domain.Profile, error) {
	if err := validate.Struct(domain.UpdateRoleRequest{Role: role}); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	return s.repo.UpdateRole(ctx, userID, role)
}
