package notice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/pkg/id"
	"github.com/corpsite-backoffice/internal/pkg/validate"
)

type Service interface {
	List(ctx context.Context, opts domain.NoticeListOptions) ([]domain.Notice, error)
	// Get returns one notice. Without includeDrafts an unpublished notice is
	// reported as not found and a successful read counts as a view.
	Get(ctx context.Context, noticeID string, includeDrafts bool) (*domain.Notice, error)
	Create(ctx context.Context, req domain.CreateNoticeRequest) (*domain.Notice, error)
	Update(ctx context.Context, noticeID string, req domain.UpdateNoticeRequest) (*domain.Notice, error)
	SetPublished(ctx context.Context, noticeID string, published bool) (*domain.Notice, error)
	Delete(ctx context.Context, noticeID string) error
}

type noticeStore interface {
	Put(ctx context.Context, n *domain.Notice) error
	Get(ctx context.Context, noticeID string) (*domain.Notice, error)
	Scan(ctx context.Context, publishedOnly bool) ([]domain.Notice, error)
	Update(ctx context.Context, noticeID string, updates map[string]interface{}) (*domain.Notice, error)
	IncrementViews(ctx context.Context, noticeID string) (*domain.Notice, error)
	HardDelete(ctx context.Context, noticeID string) error
}

type service struct {
	repo noticeStore
}

func NewService(repo noticeStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, opts domain.NoticeListOptions) ([]domain.Notice, error) {
	notices, err := s.repo.Scan(ctx, !opts.IncludeDrafts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notice, 0, len(notices))
	for _, n := range notices {
		if opts.Category != "" && n.Category != opts.Category {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *service) Get(ctx context.Context, noticeID string, includeDrafts bool) (*domain.Notice, error) {
	n, err := s.repo.Get(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if includeDrafts {
		return n, nil
	}
	if !n.Published {
		return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	return s.repo.IncrementViews(ctx, noticeID)
}

func (s *service) Create(ctx context.Context, req domain.CreateNoticeRequest) (*domain.Notice, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	now := time.Now().UTC()
	n := &domain.Notice{
		NoticeID:  id.New(),
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		Published: req.Published,
		Pinned:    req.Pinned,
		Author:    req.Author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) Update(ctx context.Context, noticeID string, req domain.UpdateNoticeRequest) (*domain.Notice, error) {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if req.Pinned != nil {
		updates["pinned"] = *req.Pinned
	}
	if req.Author != nil {
		updates["author"] = *req.Author
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, noticeID)
	}
	return s.repo.Update(ctx, noticeID, updates)
}

func (s *service) SetPublished(ctx context.Context, noticeID string, published bool) (*domain.Notice, error) {
	return s.repo.Update(ctx, noticeID, map[string]interface{}{"published": published})
}

func (s *service) Delete(ctx context.Context, noticeID string) error {
	return s.repo.HardDelete(ctx, noticeID)
}
