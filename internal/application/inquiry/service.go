package inquiry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/metrics"
	"github.com/corpsite-backoffice/internal/pkg/id"
	"github.com/corpsite-backoffice/internal/pkg/validate"
	"github.com/corpsite-backoffice/internal/realtime"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	alertTimeout = 15 * time.Second
)

type Service interface {
	Submit(ctx context.Context, req domain.ContactRequest) (*domain.Inquiry, error)
	List(ctx context.Context, f domain.InquiryFilter) ([]domain.Inquiry, int, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error)
	Get(ctx context.Context, inquiryID string) (*domain.Inquiry, error)
	UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error)
	Delete(ctx context.Context, inquiryID string) error
}

type inquiryStore interface {
	Put(ctx context.Context, inq *domain.Inquiry) error
	Get(ctx context.Context, inquiryID string) (*domain.Inquiry, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error)
	List(ctx context.Context, f domain.InquiryFilter) ([]domain.Inquiry, int, error)
	UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error)
	Delete(ctx context.Context, inquiryID string) (*domain.Inquiry, error)
}

// Alerter tells staff about a new inquiry. Failures never fail the submission.
type Alerter interface {
	Channel() string
	NotifyInquiry(ctx context.Context, inq *domain.Inquiry) error
}

type service struct {
	repo      inquiryStore
	publisher realtime.Publisher
	alerters  []Alerter
	log       *slog.Logger
}

type ServiceDeps struct {
	Repo inquiryStore
	// Publisher emits change events; nil when the store's own stream feeds the relay.
	Publisher realtime.Publisher
	Alerters  []Alerter
	Logger    *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	pub := deps.Publisher
	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: deps.Repo, publisher: pub, alerters: deps.Alerters, log: log}
}

func (s *service) Submit(ctx context.Context, req domain.ContactRequest) (*domain.Inquiry, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := validate.Struct(req); err != nil {
		metrics.InquirySubmissions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
	}
	now := time.Now().UTC()
	inq := &domain.Inquiry{
		InquiryID: id.New(),
		Name:      req.Name,
		Email:     req.Email,
		Company:   emptyToNil(req.Company),
		Phone:     emptyToNil(req.Phone),
		Subject:   req.Subject,
		Message:   req.Message,
		Status:    domain.InquiryPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, inq); err != nil {
		metrics.InquirySubmissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store inquiry: %w", err)
	}
	metrics.InquirySubmissions.WithLabelValues("created").Inc()
	s.publish(ctx, domain.ChangeInsert, inq)
	if len(s.alerters) > 0 {
		go s.alert(context.WithoutCancel(ctx), *inq)
	}
	return inq, nil
}

func (s *service) List(ctx context.Context, f domain.InquiryFilter) ([]domain.Inquiry, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("유효하지 않은 상태 값입니다: %w", domain.ErrBadRequest)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) Get(ctx context.Context, inquiryID string) (*domain.Inquiry, error) {
	return s.repo.Get(ctx, inquiryID)
}

// UpdateStatus sets any status in the enum; there is no transition order.
func (s *service) UpdateStatus(ctx context.Context, inquiryID string, status domain.InquiryStatus) (*domain.Inquiry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("유효하지 않은 상태 값입니다: %w", domain.ErrBadRequest)
	}
	inq, err := s.repo.UpdateStatus(ctx, inquiryID, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.ChangeUpdate, inq)
	return inq, nil
}

func (s *service) Delete(ctx context.Context, inquiryID string) error {
	old, err := s.repo.Delete(ctx, inquiryID)
	if err != nil {
		return err
	}
	s.publish(ctx, domain.ChangeDelete, old)
	return nil
}

// publish is best effort: the mutation has already been stored.
func (s *service) publish(ctx context.Context, t domain.ChangeType, inq *domain.Inquiry) {
	ev, err := domain.NewInquiryChange(t, inq)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("publish inquiry change", "inquiry_id", inq.InquiryID, "event_type", t, "err", err)
	}
}

func (s *service) alert(ctx context.Context, inq domain.Inquiry) {
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	for _, a := range s.alerters {
		if err := a.NotifyInquiry(ctx, &inq); err != nil {
			metrics.AlertFailures.WithLabelValues(a.Channel()).Inc()
			s.log.Warn("inquiry alert failed", "channel", a.Channel(), "inquiry_id", inq.InquiryID, "err", err)
		}
	}
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
