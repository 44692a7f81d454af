package service

import (
	"context"
	"time"

	"github.com/qaranexchange/exchange-api/internal/domain"
	"github.com/qaranexchange/exchange-api/internal/platform/mailer"
	"github.com/qaranexchange/exchange-api/internal/repo/postgres"
	"github.com/qaranexchange/exchange-api/pkg/events"
	"github.com/qaranexchange/exchange-api/pkg/logger"
)

type SubmissionService struct {
	submissions postgres.SubmissionRepo
	mailer      mailer.Service
	alertEmail  string
	bus         events.Publisher
}

func NewSubmissionService(repo postgres.SubmissionRepo, m mailer.Service, alertEmail string, bus events.Publisher) *SubmissionService {
	return &SubmissionService{submissions: repo, mailer: m, alertEmail: alertEmail, bus: bus}
}

// Create records a customer's account details and alerts the admin inbox.
// The alert is best-effort; the submission stands either way.
func (s *SubmissionService) Create(ctx context.Context, req domain.CreateSubmissionRequest, accountID *int64) (*domain.Submission, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created, err := s.submissions.Create(ctx, &domain.Submission{
		AccountID:     accountID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		USDTWallet:    req.USDTWallet,
		EVCPlusNumber: req.EVCPlusNumber,
		XBetID:        req.XBetID,
		MelbetID:      req.MelbetID,
		MoneyGoWallet: req.MoneyGoWallet,
		EdahabNumber:  req.EdahabNumber,
		PremierWallet: req.PremierWallet,
		Notes:         req.Notes,
		Status:        domain.SubmissionPending,
	})
	if err != nil {
		return nil, err
	}

	if s.alertEmail != "" {
		if err := s.mailer.SendSubmissionAlert(s.alertEmail, created); err != nil {
			logger.ErrorContext(ctx, "failed to send submission alert",
				"submission_id", created.ID, "error", err)
		}
	}

	if err := s.bus.Publish(ctx, events.SubmissionCreated, events.SubmissionCreatedEvent{
		SubmissionID:  created.ID,
		CustomerEmail: created.CustomerEmail,
		CreatedAt:     created.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "failed to publish submission event", "error", err)
	}

	return created, nil
}

func (s *SubmissionService) Get(ctx context.Context, id int64) (*domain.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (s *SubmissionService) List(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	return s.submissions.List(ctx, limit, offset)
}

// UpdateStatus moves a submission through the processing pipeline.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Submission, error) {
	if !domain.IsValidSubmissionStatus(status) {
		return nil, domain.Invalid("invalid status")
	}

	existed, err := s.submissions.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, domain.ErrNotFound
	}

	if err := s.bus.Publish(ctx, events.SubmissionStatusChanged, events.SubmissionStatusChangedEvent{
		SubmissionID: id,
		Status:       status,
		ChangedAt:    time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "failed to publish status event", "error", err)
	}

	return s.Get(ctx, id)
}
