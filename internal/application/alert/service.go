// Package alert raises, lists and acknowledges quality alerts.
package alert

import (
	"context"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/alert"
	"github.com/qcdash/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// Notifier delivers a new alert to its recipients
type Notifier interface {
	NotifyAlert(ctx context.Context, a AlertResponse, recipients []Recipient) error
}

// RecipientFinder lists the users that receive alerts
type RecipientFinder interface {
	FindByRoles(ctx context.Context, roles ...identity.Role) ([]*identity.User, error)
}

// AlertService handles alert operations
type AlertService struct {
	repo       alert.Repository
	recipients RecipientFinder
	notifier   Notifier
	logger     *zap.Logger
}

// NewAlertService creates a new AlertService. A nil notifier disables delivery.
func NewAlertService(repo alert.Repository, recipients RecipientFinder, notifier Notifier, logger *zap.Logger) *AlertService {
	return &AlertService{
		repo:       repo,
		recipients: recipients,
		notifier:   notifier,
		logger:     logger,
	}
}

// List returns alerts newest first
func (s *AlertService) List(ctx context.Context, q ListAlertsQuery) ([]AlertResponse, int64, error) {
	filter := alert.NewFilter()
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	filter.Read = q.Read
	if q.Type != "" {
		t := alert.Type(q.Type)
		filter.Type = &t
	}
	if q.Severity != "" {
		sev := alert.Severity(q.Severity)
		filter.Severity = &sev
	}

	alerts, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AlertResponse, len(alerts))
	for i := range alerts {
		out[i] = ToAlertResponse(&alerts[i])
	}
	return out, total, nil
}

// GetByID returns one alert
func (s *AlertService) GetByID(ctx context.Context, id uuid.UUID) (*AlertResponse, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAlertResponse(a)
	return &resp, nil
}

// MarkRead flags an alert as read
func (s *AlertService) MarkRead(ctx context.Context, id uuid.UUID) (*AlertResponse, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.MarkRead() {
		if err := s.repo.Save(ctx, a); err != nil {
			return nil, err
		}
	}
	resp := ToAlertResponse(a)
	return &resp, nil
}

// MarkAllRead flags every unread alert and returns how many changed
func (s *AlertService) MarkAllRead(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Alerts marked read", zap.Int64("count", n))
	return n, nil
}

// Delete removes an alert
func (s *AlertService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Raise stores a new alert and notifies managers and admins.
// Delivery failures are logged; the alert is kept.
func (s *AlertService) Raise(ctx context.Context, a *alert.Alert) (*AlertResponse, error) {
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}
	resp := ToAlertResponse(a)
	s.logger.Info("Alert raised",
		zap.String("alert_id", a.ID.String()),
		zap.String("type", resp.Type),
		zap.String("severity", resp.Severity),
		zap.String("message", a.Message),
	)

	if s.notifier == nil {
		return &resp, nil
	}
	recipients, err := s.findRecipients(ctx)
	if err != nil {
		s.logger.Error("Failed to load alert recipients", zap.Error(err))
	}
	if err := s.notifier.NotifyAlert(ctx, resp, recipients); err != nil {
		s.logger.Warn("Alert delivery failed", zap.String("alert_id", a.ID.String()), zap.Error(err))
	}
	return &resp, nil
}

func (s *AlertService) findRecipients(ctx context.Context) ([]Recipient, error) {
	if s.recipients == nil {
		return nil, nil
	}
	users, err := s.recipients.FindByRoles(ctx, identity.RoleAdmin, identity.RoleManager)
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, Recipient{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)})
	}
	return out, nil
}
