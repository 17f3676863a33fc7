package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

type configurationStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

var (
	registrationOpenDescription   = "Registration manually opened by an administrator"
	registrationOpenAtDescription = "Scheduled time at which registration opens automatically"
)

// SystemStatusService owns the public registration window.
type SystemStatusService struct {
	repo   configurationStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSystemStatusService constructs the service.
func NewSystemStatusService(repo configurationStore, logger *zap.Logger) *SystemStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemStatusService{repo: repo, logger: logger, now: time.Now}
}

// Status resolves whether registration is open right now.
func (s *SystemStatusService) Status(ctx context.Context) (*models.RegistrationWindow, error) {
	items, err := s.repo.ListByKeys(ctx, []string{models.ConfigRegistrationOpen, models.ConfigRegistrationOpenAt})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration status")
	}

	now := s.now().UTC()
	window := &models.RegistrationWindow{Resolved: now}
	for _, item := range items {
		switch item.Key {
		case models.ConfigRegistrationOpen:
			open, err := strconv.ParseBool(item.Value)
			if err != nil {
				s.logger.Warn("ignoring malformed registration flag", zap.String("value", item.Value))
				continue
			}
			window.Manual = open
		case models.ConfigRegistrationOpenAt:
			if strings.TrimSpace(item.Value) == "" {
				continue
			}
			at, err := time.Parse(time.RFC3339, item.Value)
			if err != nil {
				s.logger.Warn("ignoring malformed registration schedule", zap.String("value", item.Value))
				continue
			}
			at = at.UTC()
			window.OpenAt = &at
		}
	}
	window.IsOpen = window.Manual || (window.OpenAt != nil && !now.Before(*window.OpenAt))
	return window, nil
}

// IsOpen reports the effective window state.
func (s *SystemStatusService) IsOpen(ctx context.Context) (bool, error) {
	window, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return window.IsOpen, nil
}

// Update changes the manual flag and the schedule. Nil fields are left as
// they are and an empty OpenAt clears the schedule.
func (s *SystemStatusService) Update(ctx context.Context, req dto.UpdateSystemStatusRequest) (*models.RegistrationWindow, error) {
	if req.IsOpen == nil && req.OpenAt == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "is_open or open_at is required")
	}

	var updates []models.Configuration
	if req.IsOpen != nil {
		updates = append(updates, models.Configuration{
			Key:         models.ConfigRegistrationOpen,
			Value:       strconv.FormatBool(*req.IsOpen),
			Type:        models.ConfigurationTypeBoolean,
			Description: &registrationOpenDescription,
		})
	}
	if req.OpenAt != nil {
		value := strings.TrimSpace(*req.OpenAt)
		if value != "" {
			at, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "open_at must be an RFC 3339 timestamp")
			}
			value = at.UTC().Format(time.RFC3339)
		}
		updates = append(updates, models.Configuration{
			Key:         models.ConfigRegistrationOpenAt,
			Value:       value,
			Type:        models.ConfigurationTypeTimestamp,
			Description: &registrationOpenAtDescription,
		})
	}

	if err := s.repo.BulkUpsert(ctx, updates); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}
	s.logger.Info("registration window updated", zap.Int("keys", len(updates)))
	return s.Status(ctx)
}
