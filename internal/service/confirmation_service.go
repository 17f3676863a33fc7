package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/pkg/confirmation"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

// ActionPurgeStudents is the confirmation action for deleting a term's students.
const ActionPurgeStudents = "purge_students"

type tokenLedger interface {
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// ConfirmationService guards destructive operations behind a short code the
// operator must type back, carried in a signed single-use token.
type ConfirmationService struct {
	issuer *confirmation.Issuer
	ledger tokenLedger
	logger *zap.Logger
}

// NewConfirmationService constructs the service. A nil ledger falls back to
// an in-process ledger.
func NewConfirmationService(issuer *confirmation.Issuer, ledger tokenLedger, logger *zap.Logger) *ConfirmationService {
	if ledger == nil {
		ledger = confirmation.NewMemoryLedger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationService{issuer: issuer, ledger: ledger, logger: logger}
}

// Issue creates a challenge for action on scope.
func (s *ConfirmationService) Issue(action, scope string) (*confirmation.Challenge, error) {
	challenge, err := s.issuer.Issue(action, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue confirmation")
	}
	return challenge, nil
}

// Confirm verifies token and code and consumes the token. A second Confirm
// with the same token fails with CONFIRMATION_USED.
func (s *ConfirmationService) Confirm(ctx context.Context, token, code, action, scope string) error {
	claims, err := s.issuer.Verify(token, code, action, scope)
	if err != nil {
		if errors.Is(err, confirmation.ErrInvalid) {
			return appErrors.ErrConfirmationInvalid
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify confirmation")
	}

	ttl := s.issuer.TTL()
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	fresh, err := s.ledger.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record confirmation")
	}
	if !fresh {
		s.logger.Warn("confirmation token replayed", zap.String("action", action), zap.String("scope", scope))
		return appErrors.ErrConfirmationUsed
	}
	return nil
}
