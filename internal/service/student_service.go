package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/confirmation"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, error)
	FindByID(ctx context.Context, id string) (*models.StudentRow, error)
	EmailExists(ctx context.Context, termID, email string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByTerm(ctx context.Context, termID string) (int64, error)
}

type confirmer interface {
	Issue(action, scope string) (*confirmation.Challenge, error)
	Confirm(ctx context.Context, token, code, action, scope string) error
}

// StudentService serves admin student views and removals.
type StudentService struct {
	repo      studentRepository
	terms     termReader
	confirm   confirmer
	notifier  availabilityNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, terms termReader, confirm confirmer, notifier availabilityNotifier, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, terms: terms, confirm: confirm, notifier: notifier, validator: validate, logger: logger}
}

// List returns students matching filter ordered by last name. An empty term
// filter means the active term.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, error) {
	if filter.TermID == "" {
		term, err := s.terms.FindActive(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []models.StudentRow{}, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
		}
		filter.TermID = term.ID
	}
	if !isUUID(filter.TermID) || (filter.SportID != "" && !isUUID(filter.SportID)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term_id and sport_id must be UUIDs")
	}

	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentRow{}
	}
	sortByLastName(students)
	return students, nil
}

// Waitlist returns the waitlisted students of a term.
func (s *StudentService) Waitlist(ctx context.Context, termID string) ([]models.StudentRow, error) {
	waitlisted := true
	return s.List(ctx, models.StudentFilter{TermID: termID, Waitlisted: &waitlisted})
}

// Get returns one student with their sport name.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentRow, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Delete removes a student, freeing their seat.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.SportID != nil && s.notifier != nil {
		s.notifier.SportsChanged(ctx, student.TermID)
	}
	return nil
}

// VerifyEmail reports whether email can still register in the active term.
func (s *StudentService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (*dto.VerifyEmailResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	if err := s.validator.Var(email, "email"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email is invalid")
	}
	term, err := s.terms.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	exists, err := s.repo.EmailExists(ctx, term.ID, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &dto.VerifyEmailResponse{Email: email, Available: true}, nil
}

// RequestPurge issues the confirmation challenge for deleting every student of a term.
func (s *StudentService) RequestPurge(ctx context.Context, termID string) (*dto.PurgeConfirmationResponse, error) {
	if err := s.ensureTerm(ctx, termID); err != nil {
		return nil, err
	}
	challenge, err := s.confirm.Issue(ActionPurgeStudents, termID)
	if err != nil {
		return nil, err
	}
	return &dto.PurgeConfirmationResponse{
		TermID:    termID,
		Code:      challenge.Code,
		Token:     challenge.Token,
		ExpiresAt: challenge.ExpiresAt,
	}, nil
}

// PurgeTerm deletes every student of a term once the challenge is confirmed.
func (s *StudentService) PurgeTerm(ctx context.Context, req dto.PurgeStudentsRequest) (*dto.PurgeStudentsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purge payload")
	}
	if err := s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	if err := s.confirm.Confirm(ctx, req.Token, req.Code, ActionPurgeStudents, req.TermID); err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteByTerm(ctx, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge students")
	}
	s.logger.Warn("term students purged", zap.String("term_id", req.TermID), zap.Int64("deleted", deleted))
	if s.notifier != nil {
		s.notifier.SportsChanged(ctx, req.TermID)
	}
	return &dto.PurgeStudentsResponse{TermID: req.TermID, Deleted: deleted}, nil
}

func (s *StudentService) ensureTerm(ctx context.Context, termID string) error {
	if !isUUID(termID) {
		return appErrors.Clone(appErrors.ErrNotFound, "term not found")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}
