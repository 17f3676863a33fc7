package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/internal/repository"
	"github.com/yourlocalmaccas/School-Website/pkg/database"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/keylock"
)

// sportStore runs fn while the sport row is exclusively held.
type sportStore interface {
	WithSportLock(ctx context.Context, sportID string, fn func(repository.SportTx) error) error
}

type admissionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.StudentRow, error)
	EmailExists(ctx context.Context, termID, email string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	MarkWaitlisted(ctx context.Context, id string) (bool, error)
}

type activeTermFinder interface {
	FindActive(ctx context.Context) (*models.Term, error)
}

type availabilityNotifier interface {
	SportsChanged(ctx context.Context, termID string)
}

// AdmissionConfig tunes lock behaviour.
type AdmissionConfig struct {
	// LockTimeout bounds how long a caller waits for a busy sport.
	LockTimeout time.Duration
	// WorkTimeout bounds the locked section once it has started.
	WorkTimeout time.Duration
}

// AdmissionService owns every write that depends on a sport's capacity.
// Register, UpdateCapacity, MarkFull, DeleteSport and Enroll for one sport
// are serialised by a per-sport lock held in process and, inside it, by a row
// lock on the sport in PostgreSQL. Different sports proceed in parallel.
type AdmissionService struct {
	sports    sportStore
	students  admissionStudentStore
	terms     activeTermFinder
	locks     *keylock.Map
	validator *validator.Validate
	metrics   *MetricsService
	notifier  availabilityNotifier
	logger    *zap.Logger
	cfg       AdmissionConfig
	now       func() time.Time
}

// NewAdmissionService wires the admission controller. metrics and notifier may be nil.
func NewAdmissionService(sports sportStore, students admissionStudentStore, terms activeTermFinder, validate *validator.Validate, metrics *MetricsService, notifier availabilityNotifier, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.WorkTimeout <= 0 {
		cfg.WorkTimeout = 10 * time.Second
	}
	return &AdmissionService{
		sports:    sports,
		students:  students,
		terms:     terms,
		locks:     keylock.New(),
		validator: validate,
		metrics:   metrics,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register admits an existing student to a sport. The outcome is always set;
// err is nil only when the outcome is ADMITTED.
func (s *AdmissionService) Register(ctx context.Context, studentID, sportID string) (models.AdmissionOutcome, error) {
	if !isUUID(studentID) || !isUUID(sportID) {
		return s.settle(ctx, models.OutcomeNotFound, "")
	}

	outcome := models.OutcomeNotFound
	var termID string
	err := s.withSport(ctx, sportID, func(ctx context.Context, tx repository.SportTx) error {
		sport := tx.Sport()
		termID = sport.TermID

		student, err := tx.StudentForUpdate(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if student.TermID != sport.TermID {
			return nil
		}
		if student.SportID != nil {
			outcome = models.OutcomeAlreadyAssigned
			return nil
		}

		count, err := tx.CountRegistered(ctx)
		if err != nil {
			return err
		}
		if count >= sport.Capacity {
			outcome = models.OutcomeFull
			return nil
		}

		assigned, err := tx.AssignSport(ctx, studentID, s.now().UTC())
		if err != nil {
			return err
		}
		if !assigned {
			outcome = models.OutcomeAlreadyAssigned
			return nil
		}
		outcome = models.OutcomeAdmitted
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.settle(ctx, models.OutcomeNotFound, "")
		}
		return "", s.lockError(err, "failed to register student")
	}
	return s.settle(ctx, outcome, termID)
}

// UpdateCapacity replaces a sport's capacity. Students already registered are
// never removed; a capacity below the live count only blocks new admissions.
func (s *AdmissionService) UpdateCapacity(ctx context.Context, sportID string, capacity int) (*models.SportAvailability, error) {
	if capacity < 1 {
		return nil, appErrors.ErrInvalidCapacity
	}
	return s.setCapacity(ctx, sportID, func(int) int { return capacity })
}

// MarkFull closes a sport by setting its capacity to the live count, read
// inside the same lock as the write.
func (s *AdmissionService) MarkFull(ctx context.Context, sportID string) (*models.SportAvailability, error) {
	return s.setCapacity(ctx, sportID, func(count int) int { return count })
}

func (s *AdmissionService) setCapacity(ctx context.Context, sportID string, next func(count int) int) (*models.SportAvailability, error) {
	if !isUUID(sportID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
	}

	var result *models.SportAvailability
	err := s.withSport(ctx, sportID, func(ctx context.Context, tx repository.SportTx) error {
		count, err := tx.CountRegistered(ctx)
		if err != nil {
			return err
		}
		if err := tx.SetCapacity(ctx, next(count)); err != nil {
			return err
		}
		result = availabilityOf(tx.Sport(), count)
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
		}
		return nil, s.lockError(err, "failed to update capacity")
	}

	s.logger.Info("sport capacity updated",
		zap.String("sport_id", sportID),
		zap.Int("capacity", result.Capacity),
		zap.Int("current_count", result.CurrentCount))
	s.notify(ctx, result.TermID)
	return result, nil
}

// DeleteSport removes a sport. Its students lose their sport assignment.
func (s *AdmissionService) DeleteSport(ctx context.Context, sportID string) error {
	if !isUUID(sportID) {
		return appErrors.Clone(appErrors.ErrNotFound, "sport not found")
	}

	var termID string
	err := s.withSport(ctx, sportID, func(ctx context.Context, tx repository.SportTx) error {
		termID = tx.Sport().TermID
		return tx.DeleteSport(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "sport not found")
		}
		return s.lockError(err, "failed to delete sport")
	}

	s.logger.Info("sport deleted", zap.String("sport_id", sportID), zap.String("term_id", termID))
	s.notify(ctx, termID)
	return nil
}

// AssignWaitlist flags a student without a sport as waitlisted. The waitlist
// is unbounded so no sport lock is taken.
func (s *AdmissionService) AssignWaitlist(ctx context.Context, studentID string) (*models.Student, error) {
	if !isUUID(studentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	row, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if row.SportID != nil {
		return nil, appErrors.ErrAlreadyAssigned
	}

	// The update only matches students still without a sport, so an admission
	// committed after the read above still wins.
	marked, err := s.students.MarkWaitlisted(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to waitlist student")
	}
	if !marked {
		return nil, appErrors.ErrAlreadyAssigned
	}
	row.Waitlisted = true
	return &row.Student, nil
}

// Enroll creates a student in the active term and admits them to a sport in
// one locked transaction. Nothing is stored unless the outcome is ADMITTED.
func (s *AdmissionService) Enroll(ctx context.Context, req dto.EnrollRequest) (*dto.AdmissionResult, error) {
	normaliseDetails(&req.StudentDetails)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	term, err := s.activeTerm(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, term.ID, req.Email); err != nil {
		return nil, err
	}

	outcome := models.OutcomeNotFound
	var student *models.Student
	var sport *models.SportAvailability
	err = s.withSport(ctx, req.SportID, func(ctx context.Context, tx repository.SportTx) error {
		locked := tx.Sport()
		if locked.TermID != term.ID {
			return nil
		}
		count, err := tx.CountRegistered(ctx)
		if err != nil {
			return err
		}
		if count >= locked.Capacity {
			outcome = models.OutcomeFull
			return nil
		}

		now := s.now().UTC()
		candidate := newStudent(term.ID, req.StudentDetails)
		candidate.SportID = &locked.ID
		candidate.RegisteredAt = &now
		if err := tx.InsertStudent(ctx, candidate); err != nil {
			return err
		}
		student = candidate
		sport = availabilityOf(locked, count+1)
		outcome = models.OutcomeAdmitted
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			outcome = models.OutcomeNotFound
		case database.IsUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		default:
			return nil, s.lockError(err, "failed to register student")
		}
	}

	if _, err := s.settle(ctx, outcome, term.ID); err != nil {
		return nil, err
	}
	return &dto.AdmissionResult{Outcome: outcome, Student: student, Sport: sport}, nil
}

// JoinWaitlist creates a waitlisted student in the active term.
func (s *AdmissionService) JoinWaitlist(ctx context.Context, req dto.WaitlistRequest) (*models.Student, error) {
	normaliseDetails(&req.StudentDetails)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waitlist payload")
	}
	term, err := s.activeTerm(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, term.ID, req.Email); err != nil {
		return nil, err
	}

	student := newStudent(term.ID, req.StudentDetails)
	student.Waitlisted = true
	if err := s.students.Create(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join waitlist")
	}
	return student, nil
}

// withSport acquires the in-process lock for sportID, honouring ctx while
// waiting, then runs fn inside the sport's row lock. Once the lock is held
// the work is detached from ctx so a client disconnect cannot abort it midway.
func (s *AdmissionService) withSport(ctx context.Context, sportID string, fn func(context.Context, repository.SportTx) error) error {
	waitCtx, cancelWait := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancelWait()

	start := time.Now()
	unlock, err := s.locks.Lock(waitCtx, sportID)
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		return fmt.Errorf("wait for sport %s: %w", sportID, err)
	}
	defer unlock()

	workCtx, cancelWork := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WorkTimeout)
	defer cancelWork()
	txStart := time.Now()
	err = s.sports.WithSportLock(workCtx, sportID, func(tx repository.SportTx) error {
		return fn(workCtx, tx)
	})
	s.metrics.ObserveDBQuery("sport_lock_tx", time.Since(txStart))
	return err
}

// settle records the outcome and converts it to the caller-facing error.
func (s *AdmissionService) settle(ctx context.Context, outcome models.AdmissionOutcome, termID string) (models.AdmissionOutcome, error) {
	s.metrics.RecordAdmission(outcome)
	switch outcome {
	case models.OutcomeAdmitted:
		s.notify(ctx, termID)
		return outcome, nil
	case models.OutcomeFull:
		return outcome, appErrors.ErrSportFull
	case models.OutcomeAlreadyAssigned:
		return outcome, appErrors.ErrAlreadyAssigned
	default:
		return models.OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "student or sport not found")
	}
}

func (s *AdmissionService) notify(ctx context.Context, termID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.SportsChanged(ctx, termID)
}

func (s *AdmissionService) lockError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "sport is busy, try again")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *AdmissionService) activeTerm(ctx context.Context) (*models.Term, error) {
	term, err := s.terms.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	return term, nil
}

func (s *AdmissionService) ensureEmailFree(ctx context.Context, termID, email string) error {
	exists, err := s.students.EmailExists(ctx, termID, email)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return nil
}

func normaliseDetails(d *dto.StudentDetails) {
	d.Name = strings.Join(strings.Fields(d.Name), " ")
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Year = strings.TrimSpace(d.Year)
}

func newStudent(termID string, d dto.StudentDetails) *models.Student {
	return &models.Student{
		TermID: termID,
		Name:   d.Name,
		Email:  d.Email,
		Phone:  d.Phone,
		Year:   d.Year,
	}
}

func availabilityOf(sport models.Sport, count int) *models.SportAvailability {
	availability := &models.SportAvailability{Sport: sport, CurrentCount: count}
	availability.Fill()
	return availability
}
