package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourlocalmaccas/School-Website/internal/dto"
	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/database"
	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

type sportRepository interface {
	ListAvailability(ctx context.Context, termID string) ([]models.SportAvailability, error)
	GetAvailability(ctx context.Context, id string) (*models.SportAvailability, error)
	ExistsByName(ctx context.Context, termID, name string) (bool, error)
	Create(ctx context.Context, sport *models.Sport) error
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
}

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, error)
}

// SportService serves sport listings and creation. Capacity changes and
// deletes belong to AdmissionService.
type SportService struct {
	repo      sportRepository
	terms     termReader
	students  studentLister
	cache     *CacheService
	notifier  availabilityNotifier
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSportService constructs the service. cache and notifier may be nil.
func NewSportService(repo sportRepository, terms termReader, students studentLister, cache *CacheService, notifier availabilityNotifier, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SportService{
		repo:      repo,
		terms:     terms,
		students:  students,
		cache:     cache,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// List returns the sports of termID, or of the active term when termID is
// empty, with live availability. The boolean reports a cache hit.
func (s *SportService) List(ctx context.Context, termID string) ([]models.SportAvailability, bool, error) {
	termID, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, false, err
	}

	// Listings are stored under the generation current when the read began.
	// A change committed mid-read bumps the generation, so a stale write
	// lands on a key nobody reads.
	gen, err := s.cache.Generation(ctx, sportsGenerationKey(termID))
	cacheable := err == nil
	key := sportsVersionedKey(termID, gen)
	var cached []models.SportAvailability
	if cacheable {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	sports, err := s.repo.ListAvailability(ctx, termID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sports")
	}
	if sports == nil {
		sports = []models.SportAvailability{}
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, sports, s.cacheTTL)
	}
	return sports, false, nil
}

// Get returns one sport with live availability.
func (s *SportService) Get(ctx context.Context, id string) (*models.SportAvailability, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
	}
	sport, err := s.repo.GetAvailability(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sport not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sport")
	}
	return sport, nil
}

// Create adds a sport to an existing term.
func (s *SportService) Create(ctx context.Context, req dto.CreateSportRequest) (*models.SportAvailability, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sport payload")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	exists, err := s.repo.ExistsByName(ctx, req.TermID, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sport uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sport already exists in term")
	}

	sport := &models.Sport{TermID: req.TermID, Name: req.Name, Description: req.Description, Capacity: req.Capacity}
	if err := s.repo.Create(ctx, sport); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "sport already exists in term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sport")
	}
	if s.notifier != nil {
		s.notifier.SportsChanged(ctx, sport.TermID)
	}
	return availabilityOf(*sport, 0), nil
}

// Registrations lists the students admitted to a sport by last name.
func (s *SportService) Registrations(ctx context.Context, id string) ([]models.StudentRow, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	students, err := s.students.List(ctx, models.StudentFilter{SportID: id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	if students == nil {
		students = []models.StudentRow{}
	}
	sortByLastName(students)
	return students, nil
}

func (s *SportService) resolveTerm(ctx context.Context, termID string) (string, error) {
	if termID != "" {
		if !isUUID(termID) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return termID, nil
	}
	term, err := s.terms.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "no active term")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	return term.ID, nil
}
