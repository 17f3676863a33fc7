package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

const availabilitySelect = `SELECT s.id, s.term_id, s.name, s.description, s.capacity, s.created_at, s.updated_at, COUNT(st.id) AS current_count
FROM sports s
LEFT JOIN students st ON st.sport_id = s.id`

// SportRepository reads and creates sports. Capacity changes and deletes go
// through RegistrationRepository so they share the sport row lock.
type SportRepository struct {
	db *sqlx.DB
}

// NewSportRepository constructs the repository.
func NewSportRepository(db *sqlx.DB) *SportRepository {
	return &SportRepository{db: db}
}

// ListAvailability returns every sport of a term with its live count, ordered by name.
func (r *SportRepository) ListAvailability(ctx context.Context, termID string) ([]models.SportAvailability, error) {
	query := availabilitySelect + `
WHERE s.term_id = $1
GROUP BY s.id
ORDER BY s.name ASC`
	var sports []models.SportAvailability
	if err := r.db.SelectContext(ctx, &sports, query, termID); err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}
	for i := range sports {
		sports[i].Fill()
	}
	return sports, nil
}

// GetAvailability loads one sport with its live count.
func (r *SportRepository) GetAvailability(ctx context.Context, id string) (*models.SportAvailability, error) {
	query := availabilitySelect + `
WHERE s.id = $1
GROUP BY s.id`
	var sport models.SportAvailability
	if err := r.db.GetContext(ctx, &sport, query, id); err != nil {
		return nil, err
	}
	sport.Fill()
	return &sport, nil
}

// ExistsByName reports whether the term already has a sport with this name.
func (r *SportRepository) ExistsByName(ctx context.Context, termID, name string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM sports WHERE term_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`, termID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check sport uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a sport.
func (r *SportRepository) Create(ctx context.Context, sport *models.Sport) error {
	if sport.ID == "" {
		sport.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sport.CreatedAt.IsZero() {
		sport.CreatedAt = now
	}
	sport.UpdatedAt = now

	const query = `INSERT INTO sports (id, term_id, name, description, capacity, created_at, updated_at)
VALUES (:id, :term_id, :name, :description, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sport); err != nil {
		return fmt.Errorf("create sport: %w", err)
	}
	return nil
}
