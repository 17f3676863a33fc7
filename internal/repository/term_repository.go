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
	"github.com/yourlocalmaccas/School-Website/pkg/database"
)

const termColumns = `id, name, year, is_active, created_at, updated_at`

// TermRepository handles persistence for registration terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns every term, newest first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, `SELECT `+termColumns+` FROM terms ORDER BY year DESC, created_at DESC`); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindByID loads a term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	var term models.Term
	if err := r.db.GetContext(ctx, &term, `SELECT `+termColumns+` FROM terms WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindActive returns the currently active term.
func (r *TermRepository) FindActive(ctx context.Context) (*models.Term, error) {
	var term models.Term
	if err := r.db.GetContext(ctx, &term, `SELECT `+termColumns+` FROM terms WHERE is_active = TRUE LIMIT 1`); err != nil {
		return nil, err
	}
	return &term, nil
}

// ExistsByNameAndYear checks whether a term with the same name and year exists.
func (r *TermRepository) ExistsByNameAndYear(ctx context.Context, name string, year int) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM terms WHERE LOWER(name) = LOWER($1) AND year = $2 LIMIT 1`, name, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check term uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new, inactive term record.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now
	term.IsActive = false

	const query = `INSERT INTO terms (id, name, year, is_active, created_at, updated_at) VALUES (:id, :name, :year, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// SetActive marks the provided term as active and deactivates the rest. It
// returns sql.ErrNoRows when the term does not exist.
func (r *TermRepository) SetActive(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE terms SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`, now, id); err != nil {
			return fmt.Errorf("deactivate other terms: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE terms SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now)
		if err != nil {
			return fmt.Errorf("activate term: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("activate term rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
