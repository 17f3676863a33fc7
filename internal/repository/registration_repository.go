package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourlocalmaccas/School-Website/internal/models"
	"github.com/yourlocalmaccas/School-Website/pkg/database"
)

const (
	sportColumns   = `id, term_id, name, description, capacity, created_at, updated_at`
	studentColumns = `id, term_id, name, email, phone, year, sport_id, waitlisted, registered_at, created_at, updated_at`
)

// SportTx is the store surface available while a sport row is locked. Every
// call runs inside the transaction that holds the lock.
type SportTx interface {
	// Sport returns the locked row as read at lock time.
	Sport() models.Sport
	CountRegistered(ctx context.Context) (int, error)
	StudentForUpdate(ctx context.Context, studentID string) (*models.Student, error)
	InsertStudent(ctx context.Context, student *models.Student) error
	// AssignSport sets the locked sport on an unassigned student and reports
	// whether a row changed.
	AssignSport(ctx context.Context, studentID string, at time.Time) (bool, error)
	SetCapacity(ctx context.Context, capacity int) error
	DeleteSport(ctx context.Context) error
}

// RegistrationRepository serialises writes that depend on a sport's capacity
// by locking the sport row for the duration of a transaction.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// WithSportLock runs fn while holding SELECT ... FOR UPDATE on the sport. It
// returns sql.ErrNoRows when the sport does not exist. The transaction commits
// when fn returns nil and rolls back otherwise.
func (r *RegistrationRepository) WithSportLock(ctx context.Context, sportID string, fn func(SportTx) error) error {
	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var sport models.Sport
		if err := tx.GetContext(ctx, &sport, `SELECT `+sportColumns+` FROM sports WHERE id = $1 FOR UPDATE`, sportID); err != nil {
			return err
		}
		return fn(&sportTx{tx: tx, sport: sport})
	})
}

type sportTx struct {
	tx    *sqlx.Tx
	sport models.Sport
}

func (s *sportTx) Sport() models.Sport {
	return s.sport
}

func (s *sportTx) CountRegistered(ctx context.Context) (int, error) {
	var count int
	if err := s.tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE sport_id = $1`, s.sport.ID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (s *sportTx) StudentForUpdate(ctx context.Context, studentID string) (*models.Student, error) {
	var student models.Student
	if err := s.tx.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, studentID); err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *sportTx) InsertStudent(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	if _, err := s.tx.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (s *sportTx) AssignSport(ctx context.Context, studentID string, at time.Time) (bool, error) {
	res, err := s.tx.ExecContext(ctx,
		`UPDATE students SET sport_id = $2, waitlisted = FALSE, registered_at = $3, updated_at = $3 WHERE id = $1 AND sport_id IS NULL`,
		studentID, s.sport.ID, at)
	if err != nil {
		return false, fmt.Errorf("assign sport: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign sport rows: %w", err)
	}
	return affected == 1, nil
}

func (s *sportTx) SetCapacity(ctx context.Context, capacity int) error {
	now := time.Now().UTC()
	if _, err := s.tx.ExecContext(ctx, `UPDATE sports SET capacity = $2, updated_at = $3 WHERE id = $1`, s.sport.ID, capacity, now); err != nil {
		return fmt.Errorf("update capacity: %w", err)
	}
	s.sport.Capacity = capacity
	s.sport.UpdatedAt = now
	return nil
}

func (s *sportTx) DeleteSport(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM sports WHERE id = $1`, s.sport.ID); err != nil {
		return fmt.Errorf("delete sport: %w", err)
	}
	return nil
}

const insertStudentQuery = `INSERT INTO students (id, term_id, name, email, phone, year, sport_id, waitlisted, registered_at, created_at, updated_at)
VALUES (:id, :term_id, :name, :email, :phone, :year, :sport_id, :waitlisted, :registered_at, :created_at, :updated_at)`

func prepareStudent(student *models.Student) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}
