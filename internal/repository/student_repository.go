package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

var studentRowColumns = []string{
	"st.id", "st.term_id", "st.name", "st.email", "st.phone", "st.year",
	"st.sport_id", "st.waitlisted", "st.registered_at", "st.created_at", "st.updated_at",
	"sp.name AS sport_name",
}

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
	sb squirrel.StatementBuilderType
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns students matching the filter joined with their sport name.
// Ordering is left to the caller.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, error) {
	query := r.sb.Select(studentRowColumns...).
		From("students st").
		LeftJoin("sports sp ON sp.id = st.sport_id")

	if filter.TermID != "" {
		query = query.Where(squirrel.Eq{"st.term_id": filter.TermID})
	}
	if filter.Year != "" {
		query = query.Where(squirrel.Eq{"st.year": filter.Year})
	}
	if filter.SportID != "" {
		query = query.Where(squirrel.Eq{"st.sport_id": filter.SportID})
	}
	if filter.Waitlisted != nil {
		query = query.Where(squirrel.Eq{"st.waitlisted": *filter.Waitlisted})
	}

	stmt, args, err := query.OrderBy("st.created_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list students query: %w", err)
	}

	var students []models.StudentRow
	if err := r.db.SelectContext(ctx, &students, stmt, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a student joined with its sport name.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentRow, error) {
	stmt, args, err := r.sb.Select(studentRowColumns...).
		From("students st").
		LeftJoin("sports sp ON sp.id = st.sport_id").
		Where(squirrel.Eq{"st.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find student query: %w", err)
	}

	var student models.StudentRow
	if err := r.db.GetContext(ctx, &student, stmt, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

// EmailExists reports whether the email is already registered in the term.
func (r *StudentRepository) EmailExists(ctx context.Context, termID, email string) (bool, error) {
	stmt, args, err := r.sb.Select("1").
		From("students").
		Where(squirrel.Eq{"term_id": termID}).
		Where(squirrel.Expr("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build email exists query: %w", err)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a student outside any sport lock. Used for waitlist joins.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	if _, err := r.db.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// MarkWaitlisted flags an unassigned student as waitlisted. It reports false
// when the student is missing or already holds a sport.
func (r *StudentRepository) MarkWaitlisted(ctx context.Context, id string) (bool, error) {
	stmt, args, err := r.sb.Update("students").
		Set("waitlisted", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id, "sport_id": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build waitlist query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("mark waitlisted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark waitlisted rows: %w", err)
	}
	return affected == 1, nil
}

// Delete removes a student and reports whether a row existed.
func (r *StudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	stmt, args, err := r.sb.Delete("students").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete student query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteByTerm removes every student of a term and returns how many were deleted.
func (r *StudentRepository) DeleteByTerm(ctx context.Context, termID string) (int64, error) {
	stmt, args, err := r.sb.Delete("students").Where(squirrel.Eq{"term_id": termID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge students query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge students: %w", err)
	}
	return res.RowsAffected()
}
