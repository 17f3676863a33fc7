package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

func TestTermRepositoryListAndActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	now := time.Now()
	columns := []string{"id", "name", "year", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, year, is_active, created_at, updated_at FROM terms ORDER BY year DESC, created_at DESC")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("term-2", "Term 2", 2026, true, now, now).
			AddRow("term-1", "Term 1", 2026, false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM terms WHERE is_active = TRUE LIMIT 1")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("term-2", "Term 2", 2026, true, now, now))

	terms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, terms, 2)

	active, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "term-2", active.ID)
	assert.True(t, active.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCreateForcesInactive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectExec("INSERT INTO terms").
		WithArgs(sqlmock.AnyArg(), "Term 3", 2026, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	term := &models.Term{Name: "Term 3", Year: 2026, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), term))
	assert.NotEmpty(t, term.ID)
	assert.False(t, term.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryExistsByNameAndYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery("SELECT 1 FROM terms").
		WithArgs("Term 1", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM terms").
		WithArgs("Term 9", 2026).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByNameAndYear(context.Background(), "Term 1", 2026)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByNameAndYear(context.Background(), "Term 9", 2026)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTermRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "term-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_active = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("term-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActive(context.Background(), "term-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositorySetActiveMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE terms SET is_active = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE terms SET is_active = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActive(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
