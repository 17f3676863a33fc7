package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func sportRows(id string, capacity int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "term_id", "name", "description", "capacity", "created_at", "updated_at"}).
		AddRow(id, "term-1", "Netball", nil, capacity, now, now)
}

func expectSportLock(mock sqlmock.Sqlmock, id string, capacity int) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, term_id, name, description, capacity, created_at, updated_at FROM sports WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sportRows(id, capacity))
}

func TestRegistrationRepositoryAssignUnderLock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	expectSportLock(mock, "sport-1", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE sport_id = $1")).
		WithArgs("sport-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET sport_id = $2, waitlisted = FALSE, registered_at = $3, updated_at = $3 WHERE id = $1 AND sport_id IS NULL")).
		WithArgs("student-1", "sport-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var assigned bool
	err := repo.WithSportLock(context.Background(), "sport-1", func(tx SportTx) error {
		assert.Equal(t, 2, tx.Sport().Capacity)
		count, err := tx.CountRegistered(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assigned, err = tx.AssignSport(context.Background(), "student-1", time.Now())
		return err
	})
	require.NoError(t, err)
	assert.True(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAssignSkipsAssignedStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	expectSportLock(mock, "sport-1", 2)
	mock.ExpectExec("UPDATE students SET sport_id").
		WithArgs("student-1", "sport-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var assigned bool
	err := repo.WithSportLock(context.Background(), "sport-1", func(tx SportTx) error {
		var err error
		assigned, err = tx.AssignSport(context.Background(), "student-1", time.Now())
		return err
	})
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryMissingSport(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM sports WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := repo.WithSportLock(context.Background(), "missing", func(SportTx) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryRollsBackOnCallbackError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	expectSportLock(mock, "sport-1", 1)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sports SET capacity = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("sport-1", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.WithSportLock(context.Background(), "sport-1", func(tx SportTx) error {
		require.NoError(t, tx.SetCapacity(context.Background(), 3))
		assert.Equal(t, 3, tx.Sport().Capacity)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryInsertAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	expectSportLock(mock, "sport-1", 5)
	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "term-1", "Ana Lee", "ana@example.com", "0400", "8",
			sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sports WHERE id = $1")).
		WithArgs("sport-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithSportLock(context.Background(), "sport-1", func(tx SportTx) error {
		student := &models.Student{TermID: "term-1", Name: "Ana Lee", Email: "ana@example.com", Phone: "0400", Year: "8"}
		if err := tx.InsertStudent(context.Background(), student); err != nil {
			return err
		}
		assert.NotEmpty(t, student.ID)
		return tx.DeleteSport(context.Background())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
