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

var studentRowMockColumns = []string{"id", "term_id", "name", "email", "phone", "year", "sport_id", "waitlisted", "registered_at", "created_at", "updated_at", "sport_name"}

func TestStudentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	waitlisted := false
	mock.ExpectQuery(regexp.QuoteMeta("FROM students st LEFT JOIN sports sp ON sp.id = st.sport_id WHERE st.term_id = $1 AND st.year = $2 AND st.waitlisted = $3 ORDER BY st.created_at ASC")).
		WithArgs("term-1", "8", false).
		WillReturnRows(sqlmock.NewRows(studentRowMockColumns).
			AddRow("stu-1", "term-1", "Ana Lee", "ana@example.com", "0400", "8", "sport-1", false, now, now, now, "Netball"))

	rows, err := repo.List(context.Background(), models.StudentFilter{TermID: "term-1", Year: "8", Waitlisted: &waitlisted})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].SportName)
	assert.Equal(t, "Netball", *rows[0].SportName)
	require.NotNil(t, rows[0].SportID)
	assert.Equal(t, "sport-1", *rows[0].SportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE st.id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(studentRowMockColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudentRepositoryEmailExistsNormalises(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE term_id = $1 AND LOWER(email) = $2 LIMIT 1")).
		WithArgs("term-1", "ana@example.com").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.EmailExists(context.Background(), "term-1", "  Ana@Example.com ")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWaitlisted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "term-1", "Ben Ng", "ben@example.com", "0411", "9",
			sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{TermID: "term-1", Name: "Ben Ng", Email: "ben@example.com", Phone: "0411", Year: "9", Waitlisted: true}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMarkWaitlisted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET waitlisted = $1, updated_at = $2 WHERE id = $3 AND sport_id IS NULL")).
		WithArgs(true, sqlmock.AnyArg(), "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkWaitlisted(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeletes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := repo.Delete(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := repo.DeleteByTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
