package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourlocalmaccas/School-Website/internal/models"
)

func TestConfigurationRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewConfigurationRepository(db)
	rows := sqlmock.NewRows([]string{"key", "value", "type", "description", "updated_at"}).
		AddRow(models.ConfigRegistrationOpen, "true", "BOOLEAN", nil, time.Now()).
		AddRow(models.ConfigRegistrationOpenAt, "2026-01-20T08:00:00Z", "TIMESTAMP", nil, time.Now())
	mock.ExpectQuery("SELECT key, value, type, description, updated_at").
		WithArgs(models.ConfigRegistrationOpen, models.ConfigRegistrationOpenAt).
		WillReturnRows(rows)

	result, err := repo.ListByKeys(context.Background(), []string{models.ConfigRegistrationOpen, models.ConfigRegistrationOpenAt})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "true", result[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryListByKeysEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	result, err := NewConfigurationRepository(db).ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.ConfigRegistrationOpen, "false", "BOOLEAN", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cfg := &models.Configuration{
		Key:   models.ConfigRegistrationOpen,
		Value: "false",
		Type:  models.ConfigurationTypeBoolean,
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.False(t, cfg.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryBulkUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.ConfigRegistrationOpen, "false", "BOOLEAN", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.ConfigRegistrationOpenAt, "", "TIMESTAMP", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	items := []models.Configuration{
		{Key: models.ConfigRegistrationOpen, Value: "false", Type: models.ConfigurationTypeBoolean},
		{Key: models.ConfigRegistrationOpenAt, Value: "", Type: models.ConfigurationTypeTimestamp},
	}
	require.NoError(t, repo.BulkUpsert(context.Background(), items))
	assert.NoError(t, mock.ExpectationsWereMet())
}
