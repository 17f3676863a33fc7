package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
)

func TestCacheRepositoryDisabled(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "sports:term-1", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "sports:term-1", []string{"a"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "sports:*"))
	n, err := repo.Incr(ctx, "sports-gen:term-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, repo.Ping(ctx))
}

func TestTokenLedgerRequiresClient(t *testing.T) {
	ok, err := NewTokenLedgerRepository(nil).Consume(context.Background(), "jti", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
