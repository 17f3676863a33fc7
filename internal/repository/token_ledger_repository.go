package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenLedgerPrefix = "confirmation:used:"

// TokenLedgerRepository records consumed confirmation token ids in Redis so a
// token is honoured once across every replica.
type TokenLedgerRepository struct {
	client *redis.Client
}

// NewTokenLedgerRepository constructs the ledger.
func NewTokenLedgerRepository(client *redis.Client) *TokenLedgerRepository {
	return &TokenLedgerRepository{client: client}
}

// Consume marks id as used until ttl elapses. It returns false when the id
// had already been consumed.
func (r *TokenLedgerRepository) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("token ledger: redis client not configured")
	}
	ok, err := r.client.SetNX(ctx, tokenLedgerPrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume confirmation token: %w", err)
	}
	return ok, nil
}
