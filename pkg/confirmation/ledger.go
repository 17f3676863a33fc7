package confirmation

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger records consumed token ids in process memory. It is used when
// Redis is disabled and only guarantees single use within one process.
type MemoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewMemoryLedger constructs an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{used: make(map[string]time.Time), now: time.Now}
}

// Consume marks id as used. It returns false when id was already consumed and
// has not yet expired.
func (l *MemoryLedger) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, exp := range l.used {
		if now.After(exp) {
			delete(l.used, key)
		}
	}
	if _, ok := l.used[id]; ok {
		return false, nil
	}
	l.used[id] = now.Add(ttl)
	return true, nil
}
