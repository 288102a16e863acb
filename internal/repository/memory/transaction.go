// Package memory implements the repositories in process. Transactions are
// serialized by one lock; there is no rollback, so services perform their
// checks before their first write.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/tx"
	"github.com/google/uuid"
)

type txKey struct{}

type Transactor struct {
	mu sync.Mutex
}

func NewTransactor() *Transactor {
	return &Transactor{}
}

var _ tx.Transactor = (*Transactor)(nil)

// WithinTx runs fn while holding the store-wide lock. Nested calls join the
// outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func now() time.Time {
	return time.Now().UTC()
}
