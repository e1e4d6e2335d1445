// Package ledger provides the transaction executor: the only path through
// which balances, quota status, installment status, and reserve counters may
// be mutated.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Executor wraps each unit of work in a single atomic transaction. An
// in-process mutex serializes units, so at most one financial mutation is in
// flight at a time: two concurrent liquidation passes cannot race on quota
// selection, and two distribution passes cannot double-drain the pool.
// SQLite's single-writer transaction semantics back the same guarantee at the
// database level.
type Executor struct {
	db *sql.DB
	mu sync.Mutex
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// RunAtomic executes work inside one transaction. Any error from work rolls
// every write back and propagates unchanged; on nil all writes commit
// together. There is no partial-cancel: once started, the unit runs to commit
// or rollback.
func (e *Executor) RunAtomic(ctx context.Context, work func(tx *sql.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := work(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
