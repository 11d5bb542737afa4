package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loomworks/loom/internal/storage"
)

// sqliteTx wraps a dedicated connection holding an open transaction. All
// reads and writes inside RunInTransaction go through this wrapper so they
// share the transaction's view of the database.
type sqliteTx struct {
	queries
	store *SQLiteStorage
}

var _ storage.Tx = (*sqliteTx)(nil)

// RunInTransaction executes fn within a single write transaction. The
// transaction commits when fn returns nil and rolls back when fn returns an
// error or panics (the panic is re-raised after rollback).
//
// The transaction is opened with BEGIN IMMEDIATE so the write lock is
// acquired up front rather than on first write, which avoids SQLITE_BUSY
// upgrades mid-transaction. Acquisition is retried with exponential backoff
// while another writer holds the lock.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second

	begin := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if isBusyError(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(begin, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
				s.log.Warn("transaction rollback failed", "error", rbErr)
			}
		}
	}()

	tx := &sqliteTx{
		queries: queries{q: conn, log: s.log},
		store:   s,
	}

	var fnErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				// Roll back before re-raising so the lock is not held
				// while the panic unwinds.
				if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
					s.log.Warn("transaction rollback failed after panic", "error", rbErr)
				}
				committed = true // suppress the deferred rollback
				panic(r)
			}
		}()
		fnErr = fn(tx)
	}()

	if fnErr != nil {
		return fnErr
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
