package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Astrrra/arcmini/internal/logging"
)

const (
	firstRetryBackoff = 10 * time.Millisecond
	maxRetryBackoff   = 250 * time.Millisecond
)

// retryPolicy bounds how long a write transaction is restarted after SQLite
// reports the database busy. The driver already waits busy_timeout per
// statement; this covers conflicts that abort the whole transaction, such as
// a WAL snapshot going stale while the feed and a place lookup both write.
type retryPolicy struct {
	budget  time.Duration
	backoff time.Duration
}

func newRetryPolicy(busyTimeoutMs int) retryPolicy {
	return retryPolicy{
		budget:  time.Duration(busyTimeoutMs) * time.Millisecond,
		backoff: firstRetryBackoff,
	}
}

// Transaction runs fn inside a transaction, rolling back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WriteTx runs fn in a transaction, restarting it while the database is
// busy until the busy timeout is spent. fn may run more than once.
func (db *DB) WriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return db.retry.run(ctx, func() error {
		return db.Transaction(ctx, fn)
	})
}

func (p retryPolicy) run(ctx context.Context, fn func() error) error {
	deadline := time.Now().Add(p.budget)
	backoff := p.backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil || !isBusyError(err) {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("database busy after %d attempts: %w", attempt, err)
		}
		wait := min(backoff, remaining)
		logger := logging.Component("db")
		logger.Debug().Int("attempt", attempt).Dur("wait", wait).Msg("database busy, retrying write")

		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "sqlite_busy")
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
