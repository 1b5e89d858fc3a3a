package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxTxAttempts = 5

// retryable SQLSTATEs: serialization_failure, deadlock_detected, unique_violation.
// A unique violation shows up when two first-ever writers race to insert the
// same singleton row; the loser sees the winner's row on retry.
var retryableCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"23505": true,
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && retryableCodes[pgErr.Code]
}

// runSerializable runs fn in a SERIALIZABLE transaction and retries it on
// contention. Errors returned by fn that are not contention are returned as is.
func runSerializable(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
			}
		}

		err = pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("transaction contention after %d attempts: %w", maxTxAttempts, err)
}
