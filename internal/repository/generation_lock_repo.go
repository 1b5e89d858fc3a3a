package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ofuq-backend/internal/models"
)

var errAlreadyLocked = errors.New("already locked for day")

// GenerationLockRepo is the Postgres backed once-per-day generation lock.
type GenerationLockRepo struct {
	pool *pgxpool.Pool
	id   string
}

func NewGenerationLockRepo(pool *pgxpool.Pool) *GenerationLockRepo {
	return &GenerationLockRepo{pool: pool, id: models.GenerationLockID}
}

// Acquire claims day for the caller. It returns false when day was already
// claimed. Concurrent callers for the same day see exactly one true.
func (r *GenerationLockRepo) Acquire(ctx context.Context, day string) (bool, error) {
	err := runSerializable(ctx, r.pool, func(tx pgx.Tx) error {
		var lastRun string
		err := tx.QueryRow(ctx,
			`SELECT last_run_date FROM system_state WHERE id = $1 FOR UPDATE`, r.id,
		).Scan(&lastRun)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = tx.Exec(ctx,
				`INSERT INTO system_state (id, last_run_date, updated_at) VALUES ($1, $2, NOW())`,
				r.id, day,
			)
			return err
		case err != nil:
			return err
		case lastRun == day:
			return errAlreadyLocked
		}

		_, err = tx.Exec(ctx,
			`UPDATE system_state SET last_run_date = $1, updated_at = NOW() WHERE id = $2`,
			day, r.id,
		)
		return err
	})

	if errors.Is(err, errAlreadyLocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
