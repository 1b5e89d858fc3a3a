package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/cache"
)

const (
	runLockTTL   = 10 * time.Second
	runLockWait  = 2 * time.Second
	runLockRetry = 25 * time.Millisecond
)

// ErrRunBusy means another request held the run for longer than runLockWait.
var ErrRunBusy = errors.New("quiz run is busy, try again")

// RunStore parks in-progress runs between requests, one per (user, lecture).
type RunStore struct {
	cache cache.Store
	ttl   time.Duration
}

func NewRunStore(c cache.Store, ttl time.Duration) *RunStore {
	return &RunStore{cache: c, ttl: ttl}
}

func runKey(userID string, lectureID uuid.UUID) string {
	return fmt.Sprintf("quiz_run:%s:%s", userID, lectureID)
}

func runLockKey(userID string, lectureID uuid.UUID) string {
	return fmt.Sprintf("quiz_run_lock:%s:%s", userID, lectureID)
}

// Lock serialises load-modify-save cycles on one run across instances. It
// waits up to runLockWait and returns a release func on success.
func (s *RunStore) Lock(ctx context.Context, userID string, lectureID uuid.UUID) (func(), error) {
	key := runLockKey(userID, lectureID)
	deadline := time.Now().Add(runLockWait)
	for {
		ok, err := s.cache.SetNX(ctx, key, 1, runLockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock quiz run: %w", err)
		}
		if ok {
			return func() { s.cache.Delete(context.Background(), key) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrRunBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(runLockRetry):
		}
	}
}

// Load returns the saved state and whether one existed.
func (s *RunStore) Load(ctx context.Context, userID string, lectureID uuid.UUID) (State, bool, error) {
	var st State
	ok, err := s.cache.Get(ctx, runKey(userID, lectureID), &st)
	return st, ok, err
}

// Save refreshes the run's TTL on every write.
func (s *RunStore) Save(ctx context.Context, userID string, lectureID uuid.UUID, st State) error {
	return s.cache.Set(ctx, runKey(userID, lectureID), st, s.ttl)
}

func (s *RunStore) Delete(ctx context.Context, userID string, lectureID uuid.UUID) error {
	return s.cache.Delete(ctx, runKey(userID, lectureID))
}
