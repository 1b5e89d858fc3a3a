package insights

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ofuq-backend/internal/models"
)

var errAlreadyLocked = errors.New("already locked for day")

// FirestoreLock keeps the generation lock in system_state/tadabbur_generation_lock.
// The client retries aborted transactions on its own.
type FirestoreLock struct {
	client *firestore.Client
}

func NewFirestoreLock(client *firestore.Client) *FirestoreLock {
	return &FirestoreLock{client: client}
}

func (l *FirestoreLock) Acquire(ctx context.Context, day string) (bool, error) {
	ref := l.client.Collection("system_state").Doc(models.GenerationLockID)

	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return tx.Set(ref, map[string]any{"lastRunDate": day})
		}
		if err != nil {
			return err
		}

		if last, err := snap.DataAt("lastRunDate"); err == nil {
			if s, ok := last.(string); ok && s == day {
				return errAlreadyLocked
			}
		}
		return tx.Update(ref, []firestore.Update{{Path: "lastRunDate", Value: day}})
	})

	if errors.Is(err, errAlreadyLocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
