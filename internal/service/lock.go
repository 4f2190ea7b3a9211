package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/google/uuid"
)

// withUserLock runs fn while holding the per-user lock. A nil Locker runs fn
// directly and leaves serialisation to the database.
func withUserLock(ctx context.Context, l lock.Locker, userID uuid.UUID, fn func() error) error {
	if l == nil {
		return fn()
	}
	unlock, err := l.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return fromRepo(err, "")
		}
		return err
	}
	defer unlock()
	return fn()
}
