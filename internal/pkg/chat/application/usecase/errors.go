package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = errors.New("chat use case persistence error")

// storeError keeps domain sentinels as they are and marks anything else as
// a persistence failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{chat.ErrNotFound, chat.ErrConflict, chat.ErrForbidden, chat.ErrValidation, ErrPersistence} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// retryBackoff is the linear step between read attempts.
var retryBackoff = 25 * time.Millisecond

// retryRead runs fn up to attempts times while it fails with a persistence
// error. Domain errors return immediately. Only read paths use it.
func retryRead[T any](ctx context.Context, attempts int, fn func(context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}
	var (
		out T
		err error
	)
	for i := 0; i < attempts; i++ {
		out, err = fn(ctx)
		err = storeError(err)
		if err == nil || !errors.Is(err, ErrPersistence) {
			return out, err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return out, err
		case <-time.After(retryBackoff * time.Duration(i+1)):
		}
	}
	return out, err
}
