package helpers

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, waiting delay between failures.
// It returns the last error once every attempt has failed, or the
// context error if the wait is interrupted.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
