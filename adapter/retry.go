package adapter

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryInterval is the delay before the first retry. Later retries double it.
const RetryInterval = 500 * time.Millisecond

// Retry runs op up to 1+retries times with exponential backoff between
// attempts. An error wrapped with backoff.Permanent stops retrying
// immediately. Respects ctx cancellation during the wait.
func Retry(ctx context.Context, retries int, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(1+retries)),
	)
	return err
}
