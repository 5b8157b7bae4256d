package channel

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultReconnectDelay is the fixed wait before every reconnect attempt.
const DefaultReconnectDelay = 5 * time.Second

// Policy yields the delay before each reconnect attempt. A delay of
// backoff.Stop ends reconnection. Reset is called after every successful open.
type Policy = backoff.BackOff

// Fixed retries forever with the same delay.
func Fixed(d time.Duration) Policy {
	if d <= 0 {
		d = DefaultReconnectDelay
	}
	return backoff.NewConstantBackOff(d)
}

// Exponential grows the delay from initial up to max, with jitter, and never
// gives up on its own.
func Exponential(initial, max time.Duration) Policy {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Capped stops p after maxAttempts consecutive failures. Zero means unbounded.
func Capped(p Policy, maxAttempts int) Policy {
	if maxAttempts <= 0 {
		return p
	}
	return backoff.WithMaxRetries(p, uint64(maxAttempts))
}
