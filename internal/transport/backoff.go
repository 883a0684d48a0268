package transport

import (
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// linearBackoff waits base, 2*base, 3*base, ... between attempts.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt uint64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n := atomic.AddUint64(&attempt, 1)
		return time.Duration(n) * base, false
	})
}

// connectBackoff allows maxAttempts dials in total.
func connectBackoff(maxAttempts int, base time.Duration) retry.Backoff {
	retries := uint64(0)
	if maxAttempts > 1 {
		retries = uint64(maxAttempts - 1)
	}
	return retry.WithMaxRetries(retries, linearBackoff(base))
}
