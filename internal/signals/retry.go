package signals

import (
	"errors"
	"time"

	"github.com/ternarybob/riskpulse/internal/interfaces"
)

// Default retry constants for phrase generation
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
)

// RetryPolicy bounds how often a failing taxonomy leaf is retried
type RetryPolicy struct {
	// MaxAttempts is the total number of generator calls per leaf (minimum 1)
	MaxAttempts int

	// Delay is the fixed wait between attempts
	Delay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// delayFor returns the wait before the next attempt.
// A provider-suggested delay carried by err takes precedence over the fixed delay.
func (p RetryPolicy) delayFor(err error) time.Duration {
	var hinter interfaces.RetryHinter
	if errors.As(err, &hinter) {
		if hint := hinter.RetryAfter(); hint > 0 {
			return hint
		}
	}
	if p.Delay < 0 {
		return 0
	}
	return p.Delay
}
