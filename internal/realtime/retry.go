package realtime

import "time"

// RetryPolicy decides how long to wait before resubscribing after a failure.
type RetryPolicy struct {
	// Base is the first delay for each failure kind. Kinds without an entry use the
	// ChannelError delay.
	Base map[SubscriptionStatus]time.Duration
	// Multiplier grows the delay on each consecutive attempt. Values below 1 act as 1.
	Multiplier float64
	// MaxDelay caps a single delay. Zero means no cap.
	MaxDelay time.Duration
	// MaxAttempts bounds consecutive attempts. Zero retries forever.
	MaxAttempts int
}

// DefaultRetryPolicy backs off exponentially from the per-kind delays and gives up
// after 20 consecutive failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:        defaultBase(),
		Multiplier:  2,
		MaxDelay:    time.Minute,
		MaxAttempts: 20,
	}
}

// FixedRetryPolicy retries forever with the per-kind delays unchanged.
func FixedRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: defaultBase(), Multiplier: 1}
}

func defaultBase() map[SubscriptionStatus]time.Duration {
	return map[SubscriptionStatus]time.Duration{
		ChannelError: 5 * time.Second,
		TimedOut:     3 * time.Second,
		Closed:       2 * time.Second,
	}
}

// Delay returns the wait before the given 1-based attempt, or false when the policy
// is exhausted.
func (p RetryPolicy) Delay(kind SubscriptionStatus, attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	base, ok := p.Base[kind]
	if !ok {
		base = p.Base[ChannelError]
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(base)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay, true
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay, true
	}
	return time.Duration(d), true
}
