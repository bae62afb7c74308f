package resilience

import "time"

// PolicyFromConfig builds a RetryPolicy from config integers. Non-positive
// values keep the defaults.
func PolicyFromConfig(attempts, initialMs, maxMs int) RetryPolicy {
	p := DefaultRetryPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if initialMs > 0 {
		p.Backoff.Initial = time.Duration(initialMs) * time.Millisecond
	}
	if maxMs > 0 {
		p.Backoff.Max = time.Duration(maxMs) * time.Millisecond
	}
	return p
}

// BreakerFromConfig builds a BreakerConfig from config integers.
// Non-positive values keep the defaults.
func BreakerFromConfig(threshold, cooldownSecs int) BreakerConfig {
	c := DefaultBreakerConfig()
	if threshold > 0 {
		c.Threshold = threshold
	}
	if cooldownSecs > 0 {
		c.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return c
}
