package ingest

import (
	"time"
)

// Retrier is a bounded retry state machine for feed calls. It tracks
// consecutive failures, sleeps an exponentially growing delay between
// attempts and reports when the failure budget is exhausted. The sleep
// function is injectable so tests run without real delays.
type Retrier struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxFailures int

	failures int
	sleep    func(time.Duration)
}

// NewRetrier creates a retrier with the given backoff parameters.
func NewRetrier(base, max time.Duration, maxFailures int) *Retrier {
	return &Retrier{
		BaseDelay:   base,
		MaxDelay:    max,
		MaxFailures: maxFailures,
		sleep:       time.Sleep,
	}
}

// Success resets the consecutive-failure counter.
func (r *Retrier) Success() {
	r.failures = 0
}

// Failure records one consecutive failure. When the budget still allows
// another attempt it sleeps the backoff delay and returns true; once
// MaxFailures is reached it returns false immediately, without sleeping.
func (r *Retrier) Failure() bool {
	r.failures++
	if r.failures >= r.MaxFailures {
		return false
	}
	r.sleep(r.delay())
	return true
}

// Failures returns the current consecutive-failure count.
func (r *Retrier) Failures() int {
	return r.failures
}

// delay computes base * 2^(failures-1), capped at MaxDelay.
func (r *Retrier) delay() time.Duration {
	d := r.BaseDelay
	for i := 1; i < r.failures; i++ {
		d *= 2
		if d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}
