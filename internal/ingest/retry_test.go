package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrierBackoffProgression(t *testing.T) {
	var slept []time.Duration
	r := NewRetrier(5*time.Second, 30*time.Second, 5)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	assert.True(t, r.Failure())  // 5s
	assert.True(t, r.Failure())  // 10s
	assert.True(t, r.Failure())  // 20s
	assert.True(t, r.Failure())  // capped at 30s
	assert.False(t, r.Failure()) // budget exhausted, no sleep

	assert.Equal(t, []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		30 * time.Second,
	}, slept)
	assert.Equal(t, 5, r.Failures())
}

func TestRetrierSuccessResets(t *testing.T) {
	r := NewRetrier(time.Second, 8*time.Second, 3)
	r.sleep = func(time.Duration) {}

	assert.True(t, r.Failure())
	assert.True(t, r.Failure())
	r.Success()
	assert.Equal(t, 0, r.Failures())

	// The budget is consecutive: after a success it starts over.
	assert.True(t, r.Failure())
	assert.True(t, r.Failure())
	assert.False(t, r.Failure())
}

func TestRetrierSingleFailureBudget(t *testing.T) {
	var slept int
	r := NewRetrier(time.Second, time.Second, 1)
	r.sleep = func(time.Duration) { slept++ }

	assert.False(t, r.Failure())
	assert.Equal(t, 0, slept, "final failure must not sleep")
}
