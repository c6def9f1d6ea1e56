package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, DefaultMaxFailures, cfg.MaxFailures)
	assert.Equal(t, DefaultRetryBaseDelay, cfg.RetryBaseDelay)
	assert.Equal(t, DefaultRetryMaxDelay, cfg.RetryMaxDelay)
	assert.Equal(t, DefaultSascarURL, cfg.SascarURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_MAX_FAILURES", "3")
	t.Setenv("SYNC_RETRY_BASE_DELAY", "2s")
	t.Setenv("SYNC_RETRY_MAX_DELAY", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxFailures)
	assert.Equal(t, 2*time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, time.Minute, cfg.RetryMaxDelay)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SYNC_MAX_FAILURES", "zero"},
		{"SYNC_MAX_FAILURES", "0"},
		{"SYNC_RETRY_BASE_DELAY", "fast"},
		{"SYNC_RETRY_BASE_DELAY", "-1s"},
		{"SYNC_RETRY_MAX_DELAY", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireSascar(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireSascar())

	cfg.SascarUser = "user"
	assert.Error(t, cfg.RequireSascar())

	cfg.SascarPass = "pass"
	assert.NoError(t, cfg.RequireSascar())
}
