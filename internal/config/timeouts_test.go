package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timeoutEnvVars = []string{
	"VDC_TIMEOUT_RESERVATION",
	"VDC_TIMEOUT_DEPLOY",
	"VDC_TIMEOUT_COMMAND",
	"VDC_POLL_INTERVAL",
	"VDC_PLANNING_HORIZON",
	"VDC_RETRY_MAX_ATTEMPTS",
	"VDC_RETRY_INITIAL_DELAY",
}

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range timeoutEnvVars {
		t.Setenv(v, "")
	}
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := LoadTimeouts()

	assert.Equal(t, 2*time.Hour, timeouts.Reservation)
	assert.Equal(t, 45*time.Minute, timeouts.Deploy)
	assert.Equal(t, 15*time.Minute, timeouts.Command)
	assert.Equal(t, 10*time.Second, timeouts.PollInterval)
	assert.Equal(t, 72*time.Hour, timeouts.PlanningHorizon)
	assert.Equal(t, 5, timeouts.RetryMaxAttempts)
	assert.Equal(t, 2*time.Second, timeouts.RetryInitialDelay)
}

func TestLoadTimeouts_CustomValues(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("VDC_TIMEOUT_RESERVATION", "30m")
	t.Setenv("VDC_POLL_INTERVAL", "1s")
	t.Setenv("VDC_RETRY_MAX_ATTEMPTS", "2")

	timeouts := LoadTimeouts()

	assert.Equal(t, 30*time.Minute, timeouts.Reservation)
	assert.Equal(t, time.Second, timeouts.PollInterval)
	assert.Equal(t, 2, timeouts.RetryMaxAttempts)
	assert.Equal(t, 45*time.Minute, timeouts.Deploy)
}

func TestLoadTimeouts_InvalidValuesFallBack(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("VDC_TIMEOUT_DEPLOY", "soon")
	t.Setenv("VDC_POLL_INTERVAL", "-5s")
	t.Setenv("VDC_RETRY_MAX_ATTEMPTS", "many")

	timeouts := LoadTimeouts()

	assert.Equal(t, 45*time.Minute, timeouts.Deploy)
	assert.Equal(t, 10*time.Second, timeouts.PollInterval)
	assert.Equal(t, 5, timeouts.RetryMaxAttempts)
}
