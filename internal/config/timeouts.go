package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Reservation       time.Duration // Bound on waiting for a reservation to start
	Deploy            time.Duration // Bound on waiting for a Kadeploy deployment
	Command           time.Duration // Bound on a single remote command
	PollInterval      time.Duration // Interval between reservation/deployment status checks
	PlanningHorizon   time.Duration // How far ahead free slots are searched
	RetryMaxAttempts  int           // Maximum SSH connection attempts
	RetryInitialDelay time.Duration // Initial delay between SSH connection attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - VDC_TIMEOUT_RESERVATION (default: 2h)
//   - VDC_TIMEOUT_DEPLOY (default: 45m)
//   - VDC_TIMEOUT_COMMAND (default: 15m)
//   - VDC_POLL_INTERVAL (default: 10s)
//   - VDC_PLANNING_HORIZON (default: 72h)
//   - VDC_RETRY_MAX_ATTEMPTS (default: 5)
//   - VDC_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Reservation:       parseDuration("VDC_TIMEOUT_RESERVATION", 2*time.Hour),
		Deploy:            parseDuration("VDC_TIMEOUT_DEPLOY", 45*time.Minute),
		Command:           parseDuration("VDC_TIMEOUT_COMMAND", 15*time.Minute),
		PollInterval:      parseDuration("VDC_POLL_INTERVAL", 10*time.Second),
		PlanningHorizon:   parseDuration("VDC_PLANNING_HORIZON", 72*time.Hour),
		RetryMaxAttempts:  parseInt("VDC_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("VDC_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a positive duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
