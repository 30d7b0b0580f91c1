package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWalltime parses an OAR walltime. Accepted forms are "H", "H:MM" and
// "H:MM:SS", as well as Go duration strings such as "90m".
func ParseWalltime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("walltime is empty")
	}
	if !strings.Contains(s, ":") {
		if h, err := strconv.Atoi(s); err == nil {
			if h <= 0 {
				return 0, fmt.Errorf("walltime %q must be positive", s)
			}
			return time.Duration(h) * time.Hour, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid walltime %q: %w", s, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("walltime %q must be positive", s)
		}
		return d, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid walltime %q: expected H:MM:SS", s)
	}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid walltime %q: bad field %q", s, p)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid walltime %q: field %q out of range", s, p)
		}
		d += time.Duration(n) * units[i]
	}
	if d <= 0 {
		return 0, fmt.Errorf("walltime %q must be positive", s)
	}
	return d, nil
}

// FormatWalltime renders a duration the way OAR expects it, rounded down to the second.
func FormatWalltime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%02d:%02d", h, m, d/time.Second)
}
