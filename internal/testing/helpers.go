package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/remote"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Succeeded returns a successful remote result.
func Succeeded(host, output string) remote.Result {
	return remote.Result{Host: host, Succeeded: true, Output: output}
}

// Failed returns a failed remote result with the given output.
func Failed(host, output string) remote.Result {
	return remote.Result{Host: host, Output: output, Err: errors.New("exit status 1")}
}
