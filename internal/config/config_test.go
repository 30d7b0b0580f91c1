package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "nancy", cfg.Site)
	assert.Equal(t, 10, cfg.PhysicalNodes)
	assert.Equal(t, 100, cfg.VirtualNodes)
	assert.Equal(t, "GoogleDataCenter", cfg.JobName)
	assert.Equal(t, []string{"sagittaire"}, cfg.Blacklist)
	assert.Equal(t, RemainderSpread, cfg.Remainder)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.True(t, cfg.RequireVNodes)

	d, err := cfg.WalltimeDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, d)
}

func TestDefault_BlacklistIsACopy(t *testing.T) {
	cfg := Default()
	cfg.Blacklist[0] = "graphene"

	assert.Equal(t, "sagittaire", DefaultBlacklist[0])
}

func TestAPIUser(t *testing.T) {
	cfg := Default()
	cfg.API.User = "fromfile"

	t.Setenv(EnvG5KUser, "")
	assert.Equal(t, "fromfile", cfg.APIUser())

	t.Setenv(EnvG5KUser, "fromenv")
	assert.Equal(t, "fromenv", cfg.APIUser())
}

func TestSSHUser(t *testing.T) {
	t.Setenv(EnvG5KUser, "alice")
	cfg := Default()

	assert.Equal(t, "alice", cfg.SSHUser())

	cfg.SSH.User = "bob"
	assert.Equal(t, "bob", cfg.SSHUser())
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".vdc/runs.db"), ExpandPath("~/.vdc/runs.db"))
	assert.Equal(t, "/tmp/x", ExpandPath("/tmp/x"))
	assert.Equal(t, "rel/x", ExpandPath("rel/x"))
}
