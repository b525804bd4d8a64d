package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDebounceWindow, cfg.DebounceWindow)
	assert.Equal(t, DefaultBlockedMaxEntries, cfg.BlockedMaxEntries)
	assert.Equal(t, DefaultAllowedMaxAge, cfg.AllowedMaxAge)
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("database.path", "/tmp/custom.db")
	viper.Set("debounce.window", 2*time.Second)
	viper.Set("history.blocked_max_entries", 50)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Second, cfg.DebounceWindow)
	assert.Equal(t, 50, cfg.BlockedMaxEntries)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("history.blocked_max_entries", 0)
	_, err := Load()
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), ExpandPath("~/data"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "", ExpandPath(""))

	t.Setenv("QUELL_TEST_DIR", "/var/lib")
	assert.Equal(t, "/var/lib/quell", ExpandPath("$QUELL_TEST_DIR/quell"))
}
