package bot

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes the variables for the test, restoring them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func parseFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return flags
}

func TestLoadConfigPrecedence(t *testing.T) {
	unsetEnv(t, "TABLEGAMES_DATADIR", "TABLEGAMES_LISTEN", "TABLEGAMES_DEBUGLEVEL", "TABLEGAMES_SEED")
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TABLEGAMES_DATADIR="+dir+"\nTABLEGAMES_LISTEN=0.0.0.0:9000\nTABLEGAMES_SEED=42\n"), 0600))

	cfg, err := LoadConfig(parseFlags(t, "-envfile", envFile, "-debuglevel", "debug"))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.DebugLevel)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, filepath.Join(dir, "tablegames.sqlite"), cfg.DBPath)
	assert.DirExists(t, cfg.LogDir)

	cfg, err = LoadConfig(parseFlags(t, "-envfile", envFile, "-listen", ":7000", "-seed", "7"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "info", cfg.DebugLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	unsetEnv(t, "TABLEGAMES_DATADIR", "TABLEGAMES_SEED", "TABLEGAMES_DEBUGLEVEL")
	dir := t.TempDir()

	// A missing env file is fine.
	_, err := LoadConfig(parseFlags(t, "-envfile", filepath.Join(dir, "none.env"), "-datadir", dir))
	require.NoError(t, err)

	_, err = LoadConfig(parseFlags(t, "-envfile", "", "-datadir", dir, "-debuglevel", "loud"))
	assert.ErrorContains(t, err, "invalid debug level")

	t.Setenv("TABLEGAMES_SEED", "lucky")
	_, err = LoadConfig(parseFlags(t, "-envfile", "", "-datadir", dir))
	assert.ErrorContains(t, err, "invalid TABLEGAMES_SEED")
}

func TestSetupLogging(t *testing.T) {
	dir := t.TempDir()
	_, err := SetupLogging(dir, "chatty")
	assert.Error(t, err)

	lb, err := SetupLogging(dir, "warn")
	require.NoError(t, err)
	defer lb.Close()

	l := lb.Logger("SRVR")
	assert.Equal(t, slog.LevelWarn, l.Level())
	assert.Equal(t, l, lb.Logger("SRVR"))
	assert.Equal(t, slog.LevelWarn, lb.Logger("NEW").Level())
}
