package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipberndt/needrestart/internal/model"
)

func newTestCommand(t *testing.T, args []string) *viper.Viper {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))
	cmd.SetArgs(args)
	cmd.RunE = func(*cobra.Command, []string) error { return nil }
	require.NoError(t, cmd.Execute())
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newTestCommand(t, nil)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "list", cfg.RestartMode)
	assert.Empty(t, cfg.Blacklist)
	assert.Empty(t, cfg.OverrideRC)
}

func TestLoadFlagsOverride(t *testing.T) {
	v := newTestCommand(t, []string{
		"--verbose",
		"--blacklist", "^/usr/bin/sudo$",
		"--blacklist_rc", "foo.service",
		"--override_rc", "sshd.service=no",
		"--override_rc", "cron.service=yes",
		"--kernelhints",
		"--restart_mode", "automatic",
	})

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, []string{"^/usr/bin/sudo$"}, cfg.Blacklist)
	assert.Equal(t, []string{"foo.service"}, cfg.BlacklistRC)
	assert.True(t, cfg.KernelHints)
	assert.Equal(t, "automatic", cfg.RestartMode)
	assert.Equal(t, []model.OverrideRule{
		{Pattern: "sshd.service", Restart: false},
		{Pattern: "cron.service", Restart: true},
	}, cfg.OverrideRC)
}

func TestLoadRejectsInvalidRestartMode(t *testing.T) {
	v := newTestCommand(t, []string{"--restart_mode", "bogus"})

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedOverrideRC(t *testing.T) {
	v := newTestCommand(t, []string{"--override_rc", "nope-no-equals"})

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "needrestart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernelhints: true\nrestart_mode: interactive\n"), 0o644))

	v := newTestCommand(t, nil)
	v.Set("config", path)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.True(t, cfg.KernelHints)
	assert.Equal(t, "interactive", cfg.RestartMode)
	assert.Equal(t, path, cfg.ConfigFile)
}
