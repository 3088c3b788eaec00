package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPlatform swaps the OS lookups for the duration of t.
func withPlatform(t *testing.T, goos, home, configRoot string) {
	t.Helper()
	saved := platform
	platform.goos = goos
	platform.homeDir = func() (string, error) { return home, nil }
	platform.userConfigDir = func() (string, error) { return configRoot, nil }
	t.Cleanup(func() { platform = saved })
}

func TestDefaultDirs_Linux(t *testing.T) {
	withPlatform(t, "linux", "/home/ada", "/unused")

	t.Run("XDG variables win", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/roster", got)

		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/roster", got)
	})

	t.Run("home fallbacks", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/ada", ".config", "roster"), got)

		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/home/ada", ".local", "share", "roster"), got)
	})

	t.Run("home lookup failure", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		platform.homeDir = func() (string, error) { return "", errors.New("no home") }
		_, err := DefaultConfigDir()
		assert.Error(t, err)
	})
}

func TestDefaultDirs_OtherPlatforms(t *testing.T) {
	withPlatform(t, "darwin", "/Users/ada", "/Users/ada/Library/Application Support")

	got, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/Users/ada/Library/Application Support/roster", got)

	got, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/Users/ada/Library/Application Support/roster", got)
}

func TestResolveConfigDir(t *testing.T) {
	withPlatform(t, "linux", "/home/ada", "/unused")
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env when flag empty", "", "/env/config", "/env/config"},
		{"platform default", "", "", "/home/ada/.config/roster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env when flag and config empty", "", "", "/env/data", "/env/data"},
		{"CWD default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
		{"relative flag made absolute", "rel/data", "", "", filepath.Join(cwd, "rel", "data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
