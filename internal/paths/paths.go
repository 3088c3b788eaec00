// Package paths resolves where Roster keeps its configuration and data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under platform config and data roots.
const AppName = "roster"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else names one.
const DefaultDataDirName = ".roster-db"

// Environment variables that override the directories.
const (
	EnvConfigDir = "ROSTER_CONFIG_DIR"
	EnvDataDir   = "ROSTER_DATA_DIR"
)

// platform holds the OS lookups; tests replace them.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory for Roster.
//
// Linux:   $XDG_CONFIG_HOME/roster, else ~/.config/roster
// Others:  os.UserConfigDir()/roster
func DefaultConfigDir() (string, error) {
	return platformDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory for Roster.
//
// Linux:   $XDG_DATA_HOME/roster, else ~/.local/share/roster
// Others:  os.UserConfigDir()/roster
func DefaultDataDir() (string, error) {
	return platformDir("XDG_DATA_HOME", ".local", "share")
}

func platformDir(xdgVar string, homeRel ...string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, homeRel...), AppName)...), nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// ROSTER_CONFIG_DIR, then DefaultConfigDir. Explicit values are made
// absolute.
func ResolveConfigDir(flag string) (string, error) {
	for _, dir := range []string{flag, os.Getenv(EnvConfigDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the config file's
// data_dir, then ROSTER_DATA_DIR, then $(CWD)/.roster-db. The result is
// always absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return filepath.Abs(DefaultDataDirName)
}
