// Package paths resolves where the tracker keeps its config file and its
// application directory (the directory holding company_data.db).
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "ordertracker"

// ConfigFileName is the config file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "ORDERTRACKER_CONFIG_DIR"
	EnvDataDir   = "ORDERTRACKER_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/ordertracker (fallback ~/.config/ordertracker)
// macOS:   ~/Library/Application Support/ordertracker
// Windows: %APPDATA%/ordertracker
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default application directory.
//
// Linux:   $XDG_DATA_HOME/ordertracker (fallback ~/.local/share/ordertracker)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, homeRelative string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRelative, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > ORDERTRACKER_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the application directory following the precedence
// chain: flag > data_dir from config.yaml > ORDERTRACKER_DATA_DIR env >
// DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(expandHome(configYAMLValue))
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}

// expandHome replaces a leading "~/" in config values.
func expandHome(p string) string {
	if len(p) < 2 || p[0] != '~' || (p[1] != '/' && p[1] != '\\') {
		return p
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
