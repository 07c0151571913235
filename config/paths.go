package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// GetConfigDir returns the platform-specific configuration directory.
// Linux/Mac: ~/.config/dockhand
// Windows: C:\Users\username\.config\dockhand
func GetConfigDir() string {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		return filepath.Join(userProfile, ".config", "dockhand")
	}

	home := os.Getenv("HOME")
	return filepath.Join(home, ".config", "dockhand")
}

// GetDefaultDataDir returns the platform-specific default data directory.
// Linux/Mac: ~/.local/share/dockhand
// Windows: C:\Users\username\AppData\Local\dockhand
func GetDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			localAppData = filepath.Join(userProfile, "AppData", "Local")
		}
		return filepath.Join(localAppData, "dockhand")
	}

	home := os.Getenv("HOME")
	return filepath.Join(home, ".local", "share", "dockhand")
}

// GetSettingsFilePath returns the path to config.toml.
func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "config.toml")
}

// GetProvidersFilePath returns the path to providers.toml.
func GetProvidersFilePath() string {
	return filepath.Join(GetConfigDir(), "providers.toml")
}

// GetRulesFilePath returns the path to the operator rules file.
func GetRulesFilePath() string {
	return filepath.Join(GetConfigDir(), "rules.md")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// EnsureDir creates dir (and parents) with user-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
