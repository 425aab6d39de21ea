package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".clearclause"

// DataDir returns the base data directory for ClearClause.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the settings file.
func ConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// DBPath returns the path to the bbolt database file.
func DBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "clearclause.db"), nil
}

// SessionsPath returns the path to the session collection file.
func SessionsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.json"), nil
}

// ChatsDir returns the directory holding per-session chat history files.
func ChatsDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "chats"), nil
}

// PrefsPath returns the path to the preferences file.
func PrefsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "prefs.json"), nil
}
