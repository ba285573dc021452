// Package xdgpath resolves where the database file lives, following the
// XDG base directory convention so the Store never has to reason about
// environment variables itself.
package xdgpath

import (
	"os"
	"path/filepath"

	"github.com/lynlevenick/zsql/internal/errs"
)

const (
	appDir = "zsql"
	dbFile = "zsql.db"
)

// DBPath returns the path the Store should open, creating the
// containing directory (mode 0700) if it doesn't already exist.
// $XDG_DATA_HOME is used when set; otherwise $HOME/.local/share.
func DBPath() (string, *errs.Error) {
	dir, cause := dataDir()
	if cause != nil {
		return "", cause
	}

	appPath := filepath.Join(dir, appDir)
	if err := os.MkdirAll(appPath, 0700); err != nil {
		return "", errs.FromSystem(err, nil)
	}
	return filepath.Join(appPath, dbFile), nil
}

func dataDir() (string, *errs.Error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.FromSystem(err, nil)
	}
	return filepath.Join(home, ".local", "share"), nil
}
