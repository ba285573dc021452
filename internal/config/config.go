// Package config loads the optional, operator-tunable settings the
// original C implementation hard-codes as constants in migrate.c: the
// decay threshold and factor, and a list of path globs add should
// silently ignore.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lynlevenick/zsql/internal/errs"
)

// Config mirrors the decay trigger's tunables plus an add-time exclude
// list. Load starts from Defaults(), so a key absent from the file keeps
// its default; a value written in the file, zero included, is kept as is.
type Config struct {
	DecayThreshold int64    `toml:"decay_threshold"`
	DecayFactor    float64  `toml:"decay_factor"`
	Exclude        []string `toml:"exclude"`
}

// Defaults returns the same constants migrate.go's schema bakes in:
// T = 5000, factor 0.9, no exclusions.
func Defaults() Config {
	return Config{DecayThreshold: 5000, DecayFactor: 0.9}
}

// Load reads $XDG_CONFIG_HOME/zsql/config.toml, falling back to
// $HOME/.config/zsql/config.toml. A missing file is not an error — it
// just means Defaults() applies untouched.
func Load() (Config, *errs.Error) {
	cfg := Defaults()

	path, cause := configPath()
	if cause != nil {
		return cfg, cause
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errs.FromSystem(err, nil)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, errs.FromText(errs.KindUser, "invalid config file: "+err.Error(), nil)
	}
	return cfg, nil
}

func configPath() (string, *errs.Error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zsql", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.FromSystem(err, nil)
	}
	return filepath.Join(home, ".config", "zsql", "config.toml"), nil
}

// Excluded reports whether dir matches one of the configured exclude
// globs. A malformed glob pattern never matches rather than erroring —
// add is not the place to surface a config mistake.
func (c Config) Excluded(dir string) bool {
	for _, pattern := range c.Exclude {
		if ok, err := filepath.Match(pattern, dir); err == nil && ok {
			return true
		}
	}
	return false
}
