package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	DataDir            string `toml:"data_dir"`
	MountPoint         string `toml:"mount"`
	Storage            string `toml:"storage"`
	PersistDir         string `toml:"persist_dir"`
	RedisAddr          string `toml:"redis_addr"`
	RedisPassword      string `toml:"redis_password"`
	RedisDB            int    `toml:"redis_db"`
	RedisPrefix        string `toml:"redis_prefix"`
	FPS                int    `toml:"fps"`
	CheckpointInterval string `toml:"checkpoint_interval"`
	ImportWait         string `toml:"import_wait"`
	OpTimeout          string `toml:"op_timeout"`
	SlowStep           string `toml:"slow_step"`
	WatchMount         *bool  `toml:"watch_mount"`
	ControlAddr        string `toml:"control_addr"`
	LogLevel           string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// Unknown keys are rejected so typos do not pass silently.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, 0, len(strict.Errors))
			for _, e := range strict.Errors {
				keys = append(keys, strings.Join(e.Key(), "."))
			}
			return fc, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.framebridge/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".framebridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("mount", fc.MountPoint, &cfg.MountPoint)
	s.setString("storage", fc.Storage, &cfg.Storage)
	s.setString("persist-dir", fc.PersistDir, &cfg.PersistDir)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("redis-password", fc.RedisPassword, &cfg.RedisPassword)
	s.setString("redis-prefix", fc.RedisPrefix, &cfg.RedisPrefix)
	s.setString("control-addr", fc.ControlAddr, &cfg.ControlAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("redis-db", fc.RedisDB, &cfg.RedisDB)
	s.setInt("fps", fc.FPS, &cfg.FPS)

	if err := s.setDuration("checkpoint-interval", fc.CheckpointInterval, &cfg.CheckpointInterval); err != nil {
		return err
	}
	if err := s.setDuration("import-wait", fc.ImportWait, &cfg.ImportWait); err != nil {
		return err
	}
	if err := s.setDuration("op-timeout", fc.OpTimeout, &cfg.OpTimeout); err != nil {
		return err
	}
	if err := s.setDuration("slow-step", fc.SlowStep, &cfg.SlowStep); err != nil {
		return err
	}

	s.setBool("watch-mount", fc.WatchMount, &cfg.WatchMount)
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
