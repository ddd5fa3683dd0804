package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageDir   = "dir"
	StorageRedis = "redis"
	StorageNone  = "none"
)

// DefaultControlAddr is where the HTTP control surface listens by default.
const DefaultControlAddr = "127.0.0.1:7878"

// Config holds CLI configuration for framebridge.
type Config struct {
	// DataDir is the base for derived MountPoint and PersistDir.
	DataDir    string
	MountPoint string

	Storage       string
	PersistDir    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	FPS                int
	CheckpointInterval time.Duration
	ImportWait         time.Duration
	OpTimeout          time.Duration
	SlowStep           time.Duration
	WatchMount         bool

	ControlAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:            defaultDataDir(),
		Storage:            StorageDir,
		FPS:                60,
		CheckpointInterval: 30 * time.Second,
		OpTimeout:          30 * time.Second,
		SlowStep:           50 * time.Millisecond,
		WatchMount:         true,
		ControlAddr:        DefaultControlAddr,
		LogLevel:           "info",
	}
}

func defaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".framebridge")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.MountPoint == "" {
		if c.DataDir == "" {
			return fmt.Errorf("mount is required (or data-dir)")
		}
		c.MountPoint = filepath.Join(c.DataDir, "mount")
	}

	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StorageDir:
		if c.PersistDir == "" {
			if c.DataDir == "" {
				return fmt.Errorf("persist-dir is required (or data-dir)")
			}
			c.PersistDir = filepath.Join(c.DataDir, "persist")
		}
		if filepath.Clean(c.PersistDir) == filepath.Clean(c.MountPoint) {
			return fmt.Errorf("persist-dir must differ from mount")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for redis storage")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis-db must not be negative")
		}
	case StorageNone:
	default:
		return fmt.Errorf("unknown storage %q (want %s, %s or %s)", c.Storage, StorageDir, StorageRedis, StorageNone)
	}

	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative")
	}
	if c.ImportWait < 0 {
		return fmt.Errorf("import wait must not be negative")
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("op timeout must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
// "0" and "0s" are accepted and disable the setting they configure.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
