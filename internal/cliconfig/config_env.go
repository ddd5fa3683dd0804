package cliconfig

import "os"

// EnvPrefix prefixes every environment variable framebridge reads.
const EnvPrefix = "FRAMEBRIDGE_"

// ApplyEnvConfig applies FRAMEBRIDGE_* environment variables to cfg,
// skipping settings whose flag was explicitly set.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.setString("mount", env("MOUNT"), &cfg.MountPoint)
	s.setString("storage", env("STORAGE"), &cfg.Storage)
	s.setString("persist-dir", env("PERSIST_DIR"), &cfg.PersistDir)
	s.setString("redis-addr", env("REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("redis-password", env("REDIS_PASSWORD"), &cfg.RedisPassword)
	s.setString("redis-prefix", env("REDIS_PREFIX"), &cfg.RedisPrefix)
	s.setString("control-addr", env("CONTROL_ADDR"), &cfg.ControlAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("redis-db", env("REDIS_DB"), &cfg.RedisDB); err != nil {
		return err
	}
	if err := s.setIntFromString("fps", env("FPS"), &cfg.FPS); err != nil {
		return err
	}

	if err := s.setDuration("checkpoint-interval", env("CHECKPOINT_INTERVAL"), &cfg.CheckpointInterval); err != nil {
		return err
	}
	if err := s.setDuration("import-wait", env("IMPORT_WAIT"), &cfg.ImportWait); err != nil {
		return err
	}
	if err := s.setDuration("op-timeout", env("OP_TIMEOUT"), &cfg.OpTimeout); err != nil {
		return err
	}
	if err := s.setDuration("slow-step", env("SLOW_STEP"), &cfg.SlowStep); err != nil {
		return err
	}

	s.setBoolFromString("watch-mount", env("WATCH_MOUNT"), &cfg.WatchMount)
	return nil
}
