package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"FRAMEBRIDGE_DATA_DIR":            "/env/data",
				"FRAMEBRIDGE_MOUNT":               "/xmoto",
				"FRAMEBRIDGE_STORAGE":             "redis",
				"FRAMEBRIDGE_PERSIST_DIR":         "/env/persist",
				"FRAMEBRIDGE_REDIS_ADDR":          "redis:6379",
				"FRAMEBRIDGE_REDIS_PASSWORD":      "secret",
				"FRAMEBRIDGE_REDIS_DB":            "2",
				"FRAMEBRIDGE_REDIS_PREFIX":        "xm:",
				"FRAMEBRIDGE_FPS":                 "30",
				"FRAMEBRIDGE_CHECKPOINT_INTERVAL": "1m",
				"FRAMEBRIDGE_IMPORT_WAIT":         "2s",
				"FRAMEBRIDGE_OP_TIMEOUT":          "10s",
				"FRAMEBRIDGE_SLOW_STEP":           "20ms",
				"FRAMEBRIDGE_WATCH_MOUNT":         "false",
				"FRAMEBRIDGE_CONTROL_ADDR":        ":9000",
				"FRAMEBRIDGE_LOG_LEVEL":           "debug",
			},
			changed: map[string]bool{},
			initial: Config{WatchMount: true},
			expected: Config{
				DataDir:            "/env/data",
				MountPoint:         "/xmoto",
				Storage:            "redis",
				PersistDir:         "/env/persist",
				RedisAddr:          "redis:6379",
				RedisPassword:      "secret",
				RedisDB:            2,
				RedisPrefix:        "xm:",
				FPS:                30,
				CheckpointInterval: time.Minute,
				ImportWait:         2 * time.Second,
				OpTimeout:          10 * time.Second,
				SlowStep:           20 * time.Millisecond,
				WatchMount:         false,
				ControlAddr:        ":9000",
				LogLevel:           "debug",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"FRAMEBRIDGE_MOUNT": "/env/mount",
				"FRAMEBRIDGE_FPS":   "30",
			},
			changed:  map[string]bool{"mount": true},
			initial:  Config{MountPoint: "/flag/mount"},
			expected: Config{MountPoint: "/flag/mount", FPS: 30},
		},
		{
			name:     "zero checkpoint interval disables checkpoints",
			envVars:  map[string]string{"FRAMEBRIDGE_CHECKPOINT_INTERVAL": "0s"},
			changed:  map[string]bool{},
			initial:  Config{CheckpointInterval: 30 * time.Second},
			expected: Config{},
		},
		{
			name:     "handles bool '1' as true",
			envVars:  map[string]string{"FRAMEBRIDGE_WATCH_MOUNT": "1"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{WatchMount: true},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"FRAMEBRIDGE_IMPORT_WAIT": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"FRAMEBRIDGE_FPS": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
