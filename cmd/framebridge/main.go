package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/framebridge"
	"github.com/bft-labs/framebridge/internal/cliconfig"
	"github.com/bft-labs/framebridge/internal/control"
	"github.com/bft-labs/framebridge/internal/metrics"
	"github.com/bft-labs/framebridge/internal/sample"
	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/host"
	"github.com/bft-labs/framebridge/pkg/log"
	"github.com/bft-labs/framebridge/pkg/storage"
)

const longHelp = `Run an embedded application one frame at a time under a host scheduler.

The bundled sample application counts frames and keeps its progress in the
persistence mount. Everything after "--" is passed to it:

  --fail-load       fail during load
  --fail-at N       fail on step N
  --quit-at N       quit after step N
  --save-every N    save progress every N steps

Configuration is read from flags, then FRAMEBRIDGE_* environment variables,
then $HOME/.framebridge/config.toml.`

var exampleUsage = strings.TrimSpace(`
  framebridge --mount /tmp/xmoto --persist-dir /tmp/saves -- --quit-at 600
  framebridge --storage redis --redis-addr localhost:6379 --control-addr :7878
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		log.NewZerologAdapter(log.LevelError).Error("framebridge", log.Err(err))
		os.Exit(1)
	}
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "framebridge [flags] [-- application args]",
		Short:         "Drive a blocking embedded application from a tick-based host",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Every line of one process carries the same run id so sessions
			// sharing a log file can be told apart.
			logger := log.NewZerologAdapterTo(stderr, cfg.LogLevel).With(log.String("run", uuid.NewString()))
			logCfg := cfg
			if logCfg.RedisPassword != "" {
				logCfg.RedisPassword = "*****"
			}
			logger.Info("configuration", log.Any("config", logCfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			argv := append([]string{cmd.Root().Name()}, args...)
			return run(ctx, cfg, argv, logger)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.framebridge/config.toml)")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "base directory for the derived mount and persist dirs")
	f.StringVar(&cfg.MountPoint, "mount", cfg.MountPoint, "working directory the application persists into (default: <data-dir>/mount)")
	f.StringVar(&cfg.Storage, "storage", cfg.Storage, "durable storage backend: dir, redis or none")
	f.StringVar(&cfg.PersistDir, "persist-dir", cfg.PersistDir, "durable directory for the dir backend (default: <data-dir>/persist)")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for the redis backend")
	f.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "redis password")
	f.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "redis database number")
	f.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "redis key prefix (default: framebridge:mount:)")
	f.IntVar(&cfg.FPS, "fps", cfg.FPS, "ticks per second")
	f.DurationVar(&cfg.CheckpointInterval, "checkpoint-interval", cfg.CheckpointInterval, "periodic export interval while running (0 disables)")
	f.DurationVar(&cfg.ImportWait, "import-wait", cfg.ImportWait, "how long to wait for the import before loading (0 = don't wait)")
	f.DurationVar(&cfg.OpTimeout, "op-timeout", cfg.OpTimeout, "timeout for a single storage operation")
	f.DurationVar(&cfg.SlowStep, "slow-step", cfg.SlowStep, "log steps slower than this")
	f.BoolVar(&cfg.WatchMount, "watch-mount", cfg.WatchMount, "only checkpoint when the mount changed")
	f.StringVar(&cfg.ControlAddr, "control-addr", cfg.ControlAddr, "HTTP control and metrics address (empty disables)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	root.SetErr(stderr)
	return root
}

// run wires the stack and blocks until the bridge terminates.
func run(ctx context.Context, cfg cliconfig.Config, argv []string, logger log.Logger) error {
	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	sync := storage.NewSynchronizer(backend,
		storage.WithLogger(logger),
		storage.WithOpTimeout(cfg.OpTimeout),
	)
	defer waitSync(sync, cfg.OpTimeout, logger)

	m := metrics.New()
	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithEventHandler(m),
		bridge.WithSynchronizer(sync),
	}

	var watcher *storage.MountWatcher
	if cfg.WatchMount && cfg.CheckpointInterval > 0 {
		watcher = storage.NewMountWatcher(cfg.MountPoint, logger)
		opts = append(opts, bridge.WithDirtyTracker(watcher))
	}

	b, err := framebridge.New(sample.NewCounter(cfg.MountPoint, logger), framebridge.Config{
		MountPoint:         cfg.MountPoint,
		CheckpointInterval: cfg.CheckpointInterval,
		ImportWait:         cfg.ImportWait,
		SlowStepThreshold:  cfg.SlowStep,
	}, opts...)
	if err != nil {
		return err
	}

	ok, err := b.Initialize(argv)
	if !ok {
		_ = b.Shutdown()
		return err
	}

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("mount watcher unavailable, checkpointing every interval",
				log.Mount(cfg.MountPoint), log.Err(err))
			watcher.MarkDirty()
		}
		defer watcher.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if cfg.ControlAddr != "" {
		srv := control.NewServer(cfg.ControlAddr, control.NewHandler(b, m.Handler(), logger), logger)
		g.Go(func() error {
			if err := srv.Run(serverCtx); err != nil {
				return fmt.Errorf("control server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stopServer()
		return framebridge.Drive(gctx, b, host.NewTickerScheduler(cfg.FPS))
	})

	err = g.Wait()
	_ = b.Shutdown()
	logger.Info("framebridge exiting",
		log.State(b.State().String()),
		log.Uint64("frames", b.FrameCount()),
	)
	return err
}

// newBackend builds the configured durable store and its cleanup.
func newBackend(cfg cliconfig.Config) (storage.Backend, func(), error) {
	switch cfg.Storage {
	case cliconfig.StorageDir:
		return storage.NewDirBackend(cfg.PersistDir), func() {}, nil
	case cliconfig.StorageRedis:
		var opts []storage.RedisOption
		if cfg.RedisPrefix != "" {
			opts = append(opts, storage.WithPrefix(cfg.RedisPrefix))
		}
		rb := storage.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		return rb, func() { _ = rb.Close() }, nil
	case cliconfig.StorageNone:
		return storage.NopBackend{}, func() {}, nil
	default:
		return nil, nil, errors.New("unknown storage " + cfg.Storage)
	}
}

// waitSync gives outstanding exports a bounded chance to finish before exit.
func waitSync(s *storage.Synchronizer, timeout time.Duration, logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		logger.Warn("exiting with storage operations in flight", log.Err(err))
	}
}
