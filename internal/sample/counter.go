// Package sample provides a small embedded application that counts ticks
// and keeps its progress in the persistence mount.
package sample

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/bft-labs/framebridge/pkg/embedded"
	"github.com/bft-labs/framebridge/pkg/log"
)

// ProgressFile is the name of the progress file inside the mount.
const ProgressFile = "progress.toml"

// Progress is what the counter persists.
type Progress struct {
	Ticks     uint64    `toml:"ticks"`
	Sessions  int       `toml:"sessions"`
	LastSaved time.Time `toml:"last_saved"`
}

// Counter is an embedded.Application that counts steps.
type Counter struct {
	mount  string
	logger log.Logger
	now    func() time.Time

	failLoad  bool
	failAt    uint64
	quitAt    uint64
	saveEvery uint64

	progress Progress
	steps    uint64
}

var _ embedded.Application = (*Counter)(nil)

// NewCounter creates a counter that persists under mount. An empty mount
// keeps progress in memory only.
func NewCounter(mount string, logger log.Logger) *Counter {
	return &Counter{
		mount:  mount,
		logger: log.OrNoop(logger),
		now:    time.Now,
	}
}

func (c *Counter) flagSet(program string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(program, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.BoolVar(&c.failLoad, "fail-load", false, "fail during load")
	flags.Uint64Var(&c.failAt, "fail-at", 0, "fail on this step (0 = never)")
	flags.Uint64Var(&c.quitAt, "quit-at", 0, "quit after this step (0 = never)")
	flags.Uint64Var(&c.saveEvery, "save-every", 0, "save progress every N steps (0 = only on unload)")
	// Bridge-level flags arrive in argv too.
	flags.String("mount", "", "")
	flags.BoolP("help", "h", false, "")
	return flags
}

// Load parses args and restores progress from the mount.
func (c *Counter) Load(args []string) error {
	program := "counter"
	if len(args) > 0 {
		program = args[0]
		args = args[1:]
	}
	if err := c.flagSet(program).Parse(args); err != nil {
		return fmt.Errorf("counter args: %w", err)
	}
	if c.failLoad {
		return errors.New("counter: load failure requested")
	}

	p, err := c.readProgress()
	if err != nil {
		return err
	}
	p.Sessions++
	c.progress = p

	c.logger.Info("counter loaded",
		log.Uint64("ticks", p.Ticks),
		log.Int("session", p.Sessions),
	)
	return nil
}

// Step counts one tick.
func (c *Counter) Step() error {
	c.steps++
	c.progress.Ticks++

	if c.failAt != 0 && c.steps == c.failAt {
		return fmt.Errorf("counter: failure requested at step %d", c.steps)
	}
	if c.saveEvery != 0 && c.steps%c.saveEvery == 0 {
		if err := c.save(); err != nil {
			return err
		}
	}
	if c.quitAt != 0 && c.steps == c.quitAt {
		return fmt.Errorf("counter reached step %d: %w", c.steps, embedded.ErrQuit)
	}
	return nil
}

// Unload writes the final progress.
func (c *Counter) Unload() error {
	return c.save()
}

// Progress returns the in-memory progress.
func (c *Counter) Progress() Progress { return c.progress }

// Steps returns the number of steps in this session.
func (c *Counter) Steps() uint64 { return c.steps }

func (c *Counter) path() string { return filepath.Join(c.mount, ProgressFile) }

func (c *Counter) readProgress() (Progress, error) {
	var p Progress
	if c.mount == "" {
		return p, nil
	}
	b, err := os.ReadFile(c.path())
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read progress: %w", err)
	}
	if err := toml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse progress: %w", err)
	}
	return p, nil
}

func (c *Counter) save() error {
	if c.mount == "" {
		return nil
	}
	c.progress.LastSaved = c.now().UTC().Truncate(time.Second)
	b, err := toml.Marshal(c.progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.MkdirAll(c.mount, 0o755); err != nil {
		return fmt.Errorf("create mount: %w", err)
	}
	if err := renameio.WriteFile(c.path(), b, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// ReadProgress reads the progress file under dir.
func ReadProgress(dir string) (Progress, error) {
	return NewCounter(dir, nil).readProgress()
}
