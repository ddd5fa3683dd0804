package bridge

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Args are the bridge-level options found in argv. Everything else in argv
// belongs to the embedded application, which receives argv unchanged.
type Args struct {
	Program    string
	MountPoint string
	Help       bool
}

func newFlagSet(program string) (*pflag.FlagSet, *Args) {
	a := &Args{Program: program}
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVarP(&a.Help, "help", "h", false, "print usage and exit")
	fs.StringVar(&a.MountPoint, "mount", "", "persistence mount point (overrides configuration)")
	return fs, a
}

// ParseArgs parses argv, whose first element is the program name.
// Unknown flags are left for the application.
func ParseArgs(argv []string) (Args, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Args{}, errors.New("missing program name")
	}
	fs, a := newFlagSet(filepath.Base(argv[0]))
	if err := fs.Parse(bridgeArgs(argv[1:])); err != nil {
		return Args{}, err
	}
	if fs.Changed("mount") && a.MountPoint == "" {
		return Args{}, errors.New("--mount needs a non-empty path")
	}
	return *a, nil
}

// bridgeArgs picks the bridge's own flags out of args, stopping at "--".
func bridgeArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return out
		case a == "-h" || a == "--help":
			out = append(out, a)
		case a == "--mount":
			out = append(out, a)
			if i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
		case strings.HasPrefix(a, "--mount="):
			out = append(out, a)
		}
	}
	return out
}

// Usage writes the bridge-level usage text for program to w.
func Usage(w io.Writer, program string) {
	fs, _ := newFlagSet(program)
	fmt.Fprintf(w, "Usage: %s [options] [application options]\n\nOptions:\n", program)
	fmt.Fprint(w, fs.FlagUsages())
}
