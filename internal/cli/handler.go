// Package cli implements the one-shot kvs command-line front end: it
// parses a subcommand invocation and translates it into engine calls. It
// holds no state of its own beyond the flag set for a single invocation —
// unlike an interactive shell, each process handles exactly one command.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/lukeojones/kvs/internal/config"
	"github.com/lukeojones/kvs/internal/engine"
)

const usage = `Usage: kvs [--dir DIR] <command> [args...]

Commands:
  get <KEY>          print the value for KEY, or "Key not found"
  set <KEY> <VALUE>   store VALUE for KEY
  rm <KEY>            remove KEY, or print "Key not found" and exit non-zero
  stats                print the live key count and generation count
`

// Run parses args (typically os.Args[1:]) and executes the requested
// subcommand, returning the process exit code.
func Run(args []string) int {
	fs := pflag.NewFlagSet("kvs", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.StringP("dir", "C", "", "store directory (default: current working directory)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	storeDir := *dir
	if storeDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
			return 1
		}
		storeDir = wd
	}

	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "get":
		return runGet(storeDir, rest)
	case "set":
		return runSet(storeDir, rest)
	case "rm":
		return runRemove(storeDir, rest)
	case "stats":
		return runStats(storeDir)
	default:
		fmt.Fprintf(os.Stderr, "kvs: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

func openStore(dir string) (*engine.Store, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return nil, false
	}

	st, err := engine.Open(dir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return nil, false
	}
	return st, true
}

func runGet(dir string, args []string) int {
	if len(args) != 1 {
		fmt.Fprint(os.Stderr, "Usage: kvs get <KEY>\n")
		return 2
	}

	st, ok := openStore(dir)
	if !ok {
		return 1
	}
	defer closeStore(st)

	value, err := st.Get(args[0])
	if errors.Is(err, engine.ErrKeyNotFound) {
		fmt.Println("Key not found")
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return 1
	}

	fmt.Println(value)
	return 0
}

func runSet(dir string, args []string) int {
	if len(args) != 2 {
		fmt.Fprint(os.Stderr, "Usage: kvs set <KEY> <VALUE>\n")
		return 2
	}

	st, ok := openStore(dir)
	if !ok {
		return 1
	}
	defer closeStore(st)

	if err := st.Set(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return 1
	}
	return 0
}

func runRemove(dir string, args []string) int {
	if len(args) != 1 {
		fmt.Fprint(os.Stderr, "Usage: kvs rm <KEY>\n")
		return 2
	}

	st, ok := openStore(dir)
	if !ok {
		return 1
	}
	defer closeStore(st)

	err := st.Remove(args[0])
	if errors.Is(err, engine.ErrKeyNotFound) {
		fmt.Println("Key not found")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		return 1
	}
	return 0
}

func runStats(dir string) int {
	if m, ok := engine.ReadManifestStats(dir); ok {
		fmt.Printf("keys=%d generations=%d\n", m.Keys, len(m.Generations))
		return 0
	}

	slog.Debug("cli: no fresh manifest, opening store for a live count", "dir", dir)

	st, ok := openStore(dir)
	if !ok {
		return 1
	}
	defer closeStore(st)

	fmt.Printf("keys=%d generations=%d\n", st.Len(), st.GenerationCount())
	return 0
}

func closeStore(st *engine.Store) {
	if err := st.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "kvs: error closing store: %v\n", err)
	}
}
