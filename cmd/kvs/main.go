// Command kvs is the command-line front end for the kvs embeddable
// key-value store. It resolves the store directory (the current working
// directory, unless --dir overrides it) and translates one subcommand
// invocation into a single engine call.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lukeojones/kvs/internal/cli"
	"github.com/lukeojones/kvs/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs: %v\n", err)
		cfg = config.Default()
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))

	os.Exit(cli.Run(os.Args[1:]))
}
