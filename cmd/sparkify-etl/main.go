// Command sparkify-etl creates the Sparkify warehouse tables, loads song
// metadata and event logs into them, and serves analytics over the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/justestif/sparkify-etl/internal/config"
	"github.com/justestif/sparkify-etl/internal/logging"
)

var version = "dev"

const usage = `Usage: sparkify-etl [-config file.yaml] <command> [flags]

Commands:
  create-tables   drop and create the warehouse tables
  etl             load song metadata, then event logs
  serve           serve the analytics API
  version         print the version and exit
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("sparkify-etl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", os.Getenv("SPARKIFY_CONFIG"), "path to YAML config file")

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}
	command, commandArgs := global.Arg(0), global.Args()[1:]

	if command == "version" {
		fmt.Fprintf(stdout, "sparkify-etl %s\n", version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	switch command {
	case "create-tables":
		return runCreateTables(ctx, cfg, log, commandArgs)
	case "etl":
		return runETL(ctx, cfg, log, commandArgs, stdout)
	case "serve":
		return runServe(ctx, cfg, log, commandArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
