// Package main provides the kernelref CLI.
//
// kernelref computes reference results for device kernel tests, either for a
// single request file (run) or over HTTP (serve).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/kernelref/internal/backend/cpu"
	"github.com/born-ml/kernelref/internal/ops"
	"github.com/born-ml/kernelref/internal/parallel"
)

const version = "v0.1.0-dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("kernelref failed")
		os.Exit(1)
	}
}

// globalFlags are accepted before the command name.
type globalFlags struct {
	logLevel string
	workers  int
	minChunk int
}

func parseGlobal(args []string) (globalFlags, []string, error) {
	var g globalFlags
	fs := flag.NewFlagSet("kernelref", flag.ContinueOnError)
	fs.StringVar(&g.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.IntVar(&g.workers, "workers", runtime.NumCPU(), "Worker goroutines per kernel call")
	fs.IntVar(&g.minChunk, "min-chunk", parallel.DefaultConfig().MinChunkSize, "Minimum work items per goroutine")
	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	return g, fs.Args(), nil
}

func (g globalFlags) parallel() parallel.Config {
	return parallel.Config{
		Enabled:      g.workers > 1,
		NumWorkers:   g.workers,
		MinChunkSize: max(g.minChunk, 1),
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	g, rest, err := parseGlobal(args)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(g.logLevel)
	if err != nil {
		return errors.Wrapf(err, "log level %q", g.logLevel)
	}
	zerolog.SetGlobalLevel(level)

	if len(rest) == 0 {
		usage(stdout)
		return nil
	}

	backend := cpu.New(cpu.WithParallel(g.parallel()))
	switch rest[0] {
	case "version":
		fmt.Fprintf(stdout, "kernelref %s\n", version)
		return nil
	case "ops":
		return listOps(ops.NewRegistry(backend), stdout)
	case "run":
		return runCommand(ctx, rest[1:], backend, stdin, stdout)
	case "serve":
		return serveCommand(ctx, rest[1:], backend)
	default:
		usage(stdout)
		return errors.Errorf("unknown command %q", rest[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "kernelref %s - reference kernels for device tests\n\n", version)
	fmt.Fprintln(w, "Usage: kernelref [-log-level L] [-workers N] [-min-chunk N] <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Compute one request file and print the response")
	fmt.Fprintln(w, "  serve      Serve requests over HTTP")
	fmt.Fprintln(w, "  ops        List operators")
	fmt.Fprintln(w, "  version    Show version")
}

func listOps(registry *ops.Registry, w io.Writer) error {
	for _, typ := range registry.Types() {
		op, err := registry.Lookup(typ)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-34s inputs=%v outputs=%v\n", typ, op.Inputs(), op.Outputs())
	}
	return nil
}
