// Command markovc compiles text files into N-gram Markov graphs and uses them
// to generate parody text, either from the command line or over HTTP.
//
// Usage:
//
//	markovc compile [flags] <file>...
//	markovc generate [flags] <graph.raw>
//	markovc stats [flags] <graph.raw>...
//	markovc serve [flags]
//	markovc version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CTAG07/parody/pkg/markov"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = `usage: markovc <command> [flags] [args]

commands:
  compile   compile text files into graphs of every configured order
  generate  write a parody generated from a compiled graph
  stats     print the statistics of compiled graphs
  serve     serve parodies of every graph in the output directory over HTTP
  version   print version information

run "markovc <command> -h" for the flags of a command`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			stop()
			os.Exit(2)
		}
		exitf(stop, "markovc: %v", err)
	}
}

func exitf(stop context.CancelFunc, format string, args ...any) {
	stop()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// run dispatches one markovc command. It is separate from main so it can be
// driven from tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return flag.ErrHelp
	}

	command := args[0]
	switch command {
	case "version":
		_, err := fmt.Fprintf(stdout, "markovc %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return err
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	case "compile", "generate", "stats", "serve":
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	fs := flag.NewFlagSet("markovc "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, rest, err := ParseConfig(fs, args[1:])
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	codec, err := markov.NewCodec(markov.Width(cfg.CountWidth))
	if err != nil {
		return err
	}
	codec.SetLogger(logger)

	switch command {
	case "compile":
		return runCompile(ctx, cfg, logger, codec, rest)
	case "generate":
		return runGenerate(ctx, cfg, logger, codec, rest, stdout)
	case "stats":
		return runStats(ctx, logger, codec, rest, stdout)
	default:
		return runServe(ctx, cfg, logger, codec)
	}
}

// newTokenizer builds the tokenizer described by cfg.
func newTokenizer(cfg *Config) *markov.DefaultTokenizer {
	return markov.NewDefaultTokenizer(markov.WithAbbreviations(cfg.Abbreviations...))
}

// newSource returns a seeded source, or nil for the global generator when the
// configured seed is 0.
func newSource(seed uint64) markov.Source {
	if seed == 0 {
		return nil
	}
	return markov.NewSeededSource(seed)
}
