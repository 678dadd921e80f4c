package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CTAG07/parody/pkg/markov"
	"github.com/CTAG07/parody/pkg/sqlstore"
)

// graphPath returns where the graph of input at order is written, without
// extension.
func graphPath(outputDir, input string, order int) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outputDir, fmt.Sprintf("%s_order_%d", base, order))
}

// runCompile compiles every input file at every configured order and writes
// the raw graphs, and optionally a SQLite copy, into the output directory.
func runCompile(ctx context.Context, cfg *Config, logger *slog.Logger, codec *markov.Codec, inputs []string) error {
	if len(inputs) == 0 {
		return errors.New("compile needs at least one input file")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	compiler := markov.NewCompiler(newTokenizer(cfg))
	compiler.SetLogger(logger)

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := compileFile(ctx, cfg, logger, compiler, codec, input); err != nil {
			return fmt.Errorf("compile %q: %w", input, err)
		}
	}
	return nil
}

func compileFile(ctx context.Context, cfg *Config, logger *slog.Logger, compiler *markov.Compiler, codec *markov.Codec, input string) error {
	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	tokens, err := compiler.Tokenize(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	orders := cfg.Orders()
	graphs, err := compiler.CompileOrders(ctx, tokens, orders)
	if err != nil {
		return err
	}

	for i, g := range graphs {
		path := graphPath(cfg.OutputDir, input, orders[i])
		stats := g.Stats()
		logger.Info("Graph statistics",
			slog.String("input", input),
			slog.Int("order", stats.Order),
			slog.Int("words", stats.Words),
			slog.Int("histories", stats.Histories),
			slog.Int("transitions", stats.Transitions),
			slog.Int("max_targets", stats.MaxTargets),
			slog.Float64("avg_targets", stats.AvgTargets),
		)

		if text, ok := exampleParody(g, cfg); ok {
			logger.Info("Example parody", slog.Int("order", g.Order()), slog.String("text", text))
		}

		if err = codec.SaveFile(path+".raw", g); err != nil {
			return err
		}
		if cfg.SQLite {
			if err = saveSQLite(ctx, logger, path+".sqlite.db", g); err != nil {
				return err
			}
		}
	}

	logger.Info("Input compiled",
		slog.String("input", input),
		slog.Int("tokens", len(tokens)),
		slog.Int("graphs", len(graphs)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// exampleParody walks g from a random history for the configured length.
func exampleParody(g *markov.Graph, cfg *Config) (string, bool) {
	src := newSource(cfg.Seed)
	start, ok := g.RandomHistory(src)
	if !ok {
		return "", false
	}
	words := markov.NewWalker(g, start, src).Generate(cfg.ParodyWords)
	return markov.Render(words, newTokenizer(cfg)), true
}

// saveSQLite writes g into the database at path, replacing any stored graph.
func saveSQLite(ctx context.Context, logger *slog.Logger, path string, g *markov.Graph) error {
	db, err := initDB(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "path", path, "error", err)
		}
	}()

	if err = sqlstore.SetupSchema(db); err != nil {
		return err
	}
	store, err := sqlstore.New(db)
	if err != nil {
		return fmt.Errorf("failed to prepare statements: %w", err)
	}
	defer store.Close()
	store.SetLogger(logger.With(slog.String("path", path)))

	return store.Save(ctx, g)
}
