package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/parody/pkg/markov"
	"github.com/CTAG07/parody/pkg/sqlstore"
)

// sqliteSuffix marks graph files written by the SQLite store.
const sqliteSuffix = ".sqlite.db"

// loadGraph reads a compiled graph, from SQLite if path has sqliteSuffix and
// with codec otherwise.
func loadGraph(ctx context.Context, logger *slog.Logger, codec *markov.Codec, path string) (*markov.Graph, error) {
	var (
		g     *markov.Graph
		found bool
		err   error
	)
	if strings.HasSuffix(path, sqliteSuffix) {
		g, found, err = loadSQLite(ctx, logger, path)
	} else {
		g, found, err = codec.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("graph %q not found", path)
	}
	return g, nil
}

// loadSQLite reads the graph stored in the database at path. A missing file
// reports false without creating it.
func loadSQLite(ctx context.Context, logger *slog.Logger, path string) (*markov.Graph, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := initDB(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err = sqlstore.SetupSchema(db); err != nil {
		return nil, false, err
	}
	store, err := sqlstore.New(db)
	if err != nil {
		return nil, false, fmt.Errorf("failed to prepare statements: %w", err)
	}
	defer store.Close()
	store.SetLogger(logger)

	return store.Load(ctx)
}

// startHistory resolves the configured start words, or picks a random history.
func startHistory(g *markov.Graph, start string, src markov.Source) (markov.History, error) {
	if start == "" {
		h, ok := g.RandomHistory(src)
		if !ok {
			return "", errors.New("graph has no histories to start from")
		}
		return h, nil
	}
	h, ok := g.HistoryFor(strings.Fields(start)...)
	if !ok {
		return "", fmt.Errorf("start %q is not a known history of %d words", start, g.Order())
	}
	return h, nil
}

// runGenerate streams a parody from one graph to out.
func runGenerate(ctx context.Context, cfg *Config, logger *slog.Logger, codec *markov.Codec, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("generate needs exactly one graph file")
	}
	g, err := loadGraph(ctx, logger, codec, args[0])
	if err != nil {
		return err
	}

	src := newSource(cfg.Seed)
	start, err := startHistory(g, cfg.Start, src)
	if err != nil {
		return err
	}

	walker := markov.NewWalker(g, start, src)
	walker.SetLogger(logger)
	tokenizer := newTokenizer(cfg)

	w := bufio.NewWriter(out)
	prev := ""
	for word := range walker.Stream(ctx, cfg.ParodyWords) {
		if prev != "" {
			_, _ = w.WriteString(tokenizer.Separator(prev, word))
		}
		_, _ = w.WriteString(word)
		prev = word
	}
	_ = w.WriteByte('\n')
	if err = w.Flush(); err != nil {
		return err
	}
	return ctx.Err()
}

// runStats prints the statistics of each graph as one JSON object per line.
func runStats(ctx context.Context, logger *slog.Logger, codec *markov.Codec, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("stats needs at least one graph file")
	}
	encoder := json.NewEncoder(out)
	for _, path := range args {
		g, err := loadGraph(ctx, logger, codec, path)
		if err != nil {
			return err
		}
		err = encoder.Encode(struct {
			Graph string `json:"graph"`
			markov.Stats
		}{Graph: filepath.Base(path), Stats: g.Stats()})
		if err != nil {
			return err
		}
	}
	return nil
}
