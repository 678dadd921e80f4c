package markov

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Compiler turns text into Graphs. It holds the tokenizer used to read input
// and a logger, which discards everything by default.
type Compiler struct {
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewCompiler creates a Compiler reading text with tokenizer.
func NewCompiler(tokenizer Tokenizer) *Compiler {
	return &Compiler{
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Compiler. By default, all logs are discarded.
func (c *Compiler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Tokenize reads every token from r.
func (c *Compiler) Tokenize(r io.Reader) ([]string, error) {
	words, sentences, err := ReadTokens(c.tokenizer.NewStream(r))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Text tokenized",
		slog.Int("tokens", len(words)),
		slog.Int("sentences", sentences),
	)
	return words, nil
}

// Compile tokenizes r and compiles a graph of the given order from it.
func (c *Compiler) Compile(ctx context.Context, r io.Reader, order int) (*Graph, error) {
	words, err := c.Tokenize(r)
	if err != nil {
		return nil, err
	}
	return c.CompileTokens(ctx, words, order)
}

// CompileTokens builds a Graph of the given order from an already tokenized
// text. The first pass collects the vocabulary; the second slides a window of
// order IDs over the text and records, for each full window, the word that
// follows it. tokens is only read.
func (c *Compiler) CompileTokens(ctx context.Context, tokens []string, order int) (*Graph, error) {
	// ctxCheckInterval is how many tokens are processed between context checks.
	const ctxCheckInterval = 4096

	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	start := time.Now()

	dict, err := NewDictionary(tokens)
	if err != nil {
		return nil, err
	}

	recorders := make(map[History]*Recorder)
	window := make([]WordID, 0, order)

	for i, word := range tokens {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		id, ok := dict.ID(word)
		if !ok {
			return nil, fmt.Errorf("word %q missing from dictionary", word)
		}

		if len(window) == order {
			history := NewHistory(window...)
			rec, ok := recorders[history]
			if !ok {
				rec = NewRecorder()
				recorders[history] = rec
			}
			rec.Record(id)

			copy(window, window[1:])
			window = window[:order-1]
		}
		window = append(window, id)
	}

	tables := make(map[History]*Table, len(recorders))
	for h, rec := range recorders {
		tables[h] = rec.Table()
	}

	graph, err := NewGraph(dict, order, tables)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Compilation completed",
		slog.Int("order", order),
		slog.Int("tokens", len(tokens)),
		slog.Int("unique_words", dict.Len()),
		slog.Int("histories", graph.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return graph, nil
}

// CompileOrders compiles one graph per order concurrently from the same
// tokens. Each graph gets its own dictionary. Results are in orders' order.
func (c *Compiler) CompileOrders(ctx context.Context, tokens []string, orders []int) ([]*Graph, error) {
	graphs := make([]*Graph, len(orders))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, order := range orders {
		eg.Go(func() error {
			g, err := c.CompileTokens(egCtx, tokens, order)
			if err != nil {
				return fmt.Errorf("compile order %d: %w", order, err)
			}
			graphs[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}
