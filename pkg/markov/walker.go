package markov

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// Source supplies the random draws of a walk. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	// IntN returns a uniformly distributed integer in [0, n).
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NewSeededSource returns a deterministic Source for seed.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Walker produces a parody of the text a Graph was compiled from by walking
// the graph one word at a time. A Walker is not safe for concurrent use, but
// any number of Walkers may share one Graph.
type Walker struct {
	graph   *Graph
	history History
	src     Source
	logger  *slog.Logger
}

// NewWalker starts a walk at history. A nil src uses the global generator.
func NewWalker(graph *Graph, start History, src Source) *Walker {
	if src == nil {
		src = globalSource{}
	}
	return &Walker{
		graph:   graph,
		history: start,
		src:     src,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Walker. By default, all logs are discarded.
func (w *Walker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// History returns the current history window.
func (w *Walker) History() History {
	return w.history
}

// Next picks the word following the current history and advances the window.
// It reports false when the history has no transitions: either it was the
// tail of the compiled text or it was never observed.
//
// The draw is a uniform integer over the number of distinct targets, which is
// then matched against the running sum of numerators. This favours the
// leading (most frequent) targets more strongly than their probabilities.
func (w *Walker) Next() (string, bool) {
	table := w.graph.Transitions(w.history)
	numTargets := table.Len()
	if numTargets == 0 {
		w.logger.Debug("Walk reached a dead end", slog.String("history", w.history.String()))
		return "", false
	}

	chosen := uint64(w.src.IntN(numTargets))
	var cumulative uint64
	for tr := range table.All() {
		cumulative += uint64(tr.Numerator)
		if cumulative > chosen {
			word, err := w.graph.dict.Word(tr.Target)
			if err != nil {
				return "", false
			}
			w.history = w.history.Shift(tr.Target)
			return word, true
		}
	}
	return "", false
}

// Generate walks up to n words. The result is shorter than n if the walk
// reaches a history with no transitions. A non-positive n yields no words.
func (w *Walker) Generate(n int) []string {
	words := make([]string, 0, max(n, 0))
	for range n {
		word, ok := w.Next()
		if !ok {
			break
		}
		words = append(words, word)
	}
	return words
}

// Stream walks up to n words in a new goroutine and sends them on the
// returned channel, which is closed when the walk ends, n words have been
// sent, or ctx is cancelled. The Walker must not be used until the channel
// is closed.
func (w *Walker) Stream(ctx context.Context, n int) <-chan string {
	wordChan := make(chan string)

	go func() {
		defer close(wordChan)
		for range n {
			word, ok := w.Next()
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				w.logger.DebugContext(ctx, "Walk stream cancelled by context")
				return
			case wordChan <- word:
			}
		}
	}()

	return wordChan
}

// Render joins words into text using the tokenizer's separator rules.
func Render(words []string, tokenizer Tokenizer) string {
	var builder strings.Builder
	for i, word := range words {
		if i > 0 {
			builder.WriteString(tokenizer.Separator(words[i-1], word))
		}
		builder.WriteString(word)
	}
	return builder.String()
}
