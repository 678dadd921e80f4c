package markov

import (
	"context"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	tongueTwister = "She sells sea shells by the sea shore."
	revelation    = "And there came out of the smoke locusts upon the earth and unto them was given power, " +
		"as the scorpions of the earth have power."
	marianne = `A dance!" cried Marianne. "Impossible! Who is to dance?"`
)

// scriptedSource replays a fixed list of draws and fails the test if a draw
// is out of range or the script runs out.
type scriptedSource struct {
	t     testing.TB
	draws []int
	calls []int // n of every IntN call
}

func newScriptedSource(t testing.TB, draws ...int) *scriptedSource {
	return &scriptedSource{t: t, draws: draws}
}

func (s *scriptedSource) IntN(n int) int {
	s.t.Helper()
	s.calls = append(s.calls, n)
	if len(s.draws) == 0 {
		s.t.Fatalf("scripted source exhausted after %d draws", len(s.calls)-1)
	}
	r := s.draws[0]
	s.draws = s.draws[1:]
	if r < 0 || r >= n {
		s.t.Fatalf("scripted draw %d is outside [0, %d)", r, n)
	}
	return r
}

// constSource always returns the same draw, clamped to the valid range.
type constSource int

func (c constSource) IntN(n int) int {
	return min(int(c), n-1)
}

// compileText compiles text at order with the default tokenizer.
func compileText(t testing.TB, text string, order int) *Graph {
	t.Helper()
	g, err := NewCompiler(NewDefaultTokenizer()).Compile(context.Background(), strings.NewReader(text), order)
	require.NoError(t, err)
	return g
}

// historyOf builds the history for words, failing the test if any is unknown.
func historyOf(t testing.TB, g *Graph, words ...string) History {
	t.Helper()
	h, ok := g.HistoryFor(words...)
	require.Truef(t, ok, "history %q not in graph", words)
	return h
}

// targetWords resolves the targets of a table, in table order.
func targetWords(t testing.TB, g *Graph, table *Table) []string {
	t.Helper()
	var words []string
	for tr := range table.All() {
		w, err := g.Dictionary().Word(tr.Target)
		require.NoError(t, err)
		words = append(words, w)
	}
	return words
}

// requireGraphsEqual compares two graphs by content, including table order.
func requireGraphsEqual(t testing.TB, want, got *Graph) {
	t.Helper()
	require.Equal(t, want.Order(), got.Order(), "order")
	require.Equal(t, want.Dictionary().Words(), got.Dictionary().Words(), "vocabulary")
	require.Equal(t, want.Histories(), got.Histories(), "histories")
	for _, h := range want.Histories() {
		require.Equal(t, want.Transitions(h).Transitions(), got.Transitions(h).Transitions(), "history %s", h)
	}
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
