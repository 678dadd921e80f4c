package markov

import (
	"errors"
	"fmt"
	"io"
)

// Token represents a single tokenized unit of text. EOC marks a sentence
// terminator such as "." or "?\"".
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer is an interface that defines the contract for splitting input text
// into tokens. This allows the compiler to be independent of the specific
// tokenization strategy.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Separator returns the string that should be used to join tokens
	// when rendering generated text, using the previous and current tokens.
	Separator(prev, current string) string
}

// StreamTokenizer is an interface for a stateful tokenizer that processes a
// stream of data, returning one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}

// ReadTokens drains a stream into a slice of token texts, along with the
// number of sentence terminators seen.
func ReadTokens(stream StreamTokenizer) ([]string, int, error) {
	var words []string
	var sentences int
	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return words, sentences, nil
			}
			return nil, 0, fmt.Errorf("tokenizer error: %w", err)
		}
		if token.EOC {
			sentences++
		}
		words = append(words, token.Text)
	}
}
