package markov

import (
	"bufio"
	"io"
	"regexp"
	"slices"
	"strings"
)

// DefaultAbbreviations are the words whose trailing period is part of the word.
var DefaultAbbreviations = []string{"Mr.", "Mrs.", "Ms."}

// sentenceEnds are the suffixes split off a word as a terminator token.
var sentenceEnds = []string{".", "?", "!", ".\"", "?\"", "!\""}

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It splits text on whitespace and separates sentence-ending punctuation
// into End-Of-Chain (EOC) tokens, except for known abbreviations.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator         string
	separatorExcRegex *regexp.Regexp
	abbreviations     []string
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens when rendering.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithSeparatorExcRegex sets the regex string to use when deciding whether to add a separator before a token.
// Default: `^[.,!?;:]`
func WithSeparatorExcRegex(splitExcRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.separatorExcRegex = regexp.MustCompile(splitExcRegex)
	}
}

// WithAbbreviations replaces the abbreviation list. Matching is exact and
// case-sensitive.
// Default: DefaultAbbreviations
func WithAbbreviations(words ...string) Option {
	return func(t *DefaultTokenizer) {
		t.abbreviations = slices.Clone(words)
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// This regex checks for characters that don't get a separator put before them.
		separatorExcRegex: regexp.MustCompile(`^[.,!?;:]`),
		abbreviations:     slices.Clone(DefaultAbbreviations),
	}

	for _, opt := range opts {
		opt(t)
	}

	slices.Sort(t.abbreviations)
	return t
}

// Separator Returns the configured separator string.
func (t *DefaultTokenizer) Separator(_, next string) string {
	if t.separatorExcRegex.MatchString(next) {
		return ""
	}
	return t.separator
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStringLen)
	scanner.Split(bufio.ScanWords)
	return &DefaultStreamTokenizer{
		scanner:       scanner,
		abbreviations: t.abbreviations,
	}
}

// sentenceEndOf returns the terminator suffix of word, or "" if word does not
// end a sentence.
func sentenceEndOf(word string, abbreviations []string) string {
	if _, found := slices.BinarySearch(abbreviations, word); found {
		return ""
	}
	end := ""
	for _, suffix := range sentenceEnds {
		if strings.HasSuffix(word, suffix) && len(suffix) > len(end) {
			end = suffix
		}
	}
	return end
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It uses a bufio.Scanner splitting on whitespace.
type DefaultStreamTokenizer struct {
	scanner       *bufio.Scanner
	abbreviations []string
	pending       *Token
}

// Next returns the next token from the stream. It returns a Token and a nil error on
// success. When the stream is exhausted, it returns a nil Token and io.EOF.
// Any other error indicates a problem reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (*Token, error) {
	if s.pending != nil {
		token := s.pending
		s.pending = nil
		return token, nil
	}

	for s.scanner.Scan() {
		word := s.scanner.Text()
		end := sentenceEndOf(word, s.abbreviations)
		if end == "" {
			return &Token{Text: word}, nil
		}

		terminator := &Token{Text: end, EOC: true}
		head := word[:len(word)-len(end)]
		if head == "" { // A bare terminator, e.g. "Wait ."
			return terminator, nil
		}
		s.pending = terminator
		return &Token{Text: head}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
