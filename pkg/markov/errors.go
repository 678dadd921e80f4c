package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrVocabularyTooLarge is returned when a corpus holds more unique words
	// than a WordID can address.
	ErrVocabularyTooLarge = errors.New("markov: vocabulary too large")
	// ErrIDOutOfRange is returned when a WordID is not in the dictionary.
	ErrIDOutOfRange = errors.New("markov: word id out of range")
	// ErrInvalidOrder is returned when a graph order is below 1.
	ErrInvalidOrder = errors.New("markov: order must be at least 1")
	// ErrInvalidWidth is returned for a count width other than 8 or 16 bits.
	ErrInvalidWidth = errors.New("markov: unsupported count width")
	// ErrCountOverflow is returned when a numerator or denominator does not
	// fit the codec's count width.
	ErrCountOverflow = errors.New("markov: count does not fit width")
	// ErrWordTooLong is returned when a word or history key is longer than a
	// 16-bit length prefix allows.
	ErrWordTooLong = errors.New("markov: string too long for length prefix")
	// ErrMalformed is the root of every decoding failure.
	ErrMalformed = errors.New("markov: malformed graph data")
)

// DecodeError describes where decoding of a persisted graph failed.
type DecodeError struct {
	Offset int64  // byte offset at which the failing field starts
	Field  string // name of the field being read
	Err    error  // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("markov: malformed graph data: %s at offset %d", e.Field, e.Offset)
	}
	return fmt.Sprintf("markov: malformed graph data: %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

// Unwrap exposes both ErrMalformed and the underlying cause to errors.Is.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}
