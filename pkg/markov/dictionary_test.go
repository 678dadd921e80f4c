package markov

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDictionary(t *testing.T) {
	input := []string{"the", "sea", "She", "the", ".", "by", "sea"}
	d, err := NewDictionary(input)
	require.NoError(t, err)

	// Ordinal order: punctuation, then upper case, then lower case.
	assert.Equal(t, []string{".", "She", "by", "sea", "the"}, d.Words())
	assert.Equal(t, 5, d.Len())
	assert.Equal(t, []string{"the", "sea", "She", "the", ".", "by", "sea"}, input, "input must not be modified")

	for i, want := range d.Words() {
		id, ok := d.ID(want)
		require.True(t, ok, want)
		assert.Equal(t, WordID(i), id)

		got, err := d.Word(id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDictionaryLookupStrategies(t *testing.T) {
	words := []string{"zeta", "Alpha", "alpha", "beta", "Beta", "\"Impossible", "!\"", "gamma"}
	hashed, err := NewDictionary(words)
	require.NoError(t, err)
	searched, err := NewDictionary(words, WithBinarySearch())
	require.NoError(t, err)

	require.Equal(t, hashed.Words(), searched.Words())

	probes := append([]string{"", "ALPHA", "delta", "zz", "!"}, words...)
	for _, w := range probes {
		hid, hok := hashed.ID(w)
		sid, sok := searched.ID(w)
		assert.Equal(t, hok, sok, "found %q", w)
		assert.Equal(t, hid, sid, "id of %q", w)
	}
}

func TestDictionaryUnknownWord(t *testing.T) {
	d, err := NewDictionary([]string{"sea"})
	require.NoError(t, err)

	_, ok := d.ID("Sea")
	assert.False(t, ok, "lookup must be case-sensitive")
	_, ok = d.ID("se")
	assert.False(t, ok)
}

func TestDictionaryWordOutOfRange(t *testing.T) {
	d, err := NewDictionary([]string{"a", "b"})
	require.NoError(t, err)

	_, err = d.Word(2)
	require.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestDictionaryEmpty(t *testing.T) {
	d, err := NewDictionary(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	_, err = d.Word(0)
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}

func TestDictionaryVocabularyLimit(t *testing.T) {
	words := make([]string, MaxVocabulary+1)
	for i := range words {
		words[i] = "w" + strconv.Itoa(i)
	}

	_, err := NewDictionary(words)
	require.ErrorIs(t, err, ErrVocabularyTooLarge)

	d, err := NewDictionary(words[:MaxVocabulary])
	require.NoError(t, err)
	assert.Equal(t, MaxVocabulary, d.Len())

	last, err := d.Word(MaxVocabulary - 1)
	require.NoError(t, err)
	id, ok := d.ID(last)
	require.True(t, ok)
	assert.Equal(t, WordID(MaxVocabulary-1), id)
}
