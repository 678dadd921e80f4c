package markov

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// WordID identifies a word by its rank in the sorted vocabulary.
type WordID uint16

// MaxVocabulary is the largest number of unique words a Dictionary can hold.
const MaxVocabulary = math.MaxUint16

// Dictionary is an immutable, bidirectional mapping between words and their
// WordIDs. IDs are assigned by the ordinal (byte-wise, case-sensitive) sort
// order of the words.
type Dictionary struct {
	words []string
	index map[string]WordID // nil when binary search is used
}

// DictionaryOption configures a Dictionary.
type DictionaryOption func(*dictionaryOptions)

type dictionaryOptions struct {
	binarySearch bool
}

// WithBinarySearch makes ID lookups binary search the sorted word list instead
// of building a hash index. Lookups are O(log n) but use no extra memory.
func WithBinarySearch() DictionaryOption {
	return func(o *dictionaryOptions) { o.binarySearch = true }
}

// NewDictionary sorts and deduplicates words and assigns each its sorted
// position as WordID. The input slice is not modified.
func NewDictionary(words []string, opts ...DictionaryOption) (*Dictionary, error) {
	sorted := slices.Clone(words)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return newSortedDictionary(sorted, opts...)
}

// newSortedDictionary trusts that words are already sorted and unique.
func newSortedDictionary(words []string, opts ...DictionaryOption) (*Dictionary, error) {
	if len(words) > MaxVocabulary {
		return nil, fmt.Errorf("%w: %d unique words, limit is %d", ErrVocabularyTooLarge, len(words), MaxVocabulary)
	}

	var options dictionaryOptions
	for _, opt := range opts {
		opt(&options)
	}

	d := &Dictionary{words: words}
	if !options.binarySearch {
		d.index = make(map[string]WordID, len(words))
		for i, w := range words {
			d.index[w] = WordID(i)
		}
	}
	return d, nil
}

// Len returns the number of unique words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Word returns the word for id.
func (d *Dictionary) Word(id WordID) (string, error) {
	if int(id) >= len(d.words) {
		return "", fmt.Errorf("%w: %d (size %d)", ErrIDOutOfRange, id, len(d.words))
	}
	return d.words[id], nil
}

// ID returns the WordID of word. The lookup is exact and case-sensitive.
func (d *Dictionary) ID(word string) (WordID, bool) {
	if d.index != nil {
		id, ok := d.index[word]
		return id, ok
	}
	i := sort.SearchStrings(d.words, word)
	if i < len(d.words) && d.words[i] == word {
		return WordID(i), true
	}
	return 0, false
}

// Words returns a copy of the vocabulary in WordID order.
func (d *Dictionary) Words() []string {
	return slices.Clone(d.words)
}
