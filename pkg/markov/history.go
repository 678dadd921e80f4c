package markov

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// History is the key of a transition table: the last Order word IDs, oldest
// first, packed as big-endian uint16 pairs. Two histories are equal exactly
// when their ID sequences are equal, so History can be used as a map key.
type History string

// NewHistory packs ids, oldest first, into a History.
func NewHistory(ids ...WordID) History {
	buf := make([]byte, 0, 2*len(ids))
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint16(buf, uint16(id))
	}
	return History(buf)
}

// Len returns the number of word IDs in the history.
func (h History) Len() int {
	return len(h) / 2
}

// At returns the i-th word ID, 0 being the oldest.
func (h History) At(i int) WordID {
	return WordID(uint16(h[2*i])<<8 | uint16(h[2*i+1]))
}

// IDs unpacks the history.
func (h History) IDs() []WordID {
	ids := make([]WordID, h.Len())
	for i := range ids {
		ids[i] = h.At(i)
	}
	return ids
}

// Shift drops the oldest ID and appends id.
func (h History) Shift(id WordID) History {
	if len(h) == 0 {
		return h
	}
	var b strings.Builder
	b.Grow(len(h))
	b.WriteString(string(h[2:]))
	b.WriteByte(byte(id >> 8))
	b.WriteByte(byte(id))
	return History(b.String())
}

// String renders the IDs space separated, e.g. "12 7".
func (h History) String() string {
	var keyBuf []byte
	for j := 0; j < h.Len(); j++ {
		if j > 0 {
			keyBuf = append(keyBuf, ' ')
		}
		keyBuf = strconv.AppendUint(keyBuf, uint64(h.At(j)), 10)
	}
	return string(keyBuf)
}

// ParseHistory is the inverse of History.String.
func ParseHistory(s string) (History, error) {
	fields := strings.Fields(s)
	ids := make([]WordID, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return "", err
		}
		ids[i] = WordID(n)
	}
	return NewHistory(ids...), nil
}

// Words resolves every ID through d.
func (h History) Words(d *Dictionary) ([]string, error) {
	words := make([]string, h.Len())
	for i := range words {
		w, err := d.Word(h.At(i))
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}
