package markov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	h := NewHistory(12, 7, 65535)

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 6, len(h))
	assert.Equal(t, []WordID{12, 7, 65535}, h.IDs())
	assert.Equal(t, "12 7 65535", h.String())
	assert.Equal(t, History("\x00\x0c\x00\x07\xff\xff"), h)

	shifted := h.Shift(300)
	assert.Equal(t, []WordID{7, 65535, 300}, shifted.IDs())
	assert.Equal(t, []WordID{12, 7, 65535}, h.IDs(), "shift must not modify the receiver")

	assert.Equal(t, NewHistory(1, 2), NewHistory(1, 2))
	assert.NotEqual(t, NewHistory(1, 2), NewHistory(2, 1))
}

func TestHistoryShiftOrderOne(t *testing.T) {
	h := NewHistory(4)
	assert.Equal(t, NewHistory(9), h.Shift(9))
	assert.Equal(t, History(""), History("").Shift(9))
}

func TestParseHistory(t *testing.T) {
	tests := []struct {
		in      string
		want    []WordID
		wantErr bool
	}{
		{in: "12 7", want: []WordID{12, 7}},
		{in: "0", want: []WordID{0}},
		{in: " 3  4 ", want: []WordID{3, 4}},
		{in: "65536", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, err := ParseHistory(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.IDs())
			assert.Equal(t, h, mustParse(t, h.String()))
		})
	}
}

func mustParse(t *testing.T, s string) History {
	t.Helper()
	h, err := ParseHistory(s)
	require.NoError(t, err)
	return h
}

func TestHistoryWords(t *testing.T) {
	d, err := NewDictionary([]string{"sea", "the"})
	require.NoError(t, err)

	words, err := NewHistory(1, 0).Words(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "sea"}, words)

	_, err = NewHistory(1, 2).Words(d)
	assert.ErrorIs(t, err, ErrIDOutOfRange)
}
