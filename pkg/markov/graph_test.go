package markov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphValidation(t *testing.T) {
	dict, err := NewDictionary([]string{"a", "b"})
	require.NoError(t, err)
	table := func(target WordID) *Table {
		rec := NewRecorder()
		rec.Record(target)
		return rec.Table()
	}

	tests := []struct {
		name    string
		order   int
		tables  map[History]*Table
		wantErr error
	}{
		{name: "valid", order: 1, tables: map[History]*Table{NewHistory(0): table(1)}},
		{name: "empty graph", order: 0},
		{name: "zero order with tables", order: 0, tables: map[History]*Table{NewHistory(0): table(1)}, wantErr: ErrInvalidOrder},
		{name: "key too short", order: 2, tables: map[History]*Table{NewHistory(0): table(1)}},
		{name: "odd key", order: 1, tables: map[History]*Table{History("\x00\x00\x00"): table(1)}},
		{name: "history id out of range", order: 1, tables: map[History]*Table{NewHistory(2): table(1)}, wantErr: ErrIDOutOfRange},
		{name: "target out of range", order: 1, tables: map[History]*Table{NewHistory(0): table(2)}, wantErr: ErrIDOutOfRange},
		{name: "empty table", order: 1, tables: map[History]*Table{NewHistory(0): {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(dict, tt.order, tt.tables)
			switch {
			case tt.name == "valid" || tt.name == "empty graph":
				require.NoError(t, err)
				assert.Equal(t, tt.order, g.Order())
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestGraphTransitionsUnknownHistory(t *testing.T) {
	g := compileText(t, tongueTwister, 1)

	table := g.Transitions(NewHistory(999))
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())

	dot := historyOf(t, g, ".")
	assert.Equal(t, 0, g.Transitions(dot).Len(), "the final token has no successor")
}

func TestGraphHistoryFor(t *testing.T) {
	g := compileText(t, "a b c a b d.", 2)

	h, ok := g.HistoryFor("a", "b")
	require.True(t, ok)
	assert.Equal(t, []string{"c", "d"}, targetWords(t, g, g.Transitions(h)))

	_, ok = g.HistoryFor("a")
	assert.False(t, ok, "wrong length")
	_, ok = g.HistoryFor("a", "zebra")
	assert.False(t, ok, "unknown word")
}

func TestGraphHistoriesSorted(t *testing.T) {
	g := compileText(t, revelation, 2)
	histories := g.Histories()
	require.Len(t, histories, g.Len())
	for i := 1; i < len(histories); i++ {
		assert.Less(t, histories[i-1], histories[i])
	}
}

func TestGraphRandomHistory(t *testing.T) {
	g := compileText(t, tongueTwister, 1)

	src := newScriptedSource(t, 0)
	h, ok := g.RandomHistory(src)
	require.True(t, ok)
	assert.Equal(t, g.Histories()[0], h)
	assert.Equal(t, []int{g.Len()}, src.calls)

	h, ok = g.RandomHistory(nil)
	require.True(t, ok)
	assert.Positive(t, g.Transitions(h).Len())

	empty, err := NewGraph(&Dictionary{}, 0, nil)
	require.NoError(t, err)
	_, ok = empty.RandomHistory(nil)
	assert.False(t, ok)
}

func TestGraphStats(t *testing.T) {
	g := compileText(t, tongueTwister, 1)
	s := g.Stats()

	// She sells sea shells by the sea shore .
	assert.Equal(t, Stats{
		Order:        1,
		Words:        8,
		Histories:    7,
		Transitions:  8,
		Observations: 8,
		MaxTargets:   2,
		AvgTargets:   8.0 / 7.0,
	}, s)
}
