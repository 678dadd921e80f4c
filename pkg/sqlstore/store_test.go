package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/parody/pkg/markov"
)

const revelation = "And there came out of the smoke locusts upon the earth and unto them was given power, " +
	"as the scorpions of the earth have power."

// setupTestStore creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.sqlite.db")
	db, err := sql.Open(testDriver, dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SetupSchema(db))
	require.NoError(t, SetupSchema(db), "schema setup must be idempotent")

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return db, s
}

func compile(t *testing.T, text string, order int) *markov.Graph {
	t.Helper()
	g, err := markov.NewCompiler(markov.NewDefaultTokenizer()).Compile(context.Background(), strings.NewReader(text), order)
	require.NoError(t, err)
	return g
}

func requireGraphsEqual(t *testing.T, want, got *markov.Graph) {
	t.Helper()
	require.Equal(t, want.Order(), got.Order())
	require.Equal(t, want.Dictionary().Words(), got.Dictionary().Words())
	require.Equal(t, want.Histories(), got.Histories())
	for _, h := range want.Histories() {
		require.Equal(t, want.Transitions(h).Transitions(), got.Transitions(h).Transitions(), "history %s", h)
	}
}

func TestSaveLoad(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	for order := 1; order <= 4; order++ {
		g := compile(t, revelation, order)
		require.NoError(t, s.Save(ctx, g))

		loaded, found, err := s.Load(ctx)
		require.NoError(t, err)
		require.True(t, found)
		requireGraphsEqual(t, g, loaded)

		histories, transitions, err := s.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, g.Len(), histories)
		assert.Equal(t, g.Stats().Transitions, transitions)
	}
}

func TestSaveLoadSmallGraph(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	g := compile(t, "A foo foo bar.", 1)
	require.NoError(t, s.Save(ctx, g))

	// foo -> bar 1/2, foo 1/2, stored in table order.
	rows, err := db.QueryContext(ctx, `
SELECT w.word, t.sequence, t.numerator, t.denominator
FROM transitions t
JOIN histories h ON h.id = t.histories_id
JOIN words w ON w.id = t.target_words_id
WHERE h.history = '3'
ORDER BY t.sequence;`)
	require.NoError(t, err)
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var got []string
	for rows.Next() {
		var word string
		var seq, num, den int
		require.NoError(t, rows.Scan(&word, &seq, &num, &den))
		assert.Equal(t, len(got), seq)
		assert.Equal(t, 1, num)
		assert.Equal(t, 2, den)
		got = append(got, word)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"bar", "foo"}, got)
}

func TestLoadEmpty(t *testing.T) {
	_, s := setupTestStore(t)

	g, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, g)
}

func TestLoadEmptyDictionary(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, compile(t, revelation, 1)))
	require.NoError(t, s.Save(ctx, compile(t, "", 1)))

	g, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found, "an empty dictionary stores no rows")
	assert.Nil(t, g)
}

func TestLoadKeepsStoredOrder(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	for _, stmt := range []string{
		`INSERT INTO words (id, word) VALUES (0, 'a'), (1, 'b'), (2, 'c');`,
		`INSERT INTO histories (id, history) VALUES (0, '0');`,
		`INSERT INTO transitions (histories_id, target_words_id, sequence, numerator, denominator) VALUES (0, 2, 0, 1, 3), (0, 1, 1, 2, 3);`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	g, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []markov.Transition{{Target: 2, Numerator: 1, Denominator: 3}, {Target: 1, Numerator: 2, Denominator: 3}},
		g.Transitions(markov.NewHistory(0)).Transitions())
}

func TestLoadRejectsUnsortedWords(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO words (id, word) VALUES (0, 'b'), (1, 'a');`)
	require.NoError(t, err)

	_, _, err = s.Load(ctx)
	require.ErrorIs(t, err, markov.ErrMalformed)
}

func TestSaveReplaces(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, compile(t, revelation, 2)))
	small := compile(t, "She sells sea shells by the sea shore.", 1)
	require.NoError(t, s.Save(ctx, small))

	loaded, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	requireGraphsEqual(t, small, loaded)
}
