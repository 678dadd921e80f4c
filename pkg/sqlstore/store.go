// Package sqlstore persists a markov.Graph in a relational database using
// three tables: words, histories and transitions. It works with any
// database/sql SQLite driver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/CTAG07/parody/pkg/markov"
)

// SetupSchema creates the tables used by a Store. It is idempotent and safe
// to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaWords = `
CREATE TABLE IF NOT EXISTS words (
    id INTEGER PRIMARY KEY,
    word TEXT NOT NULL UNIQUE
);
`
		schemaHistories = `
CREATE TABLE IF NOT EXISTS histories (
    id INTEGER PRIMARY KEY,
    history TEXT NOT NULL UNIQUE
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    histories_id INTEGER NOT NULL REFERENCES histories(id),
    target_words_id INTEGER NOT NULL REFERENCES words(id),
    sequence INTEGER NOT NULL,
    numerator INTEGER NOT NULL,
    denominator INTEGER NOT NULL,
    UNIQUE (histories_id, sequence)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaWords); err != nil {
		return fmt.Errorf("could not create words schema: %w", err)
	}

	if _, err = tx.Exec(schemaHistories); err != nil {
		return fmt.Errorf("could not create histories schema: %w", err)
	}

	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store saves and loads one graph per database. It holds prepared statements
// and must be closed when no longer needed.
type Store struct {
	db                 *sql.DB
	stmtInsertWord     *sql.Stmt
	stmtInsertHistory  *sql.Stmt
	stmtInsertTransit  *sql.Stmt
	stmtSelectWords    *sql.Stmt
	stmtSelectTransits *sql.Stmt
	stmtCountHistories *sql.Stmt
	stmtCountTransits  *sql.Stmt
	logger             *slog.Logger
}

// New prepares all statements against db. SetupSchema must have been called.
func New(db *sql.DB) (*Store, error) {
	stmtInsertWord, err := db.Prepare(`INSERT INTO words (id, word) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertHistory, err := db.Prepare(`INSERT INTO histories (id, history) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertTransit, err := db.Prepare(`INSERT INTO transitions (histories_id, target_words_id, sequence, numerator, denominator) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtSelectWords, err := db.Prepare(`SELECT id, word FROM words ORDER BY id;`)
	if err != nil {
		return nil, err
	}

	stmtSelectTransits, err := db.Prepare(`
SELECT h.history, t.target_words_id, t.numerator, t.denominator,
       COUNT(*) OVER (PARTITION BY t.histories_id)
FROM transitions t
JOIN histories h ON h.id = t.histories_id
ORDER BY t.histories_id, t.sequence;`)
	if err != nil {
		return nil, err
	}

	stmtCountHistories, err := db.Prepare(`SELECT COUNT(*) FROM histories;`)
	if err != nil {
		return nil, err
	}

	stmtCountTransits, err := db.Prepare(`SELECT COUNT(*) FROM transitions;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                 db,
		stmtInsertWord:     stmtInsertWord,
		stmtInsertHistory:  stmtInsertHistory,
		stmtInsertTransit:  stmtInsertTransit,
		stmtSelectWords:    stmtSelectWords,
		stmtSelectTransits: stmtSelectTransits,
		stmtCountHistories: stmtCountHistories,
		stmtCountTransits:  stmtCountTransits,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtInsertWord.Close()
	_ = s.stmtInsertHistory.Close()
	_ = s.stmtInsertTransit.Close()
	_ = s.stmtSelectWords.Close()
	_ = s.stmtSelectTransits.Close()
	_ = s.stmtCountHistories.Close()
	_ = s.stmtCountTransits.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save replaces the stored graph with g. Words keep their WordID as row id,
// histories are numbered in sorted key order and each transition records its
// position in the table as sequence. The whole write is one transaction on a
// connection with foreign keys enforced.
func (s *Store) Save(ctx context.Context, g *markov.Graph) error {
	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("could not get connection: %w", err)
	}
	defer func(conn *sql.Conn) {
		_ = conn.Close()
	}(conn)

	if _, err = conn.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, table := range []string{"transitions", "histories", "words"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return fmt.Errorf("could not clear %s: %w", table, err)
		}
	}

	stmtInsertWord := tx.StmtContext(ctx, s.stmtInsertWord)
	stmtInsertHistory := tx.StmtContext(ctx, s.stmtInsertHistory)
	stmtInsertTransit := tx.StmtContext(ctx, s.stmtInsertTransit)

	for id, word := range g.Dictionary().Words() {
		if _, err = stmtInsertWord.ExecContext(ctx, id, word); err != nil {
			return fmt.Errorf("sql insert word error for '%s': %w", word, err)
		}
	}

	var transitions int
	for historyID, h := range g.Histories() {
		if _, err = stmtInsertHistory.ExecContext(ctx, historyID, h.String()); err != nil {
			return fmt.Errorf("sql insert history error for '%s': %w", h, err)
		}
		table := g.Transitions(h)
		for seq := 0; seq < table.Len(); seq++ {
			tr := table.At(seq)
			if _, err = stmtInsertTransit.ExecContext(ctx, historyID, int(tr.Target), seq, int64(tr.Numerator), int64(tr.Denominator)); err != nil {
				return fmt.Errorf("sql insert transition error for '%s' -> %d: %w", h, tr.Target, err)
			}
			transitions++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Graph stored",
		slog.Int("words", g.Dictionary().Len()),
		slog.Int("histories", g.Len()),
		slog.Int("transitions", transitions),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Load reads the stored graph. It reports false, with a nil error, if the
// database holds no words. A saved graph with an empty dictionary, such as one
// compiled from empty text, stores no rows and therefore also reports false.
// Transitions are restored in their stored sequence without recalculation.
func (s *Store) Load(ctx context.Context) (*markov.Graph, bool, error) {
	start := time.Now()

	words, err := s.loadWords(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(words) == 0 {
		return nil, false, nil
	}
	dict, err := markov.NewDictionary(words)
	if err != nil {
		return nil, false, err
	}
	if !slices.Equal(dict.Words(), words) {
		return nil, false, fmt.Errorf("%w: words table is not in dictionary order", markov.ErrMalformed)
	}

	rows, err := s.stmtSelectTransits.QueryContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("could not query transitions: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	tables := make(map[markov.History]*markov.Table)
	order := 0
	var (
		current   markov.History
		restorer  *markov.Restorer
		remaining int
	)
	for rows.Next() {
		var (
			historyText            string
			target                 int
			numerator, denominator int64
			count                  int
		)
		if err = rows.Scan(&historyText, &target, &numerator, &denominator, &count); err != nil {
			return nil, false, err
		}

		if restorer == nil || remaining == 0 {
			if current, err = markov.ParseHistory(historyText); err != nil {
				return nil, false, fmt.Errorf("%w: history %q: %w", markov.ErrMalformed, historyText, err)
			}
			if order == 0 {
				order = current.Len()
			}
			restorer = markov.NewRestorer(count)
			remaining = count
		}
		if target < 0 || target > int(^markov.WordID(0)) {
			return nil, false, fmt.Errorf("%w: target %d", markov.ErrIDOutOfRange, target)
		}
		remaining--
		restorer.Append(markov.WordID(target), uint32(numerator), uint32(denominator), remaining == 0)
		if remaining == 0 {
			tables[current] = restorer.Table()
		}
	}
	if err = rows.Err(); err != nil {
		return nil, false, err
	}

	g, err := markov.NewGraph(dict, order, tables)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", markov.ErrMalformed, err)
	}

	s.logger.InfoContext(ctx, "Graph loaded from database",
		slog.Int("order", g.Order()),
		slog.Int("words", dict.Len()),
		slog.Int("histories", g.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return g, true, nil
}

func (s *Store) loadWords(ctx context.Context) ([]string, error) {
	rows, err := s.stmtSelectWords.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not query words: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var words []string
	for rows.Next() {
		var (
			id   int
			word string
		)
		if err = rows.Scan(&id, &word); err != nil {
			return nil, err
		}
		if id != len(words) {
			return nil, fmt.Errorf("%w: word id %d out of sequence", markov.ErrMalformed, id)
		}
		words = append(words, word)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Counts returns the number of stored histories and transitions.
func (s *Store) Counts(ctx context.Context) (histories, transitions int, err error) {
	if err = s.stmtCountHistories.QueryRowContext(ctx).Scan(&histories); err != nil {
		return 0, 0, err
	}
	if err = s.stmtCountTransits.QueryRowContext(ctx).Scan(&transitions); err != nil {
		return 0, 0, err
	}
	return histories, transitions, nil
}
