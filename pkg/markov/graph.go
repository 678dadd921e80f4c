package markov

import (
	"fmt"
	"maps"
	"slices"
)

// Graph is a compiled N-gram model: the transition table of every observed
// history plus the dictionary that gives meaning to the IDs. A Graph is never
// modified after construction and may be shared by any number of Walkers.
type Graph struct {
	order  int
	dict   *Dictionary
	tables map[History]*Table
}

// NewGraph assembles a Graph from its parts. Every history must hold exactly
// order IDs, all IDs must be in dict, and every table must be non-empty.
// The graph takes ownership of tables.
func NewGraph(dict *Dictionary, order int, tables map[History]*Table) (*Graph, error) {
	if order < 1 && len(tables) > 0 {
		return nil, ErrInvalidOrder
	}
	for h, t := range tables {
		if h.Len() != order || len(h)%2 != 0 {
			return nil, fmt.Errorf("history %q has %d ids, graph order is %d", h.String(), h.Len(), order)
		}
		for i := 0; i < h.Len(); i++ {
			if int(h.At(i)) >= dict.Len() {
				return nil, fmt.Errorf("history %q: %w", h.String(), ErrIDOutOfRange)
			}
		}
		if t.Len() == 0 {
			return nil, fmt.Errorf("history %q has no transitions", h.String())
		}
		for tr := range t.All() {
			if int(tr.Target) >= dict.Len() {
				return nil, fmt.Errorf("history %q target %d: %w", h.String(), tr.Target, ErrIDOutOfRange)
			}
		}
	}
	if tables == nil {
		tables = make(map[History]*Table)
	}
	return &Graph{order: order, dict: dict, tables: tables}, nil
}

// Order returns the number of words in each history.
func (g *Graph) Order() int {
	return g.order
}

// Dictionary returns the graph's dictionary.
func (g *Graph) Dictionary() *Dictionary {
	return g.dict
}

// Len returns the number of observed histories.
func (g *Graph) Len() int {
	return len(g.tables)
}

// Transitions returns the table for h. A history that was never observed
// yields an empty table, never nil.
func (g *Graph) Transitions(h History) *Table {
	if t, ok := g.tables[h]; ok {
		return t
	}
	return emptyTable
}

// Histories returns every observed history, sorted by packed key so that
// enumeration (and therefore persistence) is deterministic.
func (g *Graph) Histories() []History {
	return slices.Sorted(maps.Keys(g.tables))
}

// HistoryFor converts words, oldest first, into a history key. It reports
// false if the count does not match the order or a word is unknown.
func (g *Graph) HistoryFor(words ...string) (History, bool) {
	if len(words) != g.order {
		return "", false
	}
	ids := make([]WordID, len(words))
	for i, w := range words {
		id, ok := g.dict.ID(w)
		if !ok {
			return "", false
		}
		ids[i] = id
	}
	return NewHistory(ids...), true
}

// RandomHistory picks one of the observed histories using src, or the global
// generator if src is nil. It reports false for an empty graph.
func (g *Graph) RandomHistory(src Source) (History, bool) {
	if len(g.tables) == 0 {
		return "", false
	}
	if src == nil {
		src = globalSource{}
	}
	histories := g.Histories()
	return histories[src.IntN(len(histories))], true
}

// Stats summarises the shape of a Graph.
type Stats struct {
	Order        int     `json:"order"`
	Words        int     `json:"words"`
	Histories    int     `json:"histories"`
	Transitions  int     `json:"transitions"`  // distinct (history, target) pairs
	Observations uint64  `json:"observations"` // sum of all denominators
	MaxTargets   int     `json:"max_targets"`
	AvgTargets   float64 `json:"avg_targets"`
}

// Stats walks the whole graph and returns its statistics.
func (g *Graph) Stats() Stats {
	s := Stats{
		Order:     g.order,
		Words:     g.dict.Len(),
		Histories: len(g.tables),
	}
	for _, t := range g.tables {
		s.Transitions += t.Len()
		s.Observations += uint64(t.Observations())
		s.MaxTargets = max(s.MaxTargets, t.Len())
	}
	if s.Histories > 0 {
		s.AvgTargets = float64(s.Transitions) / float64(s.Histories)
	}
	return s
}
