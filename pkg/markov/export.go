package markov

import (
	"encoding/json"
	"fmt"
	"io"
)

// ExportedGraph is the serializable representation of a Graph, used for
// JSON-based export and import.
type ExportedGraph struct {
	Order      int               `json:"order"`
	Vocabulary []string          `json:"vocabulary"` // index is the word id
	Histories  []ExportedHistory `json:"histories"`
}

// ExportedHistory is one history and its transitions in table order.
type ExportedHistory struct {
	History     []WordID             `json:"history"`
	Transitions []ExportedTransition `json:"transitions"`
}

// ExportedTransition is the serializable representation of a Transition.
type ExportedTransition struct {
	Target      WordID `json:"target"`
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// ExportJSON writes g as indented JSON. Histories are sorted by key.
func ExportJSON(w io.Writer, g *Graph) error {
	exported := ExportedGraph{
		Order:      g.Order(),
		Vocabulary: g.Dictionary().Words(),
		Histories:  make([]ExportedHistory, 0, g.Len()),
	}
	for _, h := range g.Histories() {
		table := g.Transitions(h)
		eh := ExportedHistory{
			History:     h.IDs(),
			Transitions: make([]ExportedTransition, 0, table.Len()),
		}
		for tr := range table.All() {
			eh.Transitions = append(eh.Transitions, ExportedTransition(tr))
		}
		exported.Histories = append(exported.Histories, eh)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportJSON reads a graph written by ExportJSON. Tables are restored in the
// stored transition order, without recalculation.
func ImportJSON(r io.Reader) (*Graph, error) {
	var imported ExportedGraph
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return nil, fmt.Errorf("failed to decode json graph: %w", err)
	}

	for i := 1; i < len(imported.Vocabulary); i++ {
		if imported.Vocabulary[i-1] >= imported.Vocabulary[i] {
			return nil, fmt.Errorf("%w: vocabulary not sorted at %d", ErrMalformed, i)
		}
	}
	dict, err := newSortedDictionary(imported.Vocabulary)
	if err != nil {
		return nil, err
	}

	tables := make(map[History]*Table, len(imported.Histories))
	for _, eh := range imported.Histories {
		h := NewHistory(eh.History...)
		if _, dup := tables[h]; dup {
			return nil, fmt.Errorf("%w: duplicate history %s", ErrMalformed, h)
		}
		restorer := NewRestorer(len(eh.Transitions))
		for i, tr := range eh.Transitions {
			restorer.Append(tr.Target, tr.Numerator, tr.Denominator, i == len(eh.Transitions)-1)
		}
		tables[h] = restorer.Table()
	}

	g, err := NewGraph(dict, imported.Order, tables)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return g, nil
}
