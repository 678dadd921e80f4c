package markov

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Transition is one possible next word after a history, with its observed
// probability Numerator/Denominator. Every Transition of one Table shares the
// same Denominator.
type Transition struct {
	Target      WordID
	Numerator   uint32
	Denominator uint32
}

func (t Transition) String() string {
	return fmt.Sprintf("%d:%d/%d", t.Target, t.Numerator, t.Denominator)
}

// Table is the ordered set of transitions out of one history. A Table is
// filled either by a Recorder, which keeps it sorted by descending numerator
// then ascending target, or by a Restorer, which keeps insertion order.
// Once handed to a Graph it is read-only.
type Table struct {
	transitions []Transition
}

var emptyTable = &Table{}

// Len returns the number of distinct targets.
func (t *Table) Len() int {
	return len(t.transitions)
}

// At returns the i-th transition in table order.
func (t *Table) At(i int) Transition {
	return t.transitions[i]
}

// All iterates the transitions in table order.
func (t *Table) All() iter.Seq[Transition] {
	return func(yield func(Transition) bool) {
		for _, tr := range t.transitions {
			if !yield(tr) {
				return
			}
		}
	}
}

// Transitions returns a copy of the transitions in table order.
func (t *Table) Transitions() []Transition {
	return slices.Clone(t.transitions)
}

// Observations returns the shared denominator, the number of times the
// history was followed by any word. It is 0 for an empty table.
func (t *Table) Observations() uint32 {
	if len(t.transitions) == 0 {
		return 0
	}
	return t.transitions[0].Denominator
}

func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("Table[")
	for i, tr := range t.transitions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tr.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// Recorder builds a Table incrementally from observations while compiling.
type Recorder struct {
	table *Table
}

// NewRecorder returns a Recorder over a new, empty Table.
func NewRecorder() *Recorder {
	return &Recorder{table: &Table{}}
}

// Record notes one more occurrence of target after the history. All
// denominators advance by one, target's numerator advances by one (or a new
// transition 1/denominator is added), and the table is re-sorted.
func (r *Recorder) Record(target WordID) {
	ts := r.table.transitions
	denominator := r.table.Observations() + 1

	seen := false
	for i := range ts {
		ts[i].Denominator = denominator
		if ts[i].Target == target {
			ts[i].Numerator++
			seen = true
		}
	}
	if !seen {
		ts = append(ts, Transition{Target: target, Numerator: 1, Denominator: denominator})
	}

	slices.SortFunc(ts, compareTransitions)
	r.table.transitions = ts
}

// Table returns the table being recorded.
func (r *Recorder) Table() *Table {
	return r.table
}

// compareTransitions orders by numerator descending, then target ascending.
func compareTransitions(a, b Transition) int {
	switch {
	case a.Numerator > b.Numerator:
		return -1
	case a.Numerator < b.Numerator:
		return 1
	case a.Target < b.Target:
		return -1
	case a.Target > b.Target:
		return 1
	}
	return 0
}

// Restorer rebuilds a persisted Table verbatim, in the order transitions
// are appended.
type Restorer struct {
	table *Table
}

// NewRestorer returns a Restorer expecting about n transitions.
func NewRestorer(n int) *Restorer {
	return &Restorer{table: &Table{transitions: make([]Transition, 0, n)}}
}

// Append adds a transition after all previously appended ones, without any
// recalculation. last marks the table complete so its storage is trimmed.
func (r *Restorer) Append(target WordID, numerator, denominator uint32, last bool) {
	r.table.transitions = append(r.table.transitions, Transition{
		Target:      target,
		Numerator:   numerator,
		Denominator: denominator,
	})
	if last {
		r.table.transitions = slices.Clip(r.table.transitions)
	}
}

// Table returns the table being restored.
func (r *Restorer) Table() *Table {
	return r.table
}
