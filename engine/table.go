package engine

// Slot is one attack card on the table together with the card covering it,
// if any.
type Slot struct {
	Attack   Card
	Defense  Card
	Defended bool
}

// Table is the in-play trick: an ordered sequence of attack slots. The
// trick is complete when every slot is defended.
type Table struct {
	Slots []Slot
}

// Undefended counts attack cards that are not yet covered.
func (t *Table) Undefended() int {
	n := 0
	for _, s := range t.Slots {
		if !s.Defended {
			n++
		}
	}
	return n
}

// LatestUndefended returns the index of the most recently played undefended
// attack slot, or -1 when everything is covered.
func (t *Table) LatestUndefended() int {
	for i := len(t.Slots) - 1; i >= 0; i-- {
		if !t.Slots[i].Defended {
			return i
		}
	}
	return -1
}

// HasRank reports whether the given rank appears anywhere on the table,
// among attack or defense cards alike.
func (t *Table) HasRank(r Rank) bool {
	for _, s := range t.Slots {
		if s.Attack.Rank == r {
			return true
		}
		if s.Defended && s.Defense.Rank == r {
			return true
		}
	}
	return false
}

// Cards returns every card currently on the table, attacks and defenses.
func (t *Table) Cards() []Card {
	out := make([]Card, 0, len(t.Slots)*2)
	for _, s := range t.Slots {
		out = append(out, s.Attack)
		if s.Defended {
			out = append(out, s.Defense)
		}
	}
	return out
}

// Clear empties the table.
func (t *Table) Clear() { t.Slots = t.Slots[:0] }
