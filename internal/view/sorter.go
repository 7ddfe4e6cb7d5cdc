package view

import "strings"

// Sorter holds the header-click sort state of one session. Clicking the
// same column again flips the direction; a new column, or a new tab,
// starts ascending.
type Sorter struct {
	tab    string
	key    SortKey
	active bool
}

// Toggle records a click on column of tab and returns the key to sort by.
func (s *Sorter) Toggle(tab, column string) SortKey {
	if s.active && s.tab == tab && strings.EqualFold(s.key.Column, column) {
		s.key.Ascending = !s.key.Ascending
		return s.key
	}
	s.tab = tab
	s.key = SortKey{Column: column, Ascending: true}
	s.active = true
	return s.key
}

// Current returns the active key for tab, if any.
func (s *Sorter) Current(tab string) (SortKey, bool) {
	if !s.active || s.tab != tab {
		return SortKey{}, false
	}
	return s.key, true
}

// Reset forgets the sort state.
func (s *Sorter) Reset() {
	*s = Sorter{}
}

// Set makes key the active sort of tab, as if its column had been clicked
// into that direction.
func (s *Sorter) Set(tab string, key SortKey) {
	*s = Sorter{tab: tab, key: key, active: true}
}
