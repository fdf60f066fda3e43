package core

import "sort"

// IDSet is a set of task ids, used for the expanded rows of a view.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Remove deletes id.
func (s IDSet) Remove(id string) { delete(s, id) }

// Toggle flips membership of id and returns the new state.
func (s IDSet) Toggle(id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Slice returns the ids in sorted order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DefaultExpanded returns every row that has at least one child, which shows
// the whole tree.
func DefaultExpanded(rows []FlatRow) IDSet {
	s := make(IDSet)
	for _, r := range rows {
		if r.HasChildren {
			s.Add(r.Task.ID)
		}
	}
	return s
}

// ComputeVisible filters rows from Flatten down to the ones currently shown.
// A row is visible when it is a root, or when its parent is visible and the
// parent's id is in expanded. Relative order is preserved.
func ComputeVisible(rows []FlatRow, expanded IDSet) []FlatRow {
	visible := make(map[string]bool, len(rows))
	out := make([]FlatRow, 0, len(rows))
	for _, r := range rows {
		shown := r.ParentID == "" || (visible[r.ParentID] && expanded.Has(r.ParentID))
		visible[r.Task.ID] = shown
		if shown {
			out = append(out, r)
		}
	}
	return out
}
