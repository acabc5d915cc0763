// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

import (
	"sort"

	"github.com/wrgl/gridsync/pkg/grid"
)

// RowWindow holds the rows materialized for display, keyed by position. A
// row id occupies at most one position.
type RowWindow struct {
	byPos map[int]grid.Row
	byID  map[grid.RowID]int
}

func NewRowWindow() *RowWindow {
	return &RowWindow{
		byPos: map[int]grid.Row{},
		byID:  map[grid.RowID]int{},
	}
}

func (w *RowWindow) Len() int {
	return len(w.byPos)
}

func (w *RowWindow) At(pos int) (grid.Row, bool) {
	r, ok := w.byPos[pos]
	return r, ok
}

func (w *RowWindow) Position(id grid.RowID) (int, bool) {
	pos, ok := w.byID[id]
	return pos, ok
}

func (w *RowWindow) remove(pos int) {
	if r, ok := w.byPos[pos]; ok {
		delete(w.byPos, pos)
		if w.byID[r.ID] == pos {
			delete(w.byID, r.ID)
		}
	}
}

// Replace writes rows at positions first, first+1, ... A row whose id is
// already displayed elsewhere is moved, not duplicated.
func (w *RowWindow) Replace(first int, rows []grid.Row) {
	for i, r := range rows {
		pos := first + i
		if old, ok := w.byID[r.ID]; ok && old != pos {
			w.remove(old)
		}
		w.remove(pos)
		w.byPos[pos] = r
		w.byID[r.ID] = pos
	}
}

func (w *RowWindow) Reset() {
	w.byPos = map[int]grid.Row{}
	w.byID = map[grid.RowID]int{}
}

// Truncate drops rows at or after n
func (w *RowWindow) Truncate(n int) {
	for pos := range w.byPos {
		if pos >= n {
			w.remove(pos)
		}
	}
}

// Evict keeps at most max rows, dropping the ones furthest from [first, last)
func (w *RowWindow) Evict(first, last, max int) {
	if max <= 0 || len(w.byPos) <= max {
		return
	}
	positions := w.Positions()
	dist := func(pos int) int {
		switch {
		case pos < first:
			return first - pos
		case pos >= last:
			return pos - last + 1
		}
		return 0
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return dist(positions[i]) < dist(positions[j])
	})
	for _, pos := range positions[max:] {
		w.remove(pos)
	}
}

// Positions returns materialized positions in ascending order
func (w *RowWindow) Positions() []int {
	sl := make([]int, 0, len(w.byPos))
	for pos := range w.byPos {
		sl = append(sl, pos)
	}
	sort.Ints(sl)
	return sl
}

// Rows returns materialized rows in display order
func (w *RowWindow) Rows() []grid.Row {
	positions := w.Positions()
	rows := make([]grid.Row, len(positions))
	for i, pos := range positions {
		rows[i] = w.byPos[pos]
	}
	return rows
}
