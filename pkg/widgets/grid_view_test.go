// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package widgets

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
	"github.com/wrgl/gridsync/pkg/viewsync"
)

var testColumns = grid.Columns{
	{Field: "name", HeaderName: "Name", Type: grid.ColumnString, Width: 8},
	{Field: "salary", HeaderName: "Salary", Type: grid.ColumnInt, Width: 6},
}

func newScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	screen.SetSize(width, height)
	t.Cleanup(screen.Fini)
	return screen
}

func screenLines(screen tcell.SimulationScreen) []string {
	screen.Show()
	cells, width, height := screen.GetContents()
	lines := make([]string, height)
	for i := 0; i < height; i++ {
		b := []rune{}
		for j := 0; j < width; j++ {
			b = append(b, cells[i*width+j].Runes...)
		}
		lines[i] = strings.TrimRight(string(b), " ")
	}
	return lines
}

func styleAt(screen tcell.SimulationScreen, x, y int) tcell.Style {
	cells, width, _ := screen.GetContents()
	return cells[y*width+x].Style
}

func assertSameColors(t *testing.T, expected, actual tcell.Style) {
	t.Helper()
	fga, bga, _ := expected.Decompose()
	fgb, bgb, _ := actual.Decompose()
	assert.Equal(t, fga, fgb, "foreground")
	assert.Equal(t, bga, bgb, "background")
}

func employee(id, name string, salary int64) grid.Row {
	return grid.Row{ID: grid.RowID(id), Values: map[string]interface{}{"name": name, "salary": salary}}
}

func pressRune(g *GridView, r rune) {
	g.InputHandler()(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone), func(p tview.Primitive) {})
}

func pressKey(g *GridView, key tcell.Key) {
	g.InputHandler()(tcell.NewEventKey(key, 0, tcell.ModNone), func(p tview.Primitive) {})
}

func TestGridViewDraw(t *testing.T) {
	screen := newScreen(t, 30, 5)
	reqs := []grid.FetchRequest{}
	g := NewGridView().SetViewportFunc(func(req grid.FetchRequest) {
		reqs = append(reqs, req)
	})
	_, ok := g.Viewport()
	assert.False(t, ok)
	g.SetRect(0, 0, 30, 5)
	g.SetColumns(testColumns)
	g.SetRowCount(3)
	g.ReplaceRows(0, []grid.Row{
		employee("a", "alice", 30),
		employee("b", "bob", 7),
	})
	g.SetState(viewsync.Ready)
	g.Draw(screen)

	assert.Equal(t, []string{
		"  Name     Salary",
		"1 alice" + strings.Repeat(" ", 8) + "30",
		"2 bob" + strings.Repeat(" ", 11) + "7",
		"3 ░░░░░░░░ ░░░░░░",
		"",
	}, screenLines(screen))
	assertSameColors(t, selectedStyle, styleAt(screen, 2, 1))
	assertSameColors(t, cellStyle, styleAt(screen, 11, 1))
	assertSameColors(t, placeholderStyle, styleAt(screen, 2, 3))
	assert.Equal(t, []grid.FetchRequest{{First: 0, Last: 4, Sort: grid.SortModel{}}}, reqs)

	vp, ok := g.Viewport()
	assert.True(t, ok)
	assert.Equal(t, reqs[0], vp)

	// redrawing the same range does not report it again
	g.Draw(screen)
	assert.Len(t, reqs, 1)
}

func TestGridViewTruncatesByDisplayWidth(t *testing.T) {
	screen := newScreen(t, 20, 3)
	g := NewGridView()
	g.SetRect(0, 0, 20, 3)
	g.SetColumns(testColumns)
	g.SetRowCount(2)
	g.ReplaceRows(0, []grid.Row{
		employee("a", "Bartholomew", 1234567),
		employee("b", "日本語テキスト", 1),
	})
	g.Draw(screen)
	lines := screenLines(screen)
	assert.Equal(t, "1 Barthol… 12345…", lines[1])
	assert.Contains(t, lines[2], "日")
	assert.Contains(t, lines[2], "…")
	assert.NotContains(t, lines[2], "テ")
}

func TestGridViewEmptyStates(t *testing.T) {
	screen := newScreen(t, 30, 5)
	called := false
	g := NewGridView().SetViewportFunc(func(req grid.FetchRequest) {
		called = true
	})
	g.SetRect(0, 0, 30, 5)
	g.Draw(screen)
	lines := screenLines(screen)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "Loading…", strings.TrimSpace(lines[2]))

	g.SetColumns(testColumns)
	g.SetState(viewsync.Ready)
	g.Draw(screen)
	lines = screenLines(screen)
	assert.Equal(t, "", lines[0], "header is hidden while there are no rows")
	assert.Equal(t, "No rows", strings.TrimSpace(lines[2]))
	assert.False(t, called)
}

func TestGridViewNavigation(t *testing.T) {
	screen := newScreen(t, 30, 5)
	var last grid.FetchRequest
	g := NewGridView().SetViewportFunc(func(req grid.FetchRequest) {
		last = req
	})
	g.SetRect(0, 0, 30, 5)
	g.SetColumns(testColumns)
	g.SetRowCount(100)
	g.Draw(screen)
	assert.Equal(t, 0, last.First)
	assert.Equal(t, 4, last.Last)

	for i := 0; i < 5; i++ {
		pressRune(g, 'j')
	}
	g.Draw(screen)
	row, _ := g.GetSelection()
	assert.Equal(t, 5, row)
	assert.Equal(t, 2, last.First)
	assert.Equal(t, 6, last.Last)
	assert.True(t, strings.HasPrefix(screenLines(screen)[1], "  3"))

	pressKey(g, tcell.KeyPgDn)
	g.Draw(screen)
	row, _ = g.GetSelection()
	assert.Equal(t, 9, row)
	assert.Equal(t, 6, last.First)

	pressRune(g, 'G')
	g.Draw(screen)
	row, _ = g.GetSelection()
	assert.Equal(t, 99, row)
	assert.Equal(t, 96, last.First)
	assert.Equal(t, 100, last.Last)
	assert.Equal(t, "100", screenLines(screen)[4][:3])

	pressRune(g, 'k')
	pressRune(g, 'g')
	g.Draw(screen)
	row, _ = g.GetSelection()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, last.First)

	pressRune(g, 'l')
	pressRune(g, 'l')
	_, col := g.GetSelection()
	assert.Equal(t, 1, col)
}

func TestGridViewScrollsToSelectedColumn(t *testing.T) {
	screen := newScreen(t, 20, 3)
	cols := grid.Columns{
		{Field: "a", Width: 8},
		{Field: "b", Width: 8},
		{Field: "c", Width: 8},
	}
	g := NewGridView()
	g.SetRect(0, 0, 20, 3)
	g.SetColumns(cols)
	g.SetRowCount(1)
	g.ReplaceRows(0, []grid.Row{{ID: "x", Values: map[string]interface{}{"a": "1", "b": "2", "c": "3"}}})
	g.Draw(screen)
	assert.Equal(t, "  a        b", screenLines(screen)[0])

	pressRune(g, 'l')
	pressRune(g, 'l')
	g.Draw(screen)
	_, colOff := g.GetOffset()
	assert.Equal(t, 1, colOff)
	assert.Equal(t, "  b        c", screenLines(screen)[0])

	pressRune(g, 'h')
	pressRune(g, 'h')
	g.Draw(screen)
	assert.Equal(t, "  a        b", screenLines(screen)[0])
}

func TestGridViewSortCycle(t *testing.T) {
	screen := newScreen(t, 30, 5)
	var last grid.FetchRequest
	n := 0
	g := NewGridView().SetViewportFunc(func(req grid.FetchRequest) {
		last = req
		n++
	})
	g.SetRect(0, 0, 30, 5)
	g.SetColumns(testColumns)
	g.SetRowCount(3)
	g.Draw(screen)
	assert.Equal(t, 1, n)

	pressRune(g, 's')
	g.Draw(screen)
	assert.Equal(t, 2, n)
	assert.Equal(t, grid.SortModel{{Field: "name", Direction: grid.SortDesc}}, last.Sort)
	assert.Equal(t, "  Name ▼   Salary", screenLines(screen)[0])

	pressRune(g, 's')
	g.Draw(screen)
	assert.Equal(t, grid.SortModel{{Field: "name", Direction: grid.SortAsc}}, last.Sort)
	assert.Equal(t, "  Name ▲   Salary", screenLines(screen)[0])

	pressRune(g, 's')
	g.Draw(screen)
	assert.Empty(t, last.Sort)
	assert.Empty(t, g.GetSort())
	assert.Equal(t, 4, n)

	g.SetSortingOrder([]grid.SortDirection{grid.SortAsc})
	pressRune(g, 'l')
	pressRune(g, 's')
	assert.Equal(t, grid.SortModel{{Field: "salary", Direction: grid.SortAsc}}, g.GetSort())
	pressRune(g, 's')
	assert.Empty(t, g.GetSort())
}

func TestGridViewReplacesStaleDataset(t *testing.T) {
	g := NewGridView()
	g.SetColumns(testColumns)
	g.SetRowCount(10)
	g.ReplaceRows(0, []grid.Row{employee("a", "alice", 1), employee("b", "bob", 2)})
	g.SetState(viewsync.Ready)

	g.SetState(viewsync.Loading)
	_, ok := g.window.At(0)
	assert.True(t, ok, "rows stay visible while the new dataset loads")

	g.ReplaceRows(5, []grid.Row{employee("c", "carol", 3)})
	_, ok = g.window.At(0)
	assert.False(t, ok)
	r, ok := g.window.At(5)
	assert.True(t, ok)
	assert.Equal(t, grid.RowID("c"), r.ID)

	g.SetRowCount(3)
	_, ok = g.window.At(5)
	assert.False(t, ok)
}

func TestGridViewKeepsRowsWhenDatasetSwitchesBack(t *testing.T) {
	g := NewGridView()
	g.SetColumns(testColumns)
	g.SetRowCount(10)
	g.ReplaceRows(0, []grid.Row{employee("a", "alice", 1), employee("b", "bob", 2)})
	g.SetState(viewsync.Ready)

	// sorted then sorted back before the other dataset arrived
	g.SetState(viewsync.Loading)
	g.SetState(viewsync.Refetching)
	g.ReplaceRows(5, []grid.Row{employee("c", "carol", 3)})
	for _, pos := range []int{0, 1, 5} {
		_, ok := g.window.At(pos)
		assert.True(t, ok, "row %d", pos)
	}

	// a failed load of another dataset keeps the shown rows too
	g.SetState(viewsync.Loading)
	g.SetState(viewsync.Ready)
	g.ReplaceRows(6, []grid.Row{employee("d", "dave", 4)})
	for _, pos := range []int{0, 1, 5, 6} {
		_, ok := g.window.At(pos)
		assert.True(t, ok, "row %d", pos)
	}
}

func TestGridViewAsSink(t *testing.T) {
	src := rowsource.NewMemory(testColumns, rowsource.MemoryOptions{})
	rows := make([]grid.Row, 50)
	for i := range rows {
		rows[i] = employee(string(rune('A'+i)), strings.Repeat("x", i%5+1), int64(i))
	}
	src.Load(rows)
	changes := 0
	g := NewGridView().SetChangedFunc(func() { changes++ })
	s := viewsync.New(src, g, viewsync.Options{DebounceWait: -1})
	defer s.Close()
	s.UpdateColumns(testColumns)
	require.NoError(t, s.SetInitialWindow(context.Background(), grid.FetchRequest{First: 0, Last: 3}))
	assert.Greater(t, changes, 0)

	screen := newScreen(t, 30, 5)
	g.SetRect(0, 0, 30, 5)
	g.SetViewportFunc(func(req grid.FetchRequest) {
		require.NoError(t, s.OnViewportChanged(req))
	})
	g.Draw(screen)
	assert.Equal(t, []string{
		"   Name     Salary",
		" 1 x             0",
		" 2 xx            1",
		" 3 xxx           2",
		" 4 ░░░░░░░░ ░░░░░░",
	}, screenLines(screen))

	assert.Eventually(t, func() bool {
		return s.Snapshot().Applied == 2
	}, time.Second, time.Millisecond)
	s.Wait()
	g.Draw(screen)
	assert.Equal(t, " 4 xxxx          3", screenLines(screen)[4])
}
