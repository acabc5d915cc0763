// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package widgets

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/viewsync"
)

var (
	columnStyle      = tcell.StyleDefault.Foreground(tcell.ColorAzure).Bold(true)
	rowCountStyle    = tcell.StyleDefault.Foreground(tcell.ColorSlateGray)
	cellStyle        = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	placeholderStyle = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray).Background(tcell.ColorBlack)
	selectedStyle    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorAquaMarine)
	messageStyle     = tcell.StyleDefault.Foreground(tcell.ColorSlateGray)

	widthCond = func() *runewidth.Condition {
		c := runewidth.NewCondition()
		c.EastAsianWidth = false
		return c
	}()
)

const (
	DefaultColumnWidth = 14
	placeholderRune    = '░'
)

// DefaultSortingOrder is the cycle followed by the sort key, starting from
// an unsorted column
var DefaultSortingOrder = []grid.SortDirection{grid.SortDesc, grid.SortAsc}

// GridView draws a lazily populated grid. It implements viewsync.Sink so a
// Synchronizer can push rows into it, and reports its visible range through
// the viewport func whenever that range (or the sort) changes.
type GridView struct {
	*tview.Box

	mu       sync.Mutex
	columns  grid.Columns
	window   *viewsync.RowWindow
	rowCount int
	state    viewsync.State

	// set when a new dataset starts loading. The first rows of the new
	// dataset replace everything that is displayed.
	stale bool

	sort         grid.SortModel
	filter       grid.FilterModel
	sortingOrder []grid.SortDirection

	rowOffset, columnOffset     int
	selectedRow, selectedColumn int
	visibleRows                 int
	defaultWidth                int
	reported                    *grid.FetchRequest

	changed  func()
	viewport func(req grid.FetchRequest)
}

func NewGridView() *GridView {
	return &GridView{
		Box:          tview.NewBox(),
		window:       viewsync.NewRowWindow(),
		sortingOrder: DefaultSortingOrder,
		defaultWidth: DefaultColumnWidth,
	}
}

// SetChangedFunc sets a handler called after any Sink method modified the
// view. It is called from the synchronizer's goroutines and must not block.
func (g *GridView) SetChangedFunc(handler func()) *GridView {
	g.changed = handler
	return g
}

// SetViewportFunc sets a handler called during Draw whenever the visible
// range, sort or filter changed since the last call
func (g *GridView) SetViewportFunc(handler func(req grid.FetchRequest)) *GridView {
	g.viewport = handler
	return g
}

func (g *GridView) SetSortingOrder(order []grid.SortDirection) *GridView {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(order) == 0 {
		order = DefaultSortingOrder
	}
	g.sortingOrder = order
	return g
}

func (g *GridView) SetDefaultColumnWidth(width int) *GridView {
	g.mu.Lock()
	defer g.mu.Unlock()
	if width <= 0 {
		width = DefaultColumnWidth
	}
	g.defaultWidth = width
	return g
}

func (g *GridView) SetFilter(filter grid.FilterModel) *GridView {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = filter
	g.reported = nil
	return g
}

func (g *GridView) SetSort(sort grid.SortModel) *GridView {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sort = sort
	g.reported = nil
	return g
}

func (g *GridView) GetSort() grid.SortModel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append(grid.SortModel{}, g.sort...)
}

// GetSelection returns the selected row position and column index
func (g *GridView) GetSelection() (row, column int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selectedRow, g.selectedColumn
}

func (g *GridView) GetOffset() (row, column int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rowOffset, g.columnOffset
}

// Viewport returns the last viewport request passed to the viewport func
func (g *GridView) Viewport() (grid.FetchRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reported == nil {
		return grid.FetchRequest{}, false
	}
	return *g.reported, true
}

func (g *GridView) notifyChanged() {
	if g.changed != nil {
		g.changed()
	}
}

func (g *GridView) ReplaceRows(first int, rows []grid.Row) {
	g.mu.Lock()
	if g.stale {
		g.window.Reset()
		g.stale = false
	}
	g.window.Replace(first, rows)
	g.mu.Unlock()
	g.notifyChanged()
}

func (g *GridView) SetRowCount(n int) {
	g.mu.Lock()
	g.rowCount = n
	g.window.Truncate(n)
	g.clampSelection()
	g.mu.Unlock()
	g.notifyChanged()
}

func (g *GridView) SetColumns(cols grid.Columns) {
	g.mu.Lock()
	g.columns = append(grid.Columns{}, cols...)
	g.clampSelection()
	g.mu.Unlock()
	g.notifyChanged()
}

func (g *GridView) SetState(state viewsync.State) {
	g.mu.Lock()
	// only a Loading state means the shown rows belong to another dataset
	g.stale = state == viewsync.Loading && g.window.Len() > 0
	g.state = state
	g.mu.Unlock()
	g.notifyChanged()
}

// clampSelection keeps the selection inside the grid. Callers hold g.mu.
func (g *GridView) clampSelection() {
	if g.selectedRow >= g.rowCount {
		g.selectedRow = g.rowCount - 1
	}
	if g.selectedRow < 0 {
		g.selectedRow = 0
	}
	if g.selectedColumn >= len(g.columns) {
		g.selectedColumn = len(g.columns) - 1
	}
	if g.selectedColumn < 0 {
		g.selectedColumn = 0
	}
}

// scrollToSelection adjusts rowOffset so the selected row is visible.
// Callers hold g.mu.
func (g *GridView) scrollToSelection() {
	if g.selectedRow < g.rowOffset {
		g.rowOffset = g.selectedRow
	}
	if g.visibleRows > 0 && g.selectedRow >= g.rowOffset+g.visibleRows {
		g.rowOffset = g.selectedRow - g.visibleRows + 1
	}
	if maxOffset := g.rowCount - g.visibleRows; g.rowOffset > maxOffset {
		g.rowOffset = maxOffset
	}
	if g.rowOffset < 0 {
		g.rowOffset = 0
	}
	if g.selectedColumn < g.columnOffset {
		g.columnOffset = g.selectedColumn
	}
}

func (g *GridView) columnWidth(col grid.Column) int {
	if col.Width > 0 {
		return col.Width
	}
	return g.defaultWidth
}

func (g *GridView) headerText(col grid.Column) string {
	for _, item := range g.sort {
		if item.Field != col.Field {
			continue
		}
		if item.Direction == grid.SortDesc {
			return col.Title() + " ▼"
		}
		return col.Title() + " ▲"
	}
	return col.Title()
}

func isNumeric(col grid.Column) bool {
	return col.Type == grid.ColumnInt || col.Type == grid.ColumnFloat
}

// printCell writes text truncated and padded to exactly width cells
func printCell(screen tcell.Screen, x, y, width int, text string, style tcell.Style, alignRight bool) {
	if width <= 0 {
		return
	}
	text = widthCond.Truncate(text, width, "…")
	if alignRight {
		text = widthCond.FillLeft(text, width)
	} else {
		text = widthCond.FillRight(text, width)
	}
	for _, r := range text {
		w := widthCond.RuneWidth(r)
		if w == 0 {
			continue
		}
		screen.SetContent(x, y, r, nil, style)
		x += w
	}
}

func (g *GridView) drawMessage(screen tcell.Screen, x, y, width, height int) {
	msg := "No rows"
	if g.state == viewsync.Uninitialized || g.state == viewsync.Loading {
		msg = "Loading…"
	}
	w := widthCond.StringWidth(msg)
	if w > width {
		w = width
	}
	printCell(screen, x+(width-w)/2, y+height/2, w, msg, messageStyle, false)
}

// visibleColumns returns the indices of the columns that fit into width,
// scrolling right first if the selected column would not fit. Callers hold
// g.mu.
func (g *GridView) visibleColumns(width int) []int {
	for g.columnOffset < g.selectedColumn {
		used := -1
		for i := g.columnOffset; i <= g.selectedColumn; i++ {
			used += g.columnWidth(g.columns[i]) + 1
		}
		if used <= width {
			break
		}
		g.columnOffset++
	}
	indices := []int{}
	used := 0
	for i := g.columnOffset; i < len(g.columns) && used < width; i++ {
		indices = append(indices, i)
		used += g.columnWidth(g.columns[i]) + 1
	}
	return indices
}

// Draw draws this primitive onto the screen.
func (g *GridView) Draw(screen tcell.Screen) {
	g.Box.DrawForSubclass(screen, g)
	x, y, width, height := g.GetInnerRect()
	req, notify := g.draw(screen, x, y, width, height)
	if notify && g.viewport != nil {
		g.viewport(req)
	}
}

func (g *GridView) draw(screen tcell.Screen, x, y, width, height int) (req grid.FetchRequest, notify bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rowCount == 0 || len(g.columns) == 0 {
		g.visibleRows = 0
		g.drawMessage(screen, x, y, width, height)
		return
	}

	// header
	g.visibleRows = height - 1
	if g.visibleRows < 0 {
		g.visibleRows = 0
	}
	g.clampSelection()
	g.scrollToSelection()
	gutter := len(strconv.Itoa(g.rowCount))
	colX := x + gutter + 1
	indices := g.visibleColumns(width - gutter - 1)
	printCell(screen, x, y, gutter, "", rowCountStyle, true)
	cx := colX
	for _, ci := range indices {
		col := g.columns[ci]
		w := g.columnWidth(col)
		if rem := x + width - cx; w > rem {
			w = rem
		}
		printCell(screen, cx, y, w, g.headerText(col), columnStyle, false)
		cx += w + 1
	}

	for i := 0; i < g.visibleRows; i++ {
		pos := g.rowOffset + i
		if pos >= g.rowCount {
			break
		}
		rowY := y + 1 + i
		row, ok := g.window.At(pos)
		printCell(screen, x, rowY, gutter, strconv.Itoa(pos+1), rowCountStyle, true)
		cx := colX
		for _, ci := range indices {
			col := g.columns[ci]
			w := g.columnWidth(col)
			if rem := x + width - cx; w > rem {
				w = rem
			}
			style := cellStyle
			if pos == g.selectedRow && ci == g.selectedColumn {
				style = selectedStyle
			}
			if ok {
				printCell(screen, cx, rowY, w, grid.FormatValue(row.Get(col.Field)), style, isNumeric(col))
			} else {
				if style == cellStyle {
					style = placeholderStyle
				}
				printCell(screen, cx, rowY, w, strings.Repeat(string(placeholderRune), w), style, false)
			}
			cx += w + 1
		}
	}

	req = grid.FetchRequest{
		First:  g.rowOffset,
		Last:   g.rowOffset + g.visibleRows,
		Sort:   append(grid.SortModel{}, g.sort...),
		Filter: g.filter,
	}
	if g.reported == nil || g.reported.String() != req.String() {
		g.reported = &req
		notify = true
	}
	return req, notify
}

// cycleSort moves the selected column to the next direction of the sorting
// order, or clears the sort after the last one. Callers hold g.mu.
func (g *GridView) cycleSort() {
	if len(g.columns) == 0 {
		return
	}
	field := g.columns[g.selectedColumn].Field
	next := 0
	for _, item := range g.sort {
		if item.Field != field {
			continue
		}
		next = len(g.sortingOrder)
		for i, dir := range g.sortingOrder {
			if dir == item.Direction {
				next = i + 1
				break
			}
		}
	}
	if next >= len(g.sortingOrder) {
		g.sort = nil
	} else {
		g.sort = grid.SortModel{{Field: field, Direction: g.sortingOrder[next]}}
	}
	g.reported = nil
}

// InputHandler returns the handler for this primitive.
func (g *GridView) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return g.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		g.mu.Lock()
		defer g.mu.Unlock()

		var (
			home = func() {
				g.selectedRow = 0
			}

			end = func() {
				g.selectedRow = g.rowCount - 1
			}

			down = func() {
				g.selectedRow++
			}

			up = func() {
				g.selectedRow--
			}

			left = func() {
				g.selectedColumn--
			}

			right = func() {
				g.selectedColumn++
			}

			pageDown = func() {
				g.selectedRow += g.visibleRows
				g.rowOffset += g.visibleRows
			}

			pageUp = func() {
				g.selectedRow -= g.visibleRows
				g.rowOffset -= g.visibleRows
			}
		)

		switch event.Key() {
		case tcell.KeyRune:
			switch event.Rune() {
			case 'g':
				home()
			case 'G':
				end()
			case 'j':
				down()
			case 'k':
				up()
			case 'h':
				left()
			case 'l':
				right()
			case 's':
				g.cycleSort()
			}
		case tcell.KeyHome:
			home()
		case tcell.KeyEnd:
			end()
		case tcell.KeyUp:
			up()
		case tcell.KeyDown:
			down()
		case tcell.KeyLeft:
			left()
		case tcell.KeyRight:
			right()
		case tcell.KeyPgDn, tcell.KeyCtrlF:
			pageDown()
		case tcell.KeyPgUp, tcell.KeyCtrlB:
			pageUp()
		}
		g.clampSelection()
		g.scrollToSelection()
	})
}

// MouseHandler returns the mouse handler for this primitive.
func (g *GridView) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return g.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		x, y := event.Position()
		if !g.InRect(x, y) {
			return false, nil
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		switch action {
		case tview.MouseLeftClick:
			setFocus(g)
			consumed = true
		case tview.MouseScrollUp:
			g.selectedRow--
			consumed = true
		case tview.MouseScrollDown:
			g.selectedRow++
			consumed = true
		}
		g.clampSelection()
		g.scrollToSelection()
		return
	})
}
