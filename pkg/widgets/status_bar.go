// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package widgets

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/wrgl/gridsync/pkg/viewsync"
)

// DefaultKeyHints are the bindings understood by GridView
var DefaultKeyHints = [][2]string{
	{"j/k", "Down/Up"},
	{"h/l", "Left/Right"},
	{"g/G", "First/Last row"},
	{"^F/^B", "Page down/up"},
	{"s", "Cycle sort"},
	{"q", "Quit"},
}

// StatusBar is a two line text view: synchronizer status on top, key hints
// below.
type StatusBar struct {
	*tview.TextView
	hints string
}

func NewStatusBar(hints [][2]string) *StatusBar {
	strs := make([]string, len(hints))
	for i, a := range hints {
		strs[i] = fmt.Sprintf("[black:white] %s [-:-] %s", tview.Escape(a[0]), tview.Escape(a[1]))
	}
	b := &StatusBar{
		TextView: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		hints: strings.Join(strs, "  "),
	}
	b.Update(viewsync.Snapshot{})
	return b
}

func stateColor(state viewsync.State) string {
	switch state {
	case viewsync.Ready:
		return "green"
	case viewsync.Loading, viewsync.Refetching:
		return "yellow"
	}
	return "gray"
}

// StatusLine formats the synchronizer status shown on the first line,
// without color tags
func StatusLine(snap viewsync.Snapshot) string {
	parts := []string{
		snap.State.String(),
		fmt.Sprintf("%d rows", snap.RowCount),
		fmt.Sprintf("window %d-%d", snap.Request.First, snap.Request.Last),
		fmt.Sprintf("seq %d/%d", snap.Applied, snap.Issued),
	}
	if len(snap.Request.Sort) > 0 {
		parts = append(parts, "sort "+snap.Request.Sort.String())
	}
	if !snap.Request.Filter.IsEmpty() {
		parts = append(parts, "filter "+snap.Request.Filter.String())
	}
	if snap.Discarded > 0 {
		parts = append(parts, fmt.Sprintf("discarded %d", snap.Discarded))
	}
	if snap.Coalesced > 0 {
		parts = append(parts, fmt.Sprintf("coalesced %d", snap.Coalesced))
	}
	if !snap.FetchEnabled && snap.State != viewsync.Uninitialized {
		parts = append(parts, "viewport fetch off")
	}
	return strings.Join(parts, " | ")
}

func (b *StatusBar) Update(snap viewsync.Snapshot) *StatusBar {
	line := fmt.Sprintf("[%s::b]%s[-::-]", stateColor(snap.State), tview.Escape(StatusLine(snap)))
	if snap.LastError != nil {
		line += fmt.Sprintf("  [red]error: %s[-]", tview.Escape(snap.LastError.Error()))
	}
	b.TextView.SetText(line + "\n" + b.hints)
	return b
}
