// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// PrintTable prints rows of text as aligned columns. The first row is
// printed in bold if header is set. Cells wider than maxWidth are truncated
// when maxWidth is positive.
func PrintTable(w io.Writer, rows [][]string, header bool, maxWidth int) {
	if maxWidth > 0 {
		for _, row := range rows {
			for i, cell := range row {
				row[i] = runewidth.Truncate(cell, maxWidth, "…")
			}
		}
	}
	widths := []int{}
	for _, row := range rows {
		for i, cell := range row {
			n := runewidth.StringWidth(cell)
			if i >= len(widths) {
				widths = append(widths, n)
			} else if widths[i] < n {
				widths[i] = n
			}
		}
	}
	bold := color.New(color.Bold)
	for j, row := range rows {
		sb := &strings.Builder{}
		for i, cell := range row {
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
			}
		}
		if j == 0 && header {
			bold.Fprintln(w, sb.String())
		} else {
			fmt.Fprintln(w, sb.String())
		}
	}
}
