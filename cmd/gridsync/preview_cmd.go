// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
	"github.com/wrgl/gridsync/pkg/conf"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/viewsync"
	"github.com/wrgl/gridsync/pkg/widgets"
	"golang.org/x/term"
)

const statusRefreshInterval = 250 * time.Millisecond

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Shows rows in an interactive grid that loads them lazily.",
		Long: "Shows rows in an interactive grid that loads them lazily. Columns arrive after " +
			"grid.columnsDelay, the first rows once the source is ready, and scrolling fetches " +
			"the visible rows after the debounce wait. Changes to viewportFetch and debounceWait " +
			"in the config file are applied while the grid is open.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "browse the generated employee dataset",
				Line:    "gridsync preview",
			},
			{
				Comment: "browse a SQLite file created with gridsync seed",
				Line:    `gridsync preview --sqlite employees.db --sort "name" --filter "rating >= 4"`,
			},
			{
				Comment: "write synchronizer logs to a file",
				Line:    "gridsync preview --log-file gridsync.log --log-verbosity 1",
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("preview requires a terminal, use \"gridsync fetch\" instead")
			}
			cleanup, err := utils.SetupLogger(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()
			sortStr, err := cmd.Flags().GetString("sort")
			if err != nil {
				return err
			}
			filterStr, err := cmd.Flags().GetString("filter")
			if err != nil {
				return err
			}
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			src, err := utils.OpenSource(cmd.Context(), c, true)
			if err != nil {
				return err
			}
			defer src.Close()
			sort, err := grid.ParseSort(sortStr)
			if err != nil {
				return err
			}
			filter, err := grid.ParseFilter(filterStr, src.Columns)
			if err != nil {
				return err
			}
			return previewGrid(cmd, c, src, sort, filter)
		},
	}
	cmd.Flags().String("sort", "", `initial sort order, for example "salary desc"`)
	cmd.Flags().String("filter", "", `filter expression, for example "isAdmin = true"`)
	return cmd
}

func sortingOrder(c *conf.Config) []grid.SortDirection {
	order := make([]grid.SortDirection, len(c.Grid.SortingOrder))
	for i, s := range c.Grid.SortingOrder {
		order[i] = grid.SortDirection(s)
	}
	return order
}

func sourceTitle(c *conf.Config) string {
	if c.Source.Kind == conf.SourceSQLite {
		return fmt.Sprintf("[yellow]gridsync[white]  sqlite [teal]%s[white]", tview.Escape(c.Source.SQLitePath))
	}
	return fmt.Sprintf("[yellow]gridsync[white]  memory ([teal]%d[white] rows, seed [teal]%d[white])", *c.Source.Rows, *c.Source.Seed)
}

func previewGrid(cmd *cobra.Command, c *conf.Config, src *utils.Source, sort grid.SortModel, filter grid.FilterModel) error {
	logger := utils.GetLogger(cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	app := tview.NewApplication().EnableMouse(true)

	titleBar := tview.NewTextView().SetDynamicColors(true)
	fmt.Fprint(titleBar, sourceTitle(c))

	gv := widgets.NewGridView().
		SetDefaultColumnWidth(*c.Grid.ColumnWidth).
		SetSortingOrder(sortingOrder(c)).
		SetSort(sort).
		SetFilter(filter)
	hints := append(append([][2]string{}, widgets.DefaultKeyHints...), [2]string{"f", "Toggle fetch"})
	statusBar := widgets.NewStatusBar(hints)

	s := viewsync.New(src.Source, gv, viewsync.Options{
		Logger:               logger,
		DebounceWait:         c.Sync.DebounceWait.Std(),
		DisableViewportFetch: !*c.Sync.ViewportFetch,
		PageSize:             *c.Source.PageSize,
		MaxWindowRows:        *c.Sync.MaxWindowRows,
		OnError: func(err error) {
			logger.Error(err, "viewport fetch failed")
		},
	})
	defer s.Close()

	// sink callbacks may run under the synchronizer lock so they only
	// signal, the loop below does the drawing
	redraw := make(chan struct{}, 1)
	signal := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	gv.SetChangedFunc(signal)
	gv.SetViewportFunc(func(req grid.FetchRequest) {
		if err := s.OnViewportChanged(req); err != nil {
			logger.Error(err, "viewport change rejected", "request", req.String())
		}
	})
	// the viewport reported while fetching was off is fetched once it is
	// turned back on
	setFetchEnabled := func(enabled bool) {
		s.SetFetchEnabled(enabled)
		if req, ok := gv.Viewport(); ok && enabled {
			if err := s.OnViewportChanged(req); err != nil {
				logger.Error(err, "viewport change rejected", "request", req.String())
			}
		}
		signal()
	}
	go func() {
		ticker := time.NewTicker(statusRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-redraw:
			case <-ticker.C:
			}
			snap := s.Snapshot()
			app.QueueUpdateDraw(func() {
				statusBar.Update(snap)
			})
		}
	}()

	go src.Load()
	columnsTimer := time.AfterFunc(c.Grid.ColumnsDelay.Std(), func() {
		s.UpdateColumns(src.Columns)
	})
	defer columnsTimer.Stop()
	go func() {
		req := grid.FetchRequest{Last: *c.Sync.InitialRows, Sort: sort, Filter: filter}
		if err := s.SetInitialWindow(ctx, req); err != nil {
			logger.Error(err, "error setting initial window")
		}
		signal()
	}()

	if err := utils.WatchConfig(logger, func(nc *conf.Config) {
		s.SetDebounceWait(nc.Sync.DebounceWait.Std())
		if *nc.Sync.ViewportFetch != s.Snapshot().FetchEnabled {
			setFetchEnabled(*nc.Sync.ViewportFetch)
		}
		signal()
	}); err != nil {
		logger.Error(err, "error watching config")
	}

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(titleBar, 1, 1, false).
		AddItem(gv, 0, 1, true).
		AddItem(statusBar, 2, 1, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			app.Stop()
			return nil
		case 'f':
			setFetchEnabled(!s.Snapshot().FetchEnabled)
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).SetFocus(gv).Run()
}
