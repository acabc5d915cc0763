// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
	"github.com/wrgl/gridsync/pkg/viewsync"
	"github.com/wrgl/gridsync/pkg/widgets"
)

type viewportEvent struct {
	At    time.Duration
	First int
	Last  int
}

// parseEvent parses "MS:FIRST-LAST"
func parseEvent(s string) (ev viewportEvent, err error) {
	at, rng, ok := strings.Cut(s, ":")
	if !ok {
		return ev, fmt.Errorf("invalid event %q: expecting MS:FIRST-LAST", s)
	}
	first, last, ok := strings.Cut(rng, "-")
	if !ok {
		return ev, fmt.Errorf("invalid event %q: expecting MS:FIRST-LAST", s)
	}
	ms, err := strconv.Atoi(at)
	if err != nil || ms < 0 {
		return ev, fmt.Errorf("invalid event time %q", at)
	}
	ev.At = time.Duration(ms) * time.Millisecond
	if ev.First, err = strconv.Atoi(first); err != nil {
		return ev, fmt.Errorf("invalid first row %q", first)
	}
	if ev.Last, err = strconv.Atoi(last); err != nil {
		return ev, fmt.Errorf("invalid last row %q", last)
	}
	return ev, nil
}

// recordingSource prints every range that reaches the wrapped source,
// stamped with the logical time of the clock
type recordingSource struct {
	rowsource.Source
	clock *viewsync.ManualClock
	start time.Time
	out   io.Writer
	mu    sync.Mutex
}

func (s *recordingSource) QueryRange(ctx context.Context, q rowsource.Query, first, last int) (*rowsource.Result, error) {
	s.mu.Lock()
	fmt.Fprintf(s.out, "t=%s fetch [%d, %d)\n", s.clock.Now().Sub(s.start), first, last)
	s.mu.Unlock()
	if rs, ok := s.Source.(rowsource.RangeSource); ok {
		return rs.QueryRange(ctx, q, first, last)
	}
	res, err := s.Source.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return &rowsource.Result{Rows: rowsource.Slice(res.Rows, first, last), Total: res.Total}, nil
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replays viewport changes against a logical clock.",
		Long: "Replays viewport changes against a logical clock and prints every request that " +
			"reaches the row source, followed by the final synchronizer state. The initial window " +
			"is set at time 0.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "three scroll events within the debounce wait result in a single fetch",
				Line:    "gridsync simulate --event 0:0-10 --event 100:5-15 --event 150:20-30",
			},
			{
				Comment: "use a shorter debounce wait",
				Line:    "gridsync simulate --debounce-wait 50ms --event 0:0-10 --event 100:5-15",
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := utils.SetupLogger(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()
			strs, err := cmd.Flags().GetStringArray("event")
			if err != nil {
				return err
			}
			events := make([]viewportEvent, 0, len(strs))
			for _, s := range strs {
				ev, err := parseEvent(s)
				if err != nil {
					return err
				}
				events = append(events, ev)
			}
			sort.SliceStable(events, func(i, j int) bool {
				return events[i].At < events[j].At
			})
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := utils.OpenSource(ctx, c, false)
			if err != nil {
				return err
			}
			defer src.Close()
			src.Load()
			return simulate(ctx, cmd.OutOrStdout(), src.Source, events, simulateOptions{
				Logger:        utils.GetLogger(cmd),
				DebounceWait:  c.Sync.DebounceWait.Std(),
				ViewportFetch: *c.Sync.ViewportFetch,
				MaxWindowRows: *c.Sync.MaxWindowRows,
				InitialRows:   *c.Sync.InitialRows,
			})
		},
	}
	cmd.Flags().StringArray("event", nil, "viewport change as MS:FIRST-LAST, can be repeated")
	return cmd
}

type simulateOptions struct {
	Logger        logr.Logger
	DebounceWait  time.Duration
	ViewportFetch bool
	MaxWindowRows int
	InitialRows   int
}

func simulate(ctx context.Context, out io.Writer, src rowsource.Source, events []viewportEvent, opts simulateOptions) error {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := viewsync.NewManualClock(start)
	red := color.New(color.FgRed)
	s := viewsync.New(&recordingSource{Source: src, clock: clock, start: start, out: out}, nil, viewsync.Options{
		Logger:               opts.Logger,
		Clock:                clock,
		DebounceWait:         opts.DebounceWait,
		DisableViewportFetch: !opts.ViewportFetch,
		MaxWindowRows:        opts.MaxWindowRows,
		OnError: func(err error) {
			red.Fprintf(out, "t=%s error: %v\n", clock.Now().Sub(start), err)
		},
	})
	defer s.Close()

	// advanceTo moves the clock to t, stopping at every timer deadline so
	// that fetches complete at the time they were issued
	advanceTo := func(t time.Time) {
		for {
			next, ok := clock.NextDeadline()
			if !ok || next.After(t) {
				break
			}
			clock.Advance(next.Sub(clock.Now()))
			s.Wait()
		}
		if d := t.Sub(clock.Now()); d > 0 {
			clock.Advance(d)
		}
	}

	if err := s.SetInitialWindow(ctx, grid.FetchRequest{Last: opts.InitialRows}); err != nil {
		red.Fprintf(out, "t=0s error: %v\n", err)
	}
	for _, ev := range events {
		advanceTo(start.Add(ev.At))
		if err := s.OnViewportChanged(grid.FetchRequest{First: ev.First, Last: ev.Last}); err != nil {
			return err
		}
		s.Wait()
	}
	for {
		next, ok := clock.NextDeadline()
		if !ok {
			break
		}
		advanceTo(next)
	}
	s.Wait()
	fmt.Fprintln(out, widgets.StatusLine(s.Snapshot()))
	return nil
}
