// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/viewsync"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetches a range of rows once and prints them.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "print the first 10 generated employees",
				Line:    "gridsync fetch",
			},
			{
				Comment: "print rows 100 to 119 of admins sorted by salary",
				Line:    `gridsync fetch --first 100 --last 120 --sort "salary desc" --filter "isAdmin = true"`,
			},
			{
				Comment: "only show some columns of a SQLite source",
				Line:    "gridsync fetch --sqlite employees.db --columns name,salary",
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := utils.SetupLogger(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()
			first, err := cmd.Flags().GetInt("first")
			if err != nil {
				return err
			}
			last, err := cmd.Flags().GetInt("last")
			if err != nil {
				return err
			}
			sortStr, err := cmd.Flags().GetString("sort")
			if err != nil {
				return err
			}
			filterStr, err := cmd.Flags().GetString("filter")
			if err != nil {
				return err
			}
			fields, err := cmd.Flags().GetStringSlice("columns")
			if err != nil {
				return err
			}
			latency, err := cmd.Flags().GetBool("simulate-latency")
			if err != nil {
				return err
			}
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := utils.OpenSource(ctx, c, latency)
			if err != nil {
				return err
			}
			defer src.Close()
			src.Load()

			sort, err := grid.ParseSort(sortStr)
			if err != nil {
				return err
			}
			filter, err := grid.ParseFilter(filterStr, src.Columns)
			if err != nil {
				return err
			}
			cols, err := selectColumns(src.Columns, fields)
			if err != nil {
				return err
			}

			s := viewsync.New(src.Source, nil, viewsync.Options{
				Logger:   utils.GetLogger(cmd),
				PageSize: *c.Source.PageSize,
			})
			defer s.Close()
			req := grid.FetchRequest{First: first, Last: last, Sort: sort, Filter: filter}
			res, err := s.RequestRange(ctx, req)
			if err != nil {
				return err
			}
			printRows(cmd, cols, first, res.Rows)
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "total %d\n", res.Total)
			return nil
		},
	}
	cmd.Flags().Int("first", 0, "index of the first row to fetch")
	cmd.Flags().Int("last", 10, "index after the last row to fetch")
	cmd.Flags().String("sort", "", `sort order, for example "salary desc, name"`)
	cmd.Flags().String("filter", "", `filter expression, for example "country = \"Japan\" AND salary > 100000"`)
	cmd.Flags().StringSlice("columns", nil, "only print these fields")
	cmd.Flags().Bool("simulate-latency", false, "delay memory source responses by the configured latency")
	return cmd
}

func selectColumns(cols grid.Columns, fields []string) (grid.Columns, error) {
	if len(fields) == 0 {
		return cols, nil
	}
	sl := make(grid.Columns, 0, len(fields))
	for _, f := range fields {
		col, ok := cols.Lookup(f)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", f)
		}
		sl = append(sl, col)
	}
	return sl, nil
}

func printRows(cmd *cobra.Command, cols grid.Columns, first int, rows []grid.Row) {
	tbl := make([][]string, 0, len(rows)+1)
	header := []string{"#"}
	for _, col := range cols {
		header = append(header, col.Title())
	}
	tbl = append(tbl, header)
	for i, row := range rows {
		line := []string{strconv.Itoa(first + i + 1)}
		for _, col := range cols {
			line = append(line, grid.FormatValue(row.Get(col.Field)))
		}
		tbl = append(tbl, line)
	}
	utils.PrintTable(cmd.OutOrStdout(), tbl, true, 32)
}
