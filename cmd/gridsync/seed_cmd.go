// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
	"github.com/wrgl/gridsync/pkg/pbar"
	"github.com/wrgl/gridsync/pkg/rowsource/employee"
	"github.com/wrgl/gridsync/pkg/rowsource/sqlsource"
	"golang.org/x/term"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Writes the generated employee dataset into a SQLite file.",
		Long: "Writes the generated employee dataset into a SQLite file. The file can then be " +
			"used as a row source with the --sqlite flag. Existing rows in the file are replaced.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "write 100000 employees",
				Line:    "gridsync seed --sqlite employees.db --rows 100000",
			},
			{
				Comment: "read them back",
				Line:    `gridsync fetch --sqlite employees.db --sort "salary desc"`,
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := utils.SetupLogger(cmd, false)
			if err != nil {
				return err
			}
			defer cleanup()
			path := viper.GetString(utils.KeySQLite)
			if path == "" {
				return fmt.Errorf("--sqlite is required")
			}
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := sqlsource.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()
			store, err := sqlsource.Create(ctx, db, employee.Columns())
			if err != nil {
				return err
			}
			rows := employee.Generate(*c.Source.Rows, *c.Source.Seed)
			utils.GetLogger(cmd).Info("writing rows", "path", path, "rows", len(rows))
			noProgress, err := cmd.Flags().GetBool("no-progress")
			if err != nil {
				return err
			}
			quiet := noProgress || !term.IsTerminal(int(os.Stderr.Fd()))
			bar := pbar.NewContainer(cmd.ErrOrStderr(), quiet).NewBar(int64(len(rows)), "writing rows")
			if err = store.LoadWithProgress(ctx, rows, bar); err != nil {
				return err
			}
			cmd.Printf("wrote %d rows to %s\n", len(rows), path)
			return nil
		},
	}
	cmd.Flags().Bool("no-progress", false, "don't display progress bar")
	return cmd
}
