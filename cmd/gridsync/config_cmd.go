// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Shows or writes the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Prints the effective config as YAML.",
		Long:  "Prints the effective config as YAML: the config file with flags and GRIDSYNC_ environment variables applied on top, and defaults filling in the rest.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "see which debounce wait will be used",
				Line:    "GRIDSYNC_DEBOUNCE_WAIT=50ms gridsync config show",
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(c)
			if err != nil {
				return err
			}
			cmd.Print(string(b))
			return nil
		},
	}
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Writes the effective config to the config file.",
		Example: utils.CombineExamples([]utils.Example{
			{
				Comment: "write a config file for a SQLite source",
				Line:    "gridsync config init --sqlite employees.db",
			},
			{
				Comment: "write to a specific file",
				Line:    "gridsync config init --config ./gridsync.yaml --force",
			},
		}),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			s, err := utils.ConfigStore()
			if err != nil {
				return err
			}
			if _, err := os.Stat(s.Path()); err == nil && !force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite", s.Path())
			}
			c, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			if err = s.Save(c); err != nil {
				return err
			}
			cmd.Printf("wrote config to %s\n", s.Path())
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite the existing config file")
	return cmd
}
