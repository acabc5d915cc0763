// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package gridsync

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wrgl/gridsync/cmd/gridsync/utils"
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gridsync",
		Short:         "Lazy loading of rows into a virtualized grid",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	viper.SetEnvPrefix("gridsync")
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file to use, defaults to $GRIDSYNC_CONFIG_DIR/config.yaml or the user config dir")
	flags.String("sqlite", "", "read rows from this SQLite file instead of the generated memory dataset")
	flags.Int("rows", 0, "number of rows in the generated memory dataset")
	flags.Int64("seed", 0, "seed of the generated memory dataset")
	flags.Duration("debounce-wait", 0, "quiet period before a viewport change is fetched")
	flags.Bool("viewport-fetch", true, "fetch rows when the viewport changes")
	for key, flag := range map[string]string{
		utils.KeyConfig:        "config",
		utils.KeySQLite:        "sqlite",
		utils.KeyRows:          "rows",
		utils.KeySeed:          "seed",
		utils.KeyDebounceWait:  "debounce-wait",
		utils.KeyViewportFetch: "viewport-fetch",
	} {
		viper.BindEnv(key)
		viper.BindPFlag(key, flags.Lookup(flag))
	}
	utils.AddLoggerFlags(flags)
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}
