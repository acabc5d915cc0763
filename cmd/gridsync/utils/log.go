// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package utils

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type loggerKey struct{}

func SetLogger(ctx context.Context, logger *logr.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger set up by SetupLogger, or a discarding
// logger
func GetLogger(cmd *cobra.Command) logr.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if v := ctx.Value(loggerKey{}); v != nil {
			return *v.(*logr.Logger)
		}
	}
	return logr.Discard()
}

func AddLoggerFlags(flags *pflag.FlagSet) {
	flags.Int("log-verbosity", 0, "log verbosity. Higher value means more log")
	flags.String("log-file", "", "output logs to specified file")
}

// SetupLogger creates a stdr logger from the log flags and stores it in the
// command's context. Logs go to stderr unless --log-file is given, or
// nowhere if quiet is set and there is no log file.
func SetupLogger(cmd *cobra.Command, quiet bool) (cleanup func(), err error) {
	if v := cmd.Context(); v != nil && v.Value(loggerKey{}) != nil {
		return func() {}, nil
	}
	verbosity, err := cmd.Flags().GetInt("log-verbosity")
	if err != nil {
		return nil, err
	}
	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, err
	}
	cleanup = func() {}
	var w io.Writer = cmd.ErrOrStderr()
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return nil, err
		}
		w = f
		cleanup = func() {
			f.Close()
		}
	} else if quiet {
		w = io.Discard
	}
	logger := stdr.New(log.New(w, "", log.LstdFlags)).V(1)
	stdr.SetVerbosity(verbosity)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(SetLogger(ctx, &logger))
	return cleanup, nil
}
