// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDir places the dir under RUNNER_TEMP env var if it is specified. This
// is necessary for Github action to work correctly.
func TempDir(t *testing.T) string {
	t.Helper()
	dir := ""
	if v := os.Getenv("RUNNER_TEMP"); v != "" {
		dir = v
	}
	d, err := os.MkdirTemp(dir, "gridsync_*")
	require.NoError(t, err)
	t.Cleanup(func() {
		os.RemoveAll(d)
	})
	return d
}

// WriteFile writes content to name under dir and returns the full path
func WriteFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	fp := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755))
	require.NoError(t, os.WriteFile(fp, []byte(strings.Join(lines, "\n")), 0644))
	return fp
}
