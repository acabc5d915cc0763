// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrgl/gridsync/pkg/conf"
	confmock "github.com/wrgl/gridsync/pkg/conf/mock"
	"github.com/wrgl/gridsync/pkg/testutils"
)

func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := testutils.TempDir(t)
	t.Setenv("GRIDSYNC_CONFIG_DIR", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := setupConfigDir(t)

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, conf.Default(), c)

	testutils.WriteFile(t, dir, "config.yaml",
		"source:",
		"  rows: 50",
		"sync:",
		"  viewportFetch: false",
		"  debounceWait: 1s",
	)
	c, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, *c.Source.Rows)
	assert.False(t, *c.Sync.ViewportFetch)
	assert.Equal(t, conf.Duration(time.Second), *c.Sync.DebounceWait)
	assert.Equal(t, int64(1), *c.Source.Seed)

	viper.Set(KeyRows, 7)
	viper.Set(KeyViewportFetch, true)
	viper.Set(KeySQLite, "grid.db")
	viper.Set(KeyDebounceWait, "20ms")
	c, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, *c.Source.Rows)
	assert.True(t, *c.Sync.ViewportFetch)
	assert.Equal(t, conf.SourceSQLite, c.Source.Kind)
	assert.Equal(t, "grid.db", c.Source.SQLitePath)
	assert.Equal(t, conf.Duration(20*time.Millisecond), *c.Sync.DebounceWait)

	testutils.WriteFile(t, dir, "config.yaml", "source: [")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	setupConfigDir(t)
	fp := testutils.WriteFile(t, testutils.TempDir(t), "other.yaml",
		"grid:",
		"  sortingOrder: [asc]",
	)
	viper.Set(KeyConfig, fp)
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"asc"}, c.Grid.SortingOrder)

	testutils.WriteFile(t, filepath.Dir(fp), "other.yaml",
		"grid:",
		"  sortingOrder: [up]",
	)
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigFrom(t *testing.T) {
	setupConfigDir(t)
	var s conf.Store = &confmock.Store{}
	assert.Equal(t, "memory", s.Path())
	delay := conf.Duration(0)
	require.NoError(t, s.Save(&conf.Config{Source: &conf.Source{MinDelay: &delay, MaxDelay: &delay}}))
	viper.Set(KeySeed, 9)
	c, err := LoadConfigFrom(s)
	require.NoError(t, err)
	assert.Equal(t, delay, *c.Source.MaxDelay)
	assert.Equal(t, int64(9), *c.Source.Seed)

	c, err = s.Open()
	require.NoError(t, err)
	assert.Nil(t, c.Source.Seed)
}

func TestWatchConfig(t *testing.T) {
	dir := setupConfigDir(t)
	ch := make(chan *conf.Config, 10)
	onChange := func(c *conf.Config) {
		ch <- c
	}

	// nothing to watch yet
	require.NoError(t, WatchConfig(logr.Discard(), onChange))

	fp := testutils.WriteFile(t, dir, "config.yaml",
		"sync:",
		"  viewportFetch: true",
	)
	require.NoError(t, WatchConfig(logr.Discard(), onChange))
	require.NoError(t, os.WriteFile(fp, []byte("sync:\n  viewportFetch: false\n"), 0644))

	var c *conf.Config
	require.Eventually(t, func() bool {
		select {
		case c = <-ch:
			return !*c.Sync.ViewportFetch
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, *c.Sync.ViewportFetch)
}
