// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	c, err := WithDefaults(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	no := false
	rows := 25
	wait := Duration(time.Millisecond)
	override := &Config{
		Source: &Source{Rows: &rows},
		Sync:   &Sync{ViewportFetch: &no, DebounceWait: &wait},
		Grid:   &Grid{SortingOrder: []string{"asc"}},
	}
	c, err = WithDefaults(override)
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, c.Source.Kind)
	assert.Equal(t, 25, *c.Source.Rows)
	assert.Equal(t, Duration(800*time.Millisecond), *c.Source.MaxDelay)
	assert.False(t, *c.Sync.ViewportFetch)
	assert.Equal(t, Duration(time.Millisecond), *c.Sync.DebounceWait)
	assert.Equal(t, 10, *c.Sync.InitialRows)
	assert.Equal(t, []string{"asc"}, c.Grid.SortingOrder)
	assert.Equal(t, Duration(time.Second), *c.Grid.ColumnsDelay)

	// the override itself is untouched
	assert.Nil(t, override.Source.MaxDelay)
	assert.Nil(t, override.Grid.ColumnsDelay)
}

func TestMerge(t *testing.T) {
	yes := true
	no := false
	dst := &Config{Sync: &Sync{ViewportFetch: &yes}}
	require.NoError(t, Merge(dst, &Config{Sync: &Sync{ViewportFetch: &no}}))
	assert.False(t, *dst.Sync.ViewportFetch)
	require.NoError(t, Merge(dst, &Config{}))
	assert.False(t, *dst.Sync.ViewportFetch)
	require.NoError(t, Merge(dst, nil))
}

func TestValidate(t *testing.T) {
	slow := Duration(time.Second)
	neg := -1
	for _, c := range []struct {
		c   *Config
		err string
	}{
		{&Config{Source: &Source{Kind: "redis"}}, `unknown source.kind "redis"`},
		{&Config{Source: &Source{Kind: SourceSQLite}}, `source.sqlitePath is required when source.kind is "sqlite"`},
		{&Config{Source: &Source{MinDelay: &slow}}, "source.minDelay (1s) is greater than source.maxDelay (800ms)"},
		{&Config{Source: &Source{Rows: &neg}}, "source.rows must not be negative"},
		{&Config{Sync: &Sync{InitialRows: &neg}}, "sync.initialRows must not be negative"},
		{&Config{Grid: &Grid{SortingOrder: []string{"up"}}}, `invalid sort direction "up" in grid.sortingOrder`},
	} {
		_, err := WithDefaults(c.c)
		assert.EqualError(t, err, c.err)
	}

	_, err := WithDefaults(&Config{Source: &Source{Kind: SourceSQLite, SQLitePath: "a.db"}})
	assert.NoError(t, err)
}
