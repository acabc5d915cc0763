// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package conf

import (
	"fmt"
	"reflect"
	"time"

	"github.com/imdario/mergo"
)

const (
	SourceMemory = "memory"
	SourceSQLite = "sqlite"
)

type Source struct {
	// Kind is either "memory" (the default) or "sqlite"
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// SQLitePath is the database file used when Kind is "sqlite". It can be
	// populated with `gridsync seed`.
	SQLitePath string `yaml:"sqlitePath,omitempty" json:"sqlitePath,omitempty"`

	// Rows is the number of generated employee rows of the memory source
	Rows *int `yaml:"rows,omitempty" json:"rows,omitempty"`

	// Seed makes generated rows reproducible
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// MinDelay and MaxDelay bound the simulated latency of the memory source
	MinDelay *Duration `yaml:"minDelay,omitempty" json:"minDelay,omitempty"`
	MaxDelay *Duration `yaml:"maxDelay,omitempty" json:"maxDelay,omitempty"`

	// CursorPagination makes the memory source serve results in cursor pages
	CursorPagination *bool `yaml:"cursorPagination,omitempty" json:"cursorPagination,omitempty"`

	// PageSize is the page size requested when walking cursor pages
	PageSize *int `yaml:"pageSize,omitempty" json:"pageSize,omitempty"`
}

type Sync struct {
	// DebounceWait is the quiet period after the last viewport change
	// before a fetch is sent
	DebounceWait *Duration `yaml:"debounceWait,omitempty" json:"debounceWait,omitempty"`

	// ViewportFetch, when set to `false`, stops viewport changes from
	// fetching rows. Only the initial window is loaded.
	ViewportFetch *bool `yaml:"viewportFetch,omitempty" json:"viewportFetch,omitempty"`

	// MaxWindowRows bounds the number of rows kept in memory. 0 means no
	// bound.
	MaxWindowRows *int `yaml:"maxWindowRows,omitempty" json:"maxWindowRows,omitempty"`

	// InitialRows is the size of the first window, fetched once the source
	// is ready
	InitialRows *int `yaml:"initialRows,omitempty" json:"initialRows,omitempty"`
}

type Grid struct {
	// ColumnsDelay is how long the grid waits before it receives its columns
	ColumnsDelay *Duration `yaml:"columnsDelay,omitempty" json:"columnsDelay,omitempty"`

	// SortingOrder is the cycle of directions applied by the sort key
	SortingOrder []string `yaml:"sortingOrder,omitempty" json:"sortingOrder,omitempty"`

	// ColumnWidth is the width of columns that do not declare one
	ColumnWidth *int `yaml:"columnWidth,omitempty" json:"columnWidth,omitempty"`
}

type Config struct {
	Source *Source `yaml:"source,omitempty" json:"source,omitempty"`
	Sync   *Sync   `yaml:"sync,omitempty" json:"sync,omitempty"`
	Grid   *Grid   `yaml:"grid,omitempty" json:"grid,omitempty"`
}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// Default returns a fully populated config
func Default() *Config {
	seed := int64(1)
	return &Config{
		Source: &Source{
			Kind:             SourceMemory,
			Rows:             intPtr(10000),
			Seed:             &seed,
			MinDelay:         durationPtr(300 * time.Millisecond),
			MaxDelay:         durationPtr(800 * time.Millisecond),
			CursorPagination: boolPtr(false),
			PageSize:         intPtr(0),
		},
		Sync: &Sync{
			DebounceWait:  durationPtr(200 * time.Millisecond),
			ViewportFetch: boolPtr(true),
			MaxWindowRows: intPtr(0),
			InitialRows:   intPtr(10),
		},
		Grid: &Grid{
			ColumnsDelay: durationPtr(time.Second),
			SortingOrder: []string{"desc", "asc"},
			ColumnWidth:  intPtr(14),
		},
	}
}

// ptrTransformer makes set pointers to scalars win even when they point at
// zero values, e.g. `viewportFetch: false`
type ptrTransformer struct{}

func (ptrTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() == reflect.Ptr && typ.Elem().Kind() != reflect.Struct {
		return func(dst, src reflect.Value) error {
			if dst.CanSet() && !src.IsNil() {
				dst.Set(src)
			}
			return nil
		}
	}
	return nil
}

// Merge writes every field set in src over dst
func Merge(dst, src *Config) error {
	if src == nil {
		return nil
	}
	return mergo.Merge(dst, src, mergo.WithOverride, mergo.WithTransformers(ptrTransformer{}))
}

// WithDefaults returns a copy of c where every unset field is taken from
// Default. c is not modified.
func WithDefaults(c *Config) (*Config, error) {
	res := Default()
	if err := Merge(res, c); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks a config returned by WithDefaults
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceMemory:
	case SourceSQLite:
		if c.Source.SQLitePath == "" {
			return fmt.Errorf("source.sqlitePath is required when source.kind is %q", SourceSQLite)
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}
	if *c.Source.Rows < 0 {
		return fmt.Errorf("source.rows must not be negative")
	}
	if *c.Source.MinDelay > *c.Source.MaxDelay {
		return fmt.Errorf("source.minDelay (%s) is greater than source.maxDelay (%s)",
			c.Source.MinDelay.Std(), c.Source.MaxDelay.Std())
	}
	if *c.Sync.InitialRows < 0 {
		return fmt.Errorf("sync.initialRows must not be negative")
	}
	for _, s := range c.Grid.SortingOrder {
		if s != "asc" && s != "desc" {
			return fmt.Errorf("invalid sort direction %q in grid.sortingOrder", s)
		}
	}
	return nil
}
