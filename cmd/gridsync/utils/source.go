// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package utils

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/wrgl/gridsync/pkg/conf"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
	"github.com/wrgl/gridsync/pkg/rowsource/employee"
	"github.com/wrgl/gridsync/pkg/rowsource/sqlsource"
)

// Source is the row source selected by the config, with its columns
type Source struct {
	rowsource.Source
	Columns grid.Columns

	mem  *rowsource.Memory
	rows int
	seed int64
	db   *sql.DB
}

// OpenSource opens the configured source. Memory sources stay not ready
// until Load is called. Latency is only simulated if withLatency is set.
func OpenSource(ctx context.Context, c *conf.Config, withLatency bool) (*Source, error) {
	switch c.Source.Kind {
	case conf.SourceSQLite:
		if _, err := os.Stat(c.Source.SQLitePath); err != nil {
			return nil, fmt.Errorf("error opening sqlite source: %w", err)
		}
		db, err := sqlsource.Open(c.Source.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := sqlsource.Attach(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		cols, err := store.Columns(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &Source{Source: store, Columns: cols, db: db}, nil
	default:
		opts := rowsource.MemoryOptions{
			UseCursorPagination: *c.Source.CursorPagination,
			Seed:                *c.Source.Seed,
		}
		if withLatency {
			opts.MinDelay = c.Source.MinDelay.Std()
			opts.MaxDelay = c.Source.MaxDelay.Std()
		}
		cols := employee.Columns()
		mem := rowsource.NewMemory(cols, opts)
		return &Source{
			Source:  mem,
			Columns: cols,
			mem:     mem,
			rows:    *c.Source.Rows,
			seed:    *c.Source.Seed,
		}, nil
	}
}

// Load generates the employee rows of a memory source, marking it ready
func (s *Source) Load() {
	if s.mem != nil {
		s.mem.Load(employee.Generate(s.rows, s.seed))
	}
}

func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
