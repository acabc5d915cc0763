// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

// Package sqlsource serves rows out of a SQLite database
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fvbommel/sortorder"
	"github.com/mattn/go-sqlite3"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/pbar"
	"github.com/wrgl/gridsync/pkg/rowsource"
	"github.com/wrgl/gridsync/pkg/sqlutil"
)

// DriverName is a sqlite3 driver with the NATURAL collation registered so
// that string ordering agrees with in-memory sources.
const DriverName = "sqlite3_gridsync"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterCollation("NATURAL", func(a, b string) int {
				switch {
				case a == b:
					return 0
				case sortorder.NaturalLess(a, b):
					return -1
				default:
					return 1
				}
			})
		},
	})
}

// Open opens the database file at path with DriverName
func Open(path string) (*sql.DB, error) {
	return sql.Open(DriverName, path)
}

type Store struct {
	db      *sql.DB
	columns grid.Columns
}

// Create creates the schema for columns and returns an empty store
func Create(ctx context.Context, db *sql.DB, columns grid.Columns) (*Store, error) {
	s := &Store{db: db, columns: columns}
	err := sqlutil.RunInTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DROP TABLE IF EXISTS grid_rows`,
			`DROP TABLE IF EXISTS grid_columns`,
			`CREATE TABLE grid_columns (
				ord    INTEGER NOT NULL PRIMARY KEY,
				field  TEXT NOT NULL UNIQUE,
				header TEXT NOT NULL DEFAULT '',
				type   TEXT NOT NULL,
				width  INTEGER NOT NULL DEFAULT 0
			)`,
			s.createRowsTable(),
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		for i, c := range columns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO grid_columns (ord, field, header, type, width) VALUES (?, ?, ?, ?, ?)`,
				i, c.Field, c.HeaderName, string(c.Type), c.Width,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Attach reads the column set of a database populated by Create
func Attach(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	var c grid.Column
	var typ string
	err := sqlutil.QueryRows(ctx, db,
		`SELECT field, header, type, width FROM grid_columns ORDER BY ord`, nil,
		[]interface{}{&c.Field, &c.HeaderName, &typ, &c.Width},
		func() error {
			c.Type = grid.ColumnType(typ)
			s.columns = append(s.columns, c)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(s.columns) == 0 {
		return nil, fmt.Errorf("database has no grid columns")
	}
	return s, nil
}

func sqlType(t grid.ColumnType) string {
	switch t {
	case grid.ColumnInt, grid.ColumnBool:
		return "INTEGER"
	case grid.ColumnFloat:
		return "REAL"
	}
	// dates are stored as TEXT so the driver does not turn them into timestamps
	return "TEXT"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (s *Store) createRowsTable() string {
	defs := []string{
		"id TEXT NOT NULL PRIMARY KEY",
		"ord INTEGER NOT NULL",
	}
	for _, c := range s.columns {
		defs = append(defs, quoteIdent(c.Field)+" "+sqlType(c.Type))
	}
	return "CREATE TABLE grid_rows (\n" + strings.Join(defs, ",\n") + "\n)"
}

func toSQLValue(t grid.ColumnType, v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return 1
		}
		return 0
	case time.Time:
		return x.Format(grid.DateLayout)
	}
	if t == grid.ColumnDate {
		return grid.FormatValue(v)
	}
	return v
}

func fromSQLValue(t grid.ColumnType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []byte:
		v = string(x)
	case time.Time:
		if t == grid.ColumnDate {
			return x.UTC(), nil
		}
		v = x.Format(grid.DateLayout)
	}
	switch t {
	case grid.ColumnBool:
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	case grid.ColumnFloat:
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	}
	if str, ok := v.(string); ok && t != grid.ColumnString {
		return grid.ParseValue(t, str)
	}
	return v, nil
}

// Load replaces all rows. Row order is kept as the tie breaker of sorts.
func (s *Store) Load(ctx context.Context, rows []grid.Row) error {
	return s.LoadWithProgress(ctx, rows, pbar.NewNoopBar())
}

// LoadWithProgress is Load, counting inserted rows on bar
func (s *Store) LoadWithProgress(ctx context.Context, rows []grid.Row, bar pbar.Bar) error {
	fields := []string{"id", "ord"}
	marks := []string{"?", "?"}
	for _, c := range s.columns {
		fields = append(fields, quoteIdent(c.Field))
		marks = append(marks, "?")
	}
	insert := fmt.Sprintf(`INSERT INTO grid_rows (%s) VALUES (%s)`,
		strings.Join(fields, ", "), strings.Join(marks, ", "))
	err := sqlutil.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM grid_rows`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return err
		}
		defer stmt.Close()
		args := make([]interface{}, len(fields))
		for i, r := range rows {
			args[0] = string(r.ID)
			args[1] = i
			for j, c := range s.columns {
				args[j+2] = toSQLValue(c.Type, r.Get(c.Field))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %q: %w", r.ID, err)
			}
			bar.IncrBy(1)
		}
		return nil
	})
	if err != nil {
		bar.Abort()
		return err
	}
	bar.Done()
	return nil
}

func (s *Store) Ready() <-chan struct{} {
	return rowsource.AlwaysReady()
}

func (s *Store) Columns(ctx context.Context) (grid.Columns, error) {
	return s.columns, nil
}

func (s *Store) Query(ctx context.Context, q rowsource.Query) (*rowsource.Result, error) {
	return s.query(ctx, q, 0, -1)
}

func (s *Store) QueryRange(ctx context.Context, q rowsource.Query, first, last int) (*rowsource.Result, error) {
	if first < 0 || first > last {
		return nil, fmt.Errorf("invalid range [%d, %d)", first, last)
	}
	return s.query(ctx, q, first, last-first)
}

// query returns limit rows starting at offset, all rows when limit < 0
func (s *Store) query(ctx context.Context, q rowsource.Query, offset, limit int) (*rowsource.Result, error) {
	where, args, err := whereClause(s.columns, q.Filter)
	if err != nil {
		return nil, err
	}
	orderBy, err := orderByClause(s.columns, q.Sort)
	if err != nil {
		return nil, err
	}
	selectFields := []string{"id"}
	for _, c := range s.columns {
		selectFields = append(selectFields, quoteIdent(c.Field))
	}
	res := &rowsource.Result{Rows: []grid.Row{}}
	err = sqlutil.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM grid_rows`+where, args...,
		).Scan(&res.Total); err != nil {
			return err
		}
		if limit == 0 {
			return nil
		}
		stmt := `SELECT ` + strings.Join(selectFields, ", ") + ` FROM grid_rows` + where + orderBy +
			` LIMIT ? OFFSET ?`
		qargs := append(append([]interface{}{}, args...), limit, offset)
		var id string
		vals := make([]interface{}, len(s.columns))
		scans := []interface{}{&id}
		for i := range vals {
			scans = append(scans, &vals[i])
		}
		return sqlutil.QueryRows(ctx, tx, stmt, qargs, scans, func() error {
			r := grid.Row{ID: grid.RowID(id), Values: make(map[string]interface{}, len(s.columns))}
			for i, c := range s.columns {
				v, err := fromSQLValue(c.Type, vals[i])
				if err != nil {
					return fmt.Errorf("row %q field %q: %w", id, c.Field, err)
				}
				r.Values[c.Field] = v
			}
			res.Rows = append(res.Rows, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
