// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package sqlsource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
	"github.com/wrgl/gridsync/pkg/rowsource/employee"
	"github.com/wrgl/gridsync/pkg/testutils"
)

func createStore(t *testing.T, rows []grid.Row) *Store {
	t.Helper()
	db := testutils.OpenSQLDB(t, DriverName)
	ctx := context.Background()
	s, err := Create(ctx, db, employee.Columns())
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, rows))
	return s
}

func rowIDs(rows []grid.Row) []grid.RowID {
	sl := make([]grid.RowID, len(rows))
	for i, r := range rows {
		sl[i] = r.ID
	}
	return sl
}

func TestStoreRoundTrip(t *testing.T) {
	rows := employee.Generate(20, 3)
	s := createStore(t, rows)
	ctx := context.Background()

	res, err := s.Query(ctx, rowsource.Query{})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Total)
	assert.Equal(t, rows, res.Rows)

	res, err = s.QueryRange(ctx, rowsource.Query{}, 5, 8)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Total)
	assert.Equal(t, rows[5:8], res.Rows)

	res, err = s.QueryRange(ctx, rowsource.Query{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Total)
	assert.Empty(t, res.Rows)

	res, err = s.QueryRange(ctx, rowsource.Query{}, 18, 30)
	require.NoError(t, err)
	assert.Equal(t, rowIDs(rows[18:]), rowIDs(res.Rows))
}

func TestAttach(t *testing.T) {
	db := testutils.OpenSQLDB(t, DriverName)
	ctx := context.Background()
	_, err := Attach(ctx, db)
	assert.Error(t, err)

	s, err := Create(ctx, db, employee.Columns())
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, employee.Generate(5, 1)))

	s2, err := Attach(ctx, db)
	require.NoError(t, err)
	cols, err := s2.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, employee.Columns(), cols)
	res, err := s2.Query(ctx, rowsource.Query{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
}

func TestStoreAgreesWithMemory(t *testing.T) {
	rows := employee.Generate(200, 11)
	s := createStore(t, rows)
	mem := rowsource.NewMemory(employee.Columns(), rowsource.MemoryOptions{})
	mem.Load(rows)
	ctx := context.Background()

	for _, q := range []rowsource.Query{
		{Sort: grid.SortModel{{Field: "name", Direction: grid.SortAsc}}},
		{Sort: grid.SortModel{{Field: "salary", Direction: grid.SortDesc}, {Field: "name", Direction: grid.SortAsc}}},
		{Sort: grid.SortModel{{Field: "dateCreated", Direction: grid.SortAsc}}},
		{Sort: grid.SortModel{{Field: "isAdmin", Direction: grid.SortDesc}}},
		{Filter: grid.FilterModel{Items: []grid.FilterItem{
			{Field: "salary", Operator: grid.OpGreater, Value: "150000"},
		}}},
		{Filter: grid.FilterModel{Items: []grid.FilterItem{
			{Field: "country", Operator: grid.OpEquals, Value: rows[0].Values["country"].(string)},
		}}},
		{Filter: grid.FilterModel{
			Items: []grid.FilterItem{
				{Field: "rating", Operator: grid.OpIsAnyOf, Values: []string{"1", "5"}},
				{Field: "isAdmin", Operator: grid.OpEquals, Value: "true"},
			},
			LinkOperator: grid.LinkOr,
		}},
		{Filter: grid.FilterModel{Items: []grid.FilterItem{
			{Field: "dateCreated", Operator: grid.OpLessEquals, Value: "2018-06-30"},
			{Field: "rating", Operator: grid.OpNotEquals, Value: "3"},
		}}},
	} {
		expected, err := mem.Query(ctx, q)
		require.NoError(t, err)
		actual, err := s.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, expected.Total, actual.Total, "sort %s filter %s", q.Sort, q.Filter)
		assert.Equal(t, rowIDs(expected.Rows), rowIDs(actual.Rows), "sort %s filter %s", q.Sort, q.Filter)
	}
}

func TestStoreLikeAndGlob(t *testing.T) {
	rows := []grid.Row{
		{ID: "a", Values: map[string]interface{}{"name": "100% Anna"}},
		{ID: "b", Values: map[string]interface{}{"name": "Bob_Hanna"}},
		{ID: "c", Values: map[string]interface{}{"name": ""}},
	}
	db := testutils.OpenSQLDB(t, DriverName)
	ctx := context.Background()
	s, err := Create(ctx, db, grid.Columns{{Field: "name", Type: grid.ColumnString}})
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, rows))

	for _, c := range []struct {
		item grid.FilterItem
		ids  []grid.RowID
	}{
		{grid.FilterItem{Field: "name", Operator: grid.OpContains, Value: "%"}, []grid.RowID{"a"}},
		{grid.FilterItem{Field: "name", Operator: grid.OpContains, Value: "anna"}, []grid.RowID{"a", "b"}},
		{grid.FilterItem{Field: "name", Operator: grid.OpStartsWith, Value: "bob_"}, []grid.RowID{"b"}},
		{grid.FilterItem{Field: "name", Operator: grid.OpEndsWith, Value: "NNA"}, []grid.RowID{"a", "b"}},
		{grid.FilterItem{Field: "name", Operator: grid.OpMatches, Value: "B*"}, []grid.RowID{"b"}},
		{grid.FilterItem{Field: "name", Operator: grid.OpIsEmpty}, []grid.RowID{"c"}},
	} {
		res, err := s.Query(ctx, rowsource.Query{Filter: grid.FilterModel{Items: []grid.FilterItem{c.item}}})
		require.NoError(t, err)
		assert.Equal(t, c.ids, rowIDs(res.Rows), "filter %s", c.item)
	}
}

func TestStoreNaturalStringFilters(t *testing.T) {
	cols := grid.Columns{
		{Field: "code", Type: grid.ColumnString},
		{Field: "active", Type: grid.ColumnBool},
	}
	rows := []grid.Row{
		{ID: "1", Values: map[string]interface{}{"code": "emp1", "active": true}},
		{ID: "2", Values: map[string]interface{}{"code": "emp2", "active": false}},
		{ID: "10", Values: map[string]interface{}{"code": "emp10", "active": true}},
		{ID: "9", Values: map[string]interface{}{"code": "emp9", "active": false}},
	}
	db := testutils.OpenSQLDB(t, DriverName)
	ctx := context.Background()
	s, err := Create(ctx, db, cols)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, rows))
	mem := rowsource.NewMemory(cols, rowsource.MemoryOptions{})
	mem.Load(rows)

	for _, c := range []struct {
		item grid.FilterItem
		ids  []grid.RowID
	}{
		{grid.FilterItem{Field: "code", Operator: grid.OpGreater, Value: "emp2"}, []grid.RowID{"10", "9"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpGreaterEquals, Value: "emp9"}, []grid.RowID{"10", "9"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpLess, Value: "emp10"}, []grid.RowID{"1", "2", "9"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpLessEquals, Value: "emp2"}, []grid.RowID{"1", "2"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpEquals, Value: "emp10"}, []grid.RowID{"10"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpNotEquals, Value: "emp10"}, []grid.RowID{"1", "2", "9"}},
		{grid.FilterItem{Field: "code", Operator: grid.OpIsAnyOf, Values: []string{"emp9", "emp1"}}, []grid.RowID{"1", "9"}},
	} {
		q := rowsource.Query{Filter: grid.FilterModel{Items: []grid.FilterItem{c.item}}}
		expected, err := mem.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, c.ids, rowIDs(expected.Rows), "memory filter %s", c.item)
		actual, err := s.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, c.ids, rowIDs(actual.Rows), "sqlite filter %s", c.item)
	}

	for _, op := range []string{grid.OpContains, grid.OpStartsWith, grid.OpEndsWith, grid.OpMatches} {
		q := rowsource.Query{Filter: grid.FilterModel{Items: []grid.FilterItem{
			{Field: "active", Operator: op, Value: "tr"},
		}}}
		_, err = mem.Query(ctx, q)
		assert.Error(t, err, op)
		_, err = s.Query(ctx, q)
		assert.Error(t, err, op)
	}
}

func TestStoreUnknownField(t *testing.T) {
	s := createStore(t, employee.Generate(3, 1))
	_, err := s.Query(context.Background(), rowsource.Query{
		Sort: grid.SortModel{{Field: `name"; DROP TABLE grid_rows; --`}},
	})
	assert.True(t, errors.Is(err, rowsource.ErrUnknownField))
	_, err = s.Query(context.Background(), rowsource.Query{
		Filter: grid.FilterModel{Items: []grid.FilterItem{{Field: "nope", Operator: grid.OpEquals}}},
	})
	assert.True(t, errors.Is(err, rowsource.ErrUnknownField))
}

type countingBar struct {
	n       int
	done    bool
	aborted bool
}

func (b *countingBar) IncrBy(n int) { b.n += n }
func (b *countingBar) Done()        { b.done = true }
func (b *countingBar) Abort()       { b.aborted = true }

func TestStoreLoadWithProgress(t *testing.T) {
	ctx := context.Background()
	s := createStore(t, nil)
	bar := &countingBar{}
	require.NoError(t, s.LoadWithProgress(ctx, employee.Generate(12, 1), bar))
	assert.Equal(t, &countingBar{n: 12, done: true}, bar)

	rows := employee.Generate(3, 1)
	rows = append(rows, rows[0])
	bar = &countingBar{}
	assert.Error(t, s.LoadWithProgress(ctx, rows, bar))
	assert.Equal(t, &countingBar{n: 3, aborted: true}, bar)

	res, err := s.Query(ctx, rowsource.Query{})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
}
