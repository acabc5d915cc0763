// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
)

var testColumns = grid.Columns{
	{Field: "name", Type: grid.ColumnString},
	{Field: "salary", Type: grid.ColumnInt},
}

func testRows(n int) []grid.Row {
	rows := make([]grid.Row, n)
	for i := range rows {
		rows[i] = grid.Row{
			ID: grid.RowID(fmt.Sprintf("r%d", i)),
			Values: map[string]interface{}{
				"name":   fmt.Sprintf("emp%d", i),
				"salary": int64(i % 7),
			},
		}
	}
	return rows
}

func rowIDs(rows []grid.Row) []grid.RowID {
	sl := make([]grid.RowID, len(rows))
	for i, r := range rows {
		sl[i] = r.ID
	}
	return sl
}

func rangeOf(first, last int) []int {
	sl := []int{}
	for i := first; i < last; i++ {
		sl = append(sl, i)
	}
	return sl
}

func memorySource(n int) *rowsource.Memory {
	m := rowsource.NewMemory(testColumns, rowsource.MemoryOptions{})
	m.Load(testRows(n))
	return m
}

type callResponse struct {
	res *rowsource.Result
	err error
}

type pendingCall struct {
	q           rowsource.Query
	first, last int
	resp        chan callResponse
}

func (c *pendingCall) respondRows(all []grid.Row) {
	c.resp <- callResponse{res: &rowsource.Result{
		Rows:  rowsource.Slice(all, c.first, c.last),
		Total: len(all),
	}}
}

func (c *pendingCall) respond(res *rowsource.Result, err error) {
	c.resp <- callResponse{res: res, err: err}
}

// blockingSource parks every query until the test responds to it
type blockingSource struct {
	ready chan struct{}
	calls chan *pendingCall
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		ready: make(chan struct{}),
		calls: make(chan *pendingCall, 16),
	}
}

func (s *blockingSource) Ready() <-chan struct{} {
	return s.ready
}

func (s *blockingSource) markReady() {
	close(s.ready)
}

func (s *blockingSource) Query(ctx context.Context, q rowsource.Query) (*rowsource.Result, error) {
	return s.QueryRange(ctx, q, 0, -1)
}

func (s *blockingSource) QueryRange(ctx context.Context, q rowsource.Query, first, last int) (*rowsource.Result, error) {
	c := &pendingCall{q: q, first: first, last: last, resp: make(chan callResponse, 1)}
	s.calls <- c
	select {
	case r := <-c.resp:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *blockingSource) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a query")
	}
	return nil
}

// fixedSource returns the same result for every query
type fixedSource struct {
	res   *rowsource.Result
	err   error
	mu    sync.Mutex
	calls int
}

func (s *fixedSource) Ready() <-chan struct{} {
	return rowsource.AlwaysReady()
}

func (s *fixedSource) Query(ctx context.Context, q rowsource.Query) (*rowsource.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.res, s.err
}

func (s *fixedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu     sync.Mutex
	rows   map[int]grid.Row
	count  int
	cols   grid.Columns
	states []State
	counts []int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{rows: map[int]grid.Row{}}
}

func (s *recordingSink) ReplaceRows(first int, rows []grid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range rows {
		s.rows[first+i] = r
	}
}

func (s *recordingSink) SetRowCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
	s.counts = append(s.counts, n)
}

func (s *recordingSink) SetColumns(cols grid.Columns) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols = cols
}

func (s *recordingSink) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *recordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func newManualSync(src rowsource.Source, sink Sink) (*Synchronizer, *ManualClock) {
	clock := NewManualClock(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(src, sink, Options{Clock: clock})
	return s, clock
}

// initWindow sets the initial window on a blockingSource backed synchronizer
func initWindow(t *testing.T, s *Synchronizer, src *blockingSource, req grid.FetchRequest, all []grid.Row) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- s.SetInitialWindow(context.Background(), req)
	}()
	src.next(t).respondRows(all)
	require.NoError(t, <-done)
}
