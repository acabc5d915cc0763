// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package rowsource

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wrgl/gridsync/pkg/grid"
)

type MemoryOptions struct {
	// MinDelay and MaxDelay bound the simulated response latency
	MinDelay time.Duration
	MaxDelay time.Duration

	// UseCursorPagination makes Query honor Query.PageSize and Query.Cursor
	UseCursorPagination bool

	// Seed for the latency generator. Zero means time based.
	Seed int64
}

// Memory simulates a remote server over an in-memory row set
type Memory struct {
	opts    MemoryOptions
	columns grid.Columns

	mu    sync.RWMutex
	rows  []grid.Row
	ready chan struct{}
	once  sync.Once

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewMemory returns a source that is not ready until Load is called
func NewMemory(columns grid.Columns, opts MemoryOptions) *Memory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	return &Memory{
		opts:    opts,
		columns: columns,
		ready:   make(chan struct{}),
		rnd:     rand.New(rand.NewSource(seed)),
	}
}

// Load sets the backing rows and marks the source ready. Subsequent calls
// replace the rows.
func (m *Memory) Load(rows []grid.Row) {
	m.mu.Lock()
	m.rows = rows
	m.mu.Unlock()
	m.once.Do(func() {
		close(m.ready)
	})
}

func (m *Memory) Ready() <-chan struct{} {
	return m.ready
}

func (m *Memory) Columns(ctx context.Context) (grid.Columns, error) {
	return m.columns, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *Memory) delay() time.Duration {
	if m.opts.MaxDelay <= 0 {
		return 0
	}
	m.rndMu.Lock()
	defer m.rndMu.Unlock()
	span := int64(m.opts.MaxDelay - m.opts.MinDelay)
	if span <= 0 {
		return m.opts.MinDelay
	}
	return m.opts.MinDelay + time.Duration(m.rnd.Int63n(span+1))
}

func (m *Memory) wait(ctx context.Context) error {
	d := m.delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) validateSort(s grid.SortModel) error {
	for _, item := range s {
		if _, ok := m.columns.Lookup(item.Field); !ok {
			return fmt.Errorf("%w: sort field %q", ErrUnknownField, item.Field)
		}
	}
	return nil
}

// matching returns filtered then stably sorted rows. The result never
// aliases the backing slice.
func (m *Memory) matching(q Query) ([]grid.Row, error) {
	if err := m.validateSort(q.Sort); err != nil {
		return nil, err
	}
	for _, item := range q.Filter.Items {
		if _, ok := m.columns.Lookup(item.Field); !ok {
			return nil, fmt.Errorf("%w: filter field %q", ErrUnknownField, item.Field)
		}
	}
	mt, err := grid.NewMatcher(q.Filter, m.columns)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	rows := make([]grid.Row, 0, len(m.rows))
	for _, r := range m.rows {
		if mt.Match(r) {
			rows = append(rows, r)
		}
	}
	m.mu.RUnlock()
	if len(q.Sort) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return q.Sort.Less(rows[i], rows[j])
		})
	}
	return rows, nil
}

func (m *Memory) Query(ctx context.Context, q Query) (*Result, error) {
	if !IsReady(m) {
		return nil, ErrNotReady
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	rows, err := m.matching(q)
	if err != nil {
		return nil, err
	}
	total := len(rows)
	if !m.opts.UseCursorPagination || q.PageSize <= 0 {
		return &Result{Rows: rows, Total: total}, nil
	}
	start, err := decodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	res := &Result{Rows: rows[start:end], Total: total}
	if end < total {
		res.NextCursor = encodeCursor(end)
	}
	return res, nil
}

// Slice returns rows[first:last] clamped to the bounds of rows
func Slice(rows []grid.Row, first, last int) []grid.Row {
	n := len(rows)
	if first > n {
		first = n
	}
	if last > n {
		last = n
	}
	if first >= last {
		return []grid.Row{}
	}
	return rows[first:last]
}

func encodeCursor(off int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("off:" + strconv.Itoa(off)))
}

func decodeCursor(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(b) < 5 || string(b[:4]) != "off:" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	off, err := strconv.Atoi(string(b[4:]))
	if err != nil || off < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	return off, nil
}
