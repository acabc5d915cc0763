// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package rowsource

import (
	"context"
	"errors"

	"github.com/wrgl/gridsync/pkg/grid"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrNotReady      = errors.New("row source is not ready")
)

// Query selects the rows of a logical dataset. Sources apply Filter then
// Sort themselves. When PageSize is positive and the source supports cursor
// pagination, at most PageSize rows starting at Cursor are returned.
type Query struct {
	Sort     grid.SortModel
	Filter   grid.FilterModel
	Cursor   string
	PageSize int
}

type Result struct {
	Rows []grid.Row

	// Total is the number of rows matching the query, independent of paging
	Total int

	// NextCursor is empty when there are no more pages
	NextCursor string
}

type Source interface {
	Query(ctx context.Context, q Query) (*Result, error)

	// Ready is closed once the source finished bootstrapping
	Ready() <-chan struct{}
}

// RangeSource is implemented by sources that can slice [first, last)
// themselves instead of returning the whole matching set.
type RangeSource interface {
	Source
	QueryRange(ctx context.Context, q Query, first, last int) (*Result, error)
}

// ColumnSource is implemented by sources that know their own schema
type ColumnSource interface {
	Columns(ctx context.Context) (grid.Columns, error)
}

// IsReady reports whether src has finished bootstrapping without blocking
func IsReady(src Source) bool {
	select {
	case <-src.Ready():
		return true
	default:
		return false
	}
}

// WaitReady blocks until src is ready or ctx is done
func WaitReady(ctx context.Context, src Source) error {
	select {
	case <-src.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closedChan is returned by Ready of sources that never bootstrap
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func AlwaysReady() <-chan struct{} {
	return closedChan
}
