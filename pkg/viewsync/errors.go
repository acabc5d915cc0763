// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

import (
	"errors"
	"fmt"

	"github.com/wrgl/gridsync/pkg/grid"
)

var (
	// ErrInvalidRequest is returned for malformed requests, before the
	// source is queried
	ErrInvalidRequest = errors.New("invalid fetch request")

	// ErrStaleResult marks a completed fetch that was superseded. It never
	// reaches the UI.
	ErrStaleResult = errors.New("stale result discarded")

	ErrAlreadyInitialized = errors.New("initial window already set")
	ErrClosed             = errors.New("synchronizer closed")
)

// DataSourceError reports a failed query or a result that cannot be
// trusted (negative total, wrong number of rows for the range).
type DataSourceError struct {
	Request grid.FetchRequest
	msg     string
	err     error
}

func (e *DataSourceError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("data source error for %s: %s: %v", e.Request.String(), e.msg, e.err)
	}
	return fmt.Sprintf("data source error for %s: %s", e.Request.String(), e.msg)
}

func (e *DataSourceError) Unwrap() error {
	return e.err
}

func sourceFailed(req grid.FetchRequest, err error) *DataSourceError {
	return &DataSourceError{Request: req, msg: "query failed", err: err}
}

func malformedResult(req grid.FetchRequest, format string, args ...interface{}) *DataSourceError {
	return &DataSourceError{Request: req, msg: fmt.Sprintf(format, args...)}
}

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}
