// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/wrgl/gridsync/pkg/grid"
	"github.com/wrgl/gridsync/pkg/rowsource"
)

// Sink receives state changes meant for the UI. Methods are called with the
// synchronizer's lock held, in the order changes are applied, so they must
// not call back into the Synchronizer. Identical calls are idempotent.
type Sink interface {
	ReplaceRows(first int, rows []grid.Row)
	SetRowCount(n int)
	SetColumns(cols grid.Columns)
	SetState(state State)
}

type noopSink struct{}

func (noopSink) ReplaceRows(int, []grid.Row) {}
func (noopSink) SetRowCount(int)             {}
func (noopSink) SetColumns(grid.Columns)     {}
func (noopSink) SetState(State)              {}

type Options struct {
	Logger logr.Logger
	Clock  Clock

	// DebounceWait defaults to DefaultDebounceWait. A negative value
	// dispatches every viewport change right away.
	DebounceWait time.Duration

	// DisableViewportFetch turns OnViewportChanged into a no-op until
	// SetFetchEnabled(true) is called
	DisableViewportFetch bool

	// PageSize, when positive, makes RequestRange walk the source with
	// cursor pagination instead of asking for the full matching set
	PageSize int

	// MaxWindowRows bounds the number of materialized rows. Zero means
	// unbounded.
	MaxWindowRows int

	// OnError receives data source errors of viewport driven fetches
	OnError func(err error)
}

// Synchronizer mediates between viewport driven fetch requests of a grid
// and a row source. All mutation of the row window and row count happens
// in apply, guarded by a monotonically increasing sequence number.
type Synchronizer struct {
	source    rowsource.Source
	sink      Sink
	opts      Options
	logger    logr.Logger
	debouncer *Debouncer[grid.FetchRequest]
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	fetchEnabled bool
	initStarted  bool
	initDone     bool
	deferred     *grid.FetchRequest
	issued       uint64
	applied      uint64
	discarded    uint64
	activeKey    string
	shownKey     string
	hasShown     bool
	state        State
	window       *RowWindow
	rowCount     int
	columns      grid.Columns
	lastReq      grid.FetchRequest
	lastErr      error
}

func New(source rowsource.Source, sink Sink, opts Options) *Synchronizer {
	if sink == nil {
		sink = noopSink{}
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.DebounceWait == 0 {
		opts.DebounceWait = DefaultDebounceWait
	}
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		source:       source,
		sink:         sink,
		opts:         opts,
		logger:       logger.WithName("viewsync"),
		ctx:          ctx,
		cancel:       cancel,
		fetchEnabled: !opts.DisableViewportFetch,
		window:       NewRowWindow(),
	}
	s.debouncer = NewDebouncer(opts.Clock, opts.DebounceWait, s.dispatch)
	return s
}

// RequestRange queries the source and returns the rows in [req.First,
// req.Last) together with the total number of matching rows. It does not
// touch the row window.
func (s *Synchronizer) RequestRange(ctx context.Context, req grid.FetchRequest) (*grid.FetchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidRequest(err)
	}
	q := rowsource.Query{Sort: req.Sort, Filter: req.Filter}
	var rows []grid.Row
	var total int
	if rs, ok := s.source.(rowsource.RangeSource); ok {
		res, err := rs.QueryRange(ctx, q, req.First, req.Last)
		if err != nil {
			return nil, sourceFailed(req, err)
		}
		rows, total = res.Rows, res.Total
		if total < 0 {
			return nil, malformedResult(req, "negative total %d", total)
		}
	} else {
		all, n, err := s.queryAll(ctx, req, q)
		if err != nil {
			return nil, err
		}
		rows, total = rowsource.Slice(all, req.First, req.Last), n
	}
	expected := total
	if req.Last < expected {
		expected = req.Last
	}
	expected -= req.First
	if expected < 0 {
		expected = 0
	}
	if len(rows) != expected {
		return nil, malformedResult(req, "got %d rows, expected %d (total %d)", len(rows), expected, total)
	}
	out := make([]grid.Row, len(rows))
	copy(out, rows)
	return &grid.FetchResult{Rows: out, Total: total}, nil
}

// queryAll returns the matching rows up to at least req.Last, walking
// cursor pages when PageSize is set
func (s *Synchronizer) queryAll(ctx context.Context, req grid.FetchRequest, q rowsource.Query) ([]grid.Row, int, error) {
	if s.opts.PageSize <= 0 {
		res, err := s.source.Query(ctx, q)
		if err != nil {
			return nil, 0, sourceFailed(req, err)
		}
		if res.Total < 0 {
			return nil, 0, malformedResult(req, "negative total %d", res.Total)
		}
		if len(res.Rows) > res.Total {
			return nil, 0, malformedResult(req, "got %d rows but total is %d", len(res.Rows), res.Total)
		}
		return res.Rows, res.Total, nil
	}
	q.PageSize = s.opts.PageSize
	var rows []grid.Row
	total := -1
	for {
		res, err := s.source.Query(ctx, q)
		if err != nil {
			return nil, 0, sourceFailed(req, err)
		}
		if res.Total < 0 {
			return nil, 0, malformedResult(req, "negative total %d", res.Total)
		}
		if total < 0 {
			total = res.Total
		}
		rows = append(rows, res.Rows...)
		if len(rows) > total {
			return nil, 0, malformedResult(req, "got %d rows but total is %d", len(rows), total)
		}
		if res.NextCursor == "" || len(rows) >= req.Last {
			return rows, total, nil
		}
		if len(res.Rows) == 0 {
			return nil, 0, malformedResult(req, "empty page with a next cursor")
		}
		q.Cursor = res.NextCursor
	}
}

// OnViewportChanged is called by the UI whenever the visible range
// changes. Calls are debounced; only the last request of a burst is sent
// to the source.
func (s *Synchronizer) OnViewportChanged(req grid.FetchRequest) error {
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}
	s.mu.Lock()
	closed, enabled := s.closed, s.fetchEnabled
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !enabled {
		s.logger.V(1).Info("viewport fetching disabled, ignoring", "request", req.String())
		return nil
	}
	s.debouncer.Trigger(req)
	return nil
}

func (s *Synchronizer) setState(state State) {
	if s.state != state {
		s.state = state
		s.sink.SetState(state)
	}
}

// begin takes the next sequence number for req. Callers hold s.mu.
func (s *Synchronizer) begin(req grid.FetchRequest) uint64 {
	s.issued++
	s.activeKey = req.DatasetKey()
	if !s.hasShown || s.activeKey != s.shownKey {
		s.setState(Loading)
	} else {
		s.setState(Refetching)
	}
	return s.issued
}

func (s *Synchronizer) dispatch(req grid.FetchRequest) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.fetchEnabled {
		s.mu.Unlock()
		s.logger.V(1).Info("viewport fetching disabled, dropping", "request", req.String())
		return
	}
	if !s.initDone {
		s.deferred = &req
		s.mu.Unlock()
		s.logger.V(1).Info("deferring viewport fetch until initial window is set", "request", req.String())
		return
	}
	seq := s.begin(req)
	s.wg.Add(1)
	s.mu.Unlock()
	s.logger.V(1).Info("fetching rows", "seq", seq, "request", req.String())
	go func() {
		defer s.wg.Done()
		res, err := s.RequestRange(s.ctx, req)
		if err = s.apply(seq, req, res, err); err != nil && !errors.Is(err, ErrStaleResult) {
			if s.opts.OnError != nil {
				s.opts.OnError(err)
			}
		}
	}()
}

// apply is the only place where the window and row count change
func (s *Synchronizer) apply(seq uint64, req grid.FetchRequest, res *grid.FetchResult, fetchErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := req.DatasetKey()
	if seq <= s.applied || key != s.activeKey || s.closed {
		s.discarded++
		s.logger.V(1).Info("discarding stale result", "seq", seq, "applied", s.applied, "request", req.String())
		return ErrStaleResult
	}
	s.applied = seq
	if fetchErr != nil {
		s.lastErr = fetchErr
		s.logger.Error(fetchErr, "fetch failed", "seq", seq)
		if s.hasShown {
			s.setState(Ready)
		}
		return fetchErr
	}
	if !s.hasShown || key != s.shownKey {
		s.window.Reset()
		s.shownKey = key
		s.hasShown = true
		s.rowCount = res.Total
	} else if res.Total > s.rowCount {
		s.rowCount = res.Total
	}
	s.window.Replace(req.First, res.Rows)
	s.window.Evict(req.First, req.Last, s.opts.MaxWindowRows)
	s.lastReq = req
	s.lastErr = nil
	s.sink.ReplaceRows(req.First, res.Rows)
	s.sink.SetRowCount(s.rowCount)
	if seq == s.issued {
		s.setState(Ready)
	}
	s.logger.V(1).Info("applied rows", "seq", seq, "rows", len(res.Rows), "total", res.Total)
	return nil
}

// SetInitialWindow waits for the source to become ready then fetches and
// applies req. It can only succeed once.
func (s *Synchronizer) SetInitialWindow(ctx context.Context, req grid.FetchRequest) error {
	if err := req.Validate(); err != nil {
		return invalidRequest(err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.initStarted {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initStarted = true
	s.mu.Unlock()

	if err := rowsource.WaitReady(ctx, s.source); err != nil {
		s.mu.Lock()
		s.initStarted = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	seq := s.begin(req)
	s.mu.Unlock()
	res, err := s.RequestRange(ctx, req)
	err = s.apply(seq, req, res, err)

	s.mu.Lock()
	s.initDone = true
	deferred := s.deferred
	s.deferred = nil
	s.mu.Unlock()
	if deferred != nil {
		s.dispatch(*deferred)
	}
	if errors.Is(err, ErrStaleResult) {
		return nil
	}
	return err
}

// UpdateColumns replaces the column set. An empty set is valid.
func (s *Synchronizer) UpdateColumns(cols grid.Columns) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = append(grid.Columns{}, cols...)
	s.sink.SetColumns(s.columns)
}

func (s *Synchronizer) SetFetchEnabled(enabled bool) {
	s.mu.Lock()
	s.fetchEnabled = enabled
	s.mu.Unlock()
	if !enabled {
		s.debouncer.Stop()
	}
}

func (s *Synchronizer) SetDebounceWait(d time.Duration) {
	if d == 0 {
		d = DefaultDebounceWait
	}
	s.debouncer.SetWait(d)
}

// FlushViewport dispatches the pending viewport request without waiting
// for the debounce timer
func (s *Synchronizer) FlushViewport() bool {
	return s.debouncer.Flush()
}

// Wait blocks until all dispatched fetches have completed
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Close drops the pending viewport request and cancels in-flight fetches
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.debouncer.Stop()
	s.cancel()
	s.wg.Wait()
}

type Snapshot struct {
	State        State
	RowCount     int
	Rows         []grid.Row
	Positions    []int
	Columns      grid.Columns
	Request      grid.FetchRequest
	LastError    error
	Issued       uint64
	Applied      uint64
	Discarded    uint64
	Coalesced    uint64
	FetchEnabled bool
}

func (s *Synchronizer) Snapshot() Snapshot {
	coalesced := s.debouncer.Coalesced()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:        s.state,
		RowCount:     s.rowCount,
		Rows:         s.window.Rows(),
		Positions:    s.window.Positions(),
		Columns:      append(grid.Columns{}, s.columns...),
		Request:      s.lastReq,
		LastError:    s.lastErr,
		Issued:       s.issued,
		Applied:      s.applied,
		Discarded:    s.discarded,
		Coalesced:    coalesced,
		FetchEnabled: s.fetchEnabled,
	}
}

// RowAt returns the materialized row at pos
func (s *Synchronizer) RowAt(pos int) (grid.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.At(pos)
}
