// Package orchestrator drives interactive email search: it debounces
// rapid input changes, cancels superseded fetches, and accumulates
// paged results. Callers mutate the input (SetText, SetFilters) and
// observe state through Snapshot or an update callback.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
	"github.com/ledgerbox/ledgerbox/internal/suggest"
)

// DefaultDebounceInterval is the pause after the last input change
// before a fetch is issued.
const DefaultDebounceInterval = 300 * time.Millisecond

// State is the orchestrator's lifecycle phase.
type State int

const (
	// StateIdle means no fetch is pending or running.
	StateIdle State = iota
	// StateDebouncing means an input change is waiting out the
	// debounce interval.
	StateDebouncing
	// StateFetching means a fetch is in flight.
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// Searcher is the service surface the orchestrator drives.
// *searchsvc.Service implements it.
type Searcher interface {
	Search(ctx context.Context, userID string, p searchsvc.Params) (*searchsvc.Response, error)
	Suggest(ctx context.Context, userID, partial string) ([]suggest.Suggestion, error)
	PageSize() int
}

// Snapshot is a point-in-time copy of the orchestrator's visible
// state. Results and Err survive input changes until the next fetch
// completes, so the UI never flashes empty mid-typing.
type Snapshot struct {
	State   State
	Text    string
	Filters search.FilterSet
	Results []searchsvc.Result
	Total   int64
	HasMore bool
	Page    int
	Err     error
}

// Orchestrator serializes one user's search session. All state lives
// under a single mutex; fetches run in goroutines and their results
// are applied only while their token is still current.
type Orchestrator struct {
	searcher Searcher
	userID   string
	interval time.Duration
	logger   *slog.Logger
	onUpdate func(Snapshot)

	mu      sync.Mutex
	token   uint64 // increment to invalidate pending timers and fetches
	timer   *time.Timer
	cancel  context.CancelFunc
	state   State
	text    string
	filters search.FilterSet
	page    int
	results []searchsvc.Result
	total   int64
	hasMore bool
	err     error
	wg      sync.WaitGroup
}

// New creates an orchestrator for one user session.
func New(searcher Searcher, userID string) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		userID:   userID,
		interval: DefaultDebounceInterval,
		logger:   slog.Default(),
	}
}

// WithInterval sets the debounce interval. Used by tests to shorten
// waits.
func (o *Orchestrator) WithInterval(d time.Duration) *Orchestrator {
	if d > 0 {
		o.interval = d
	}
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithOnUpdate registers a callback invoked with a fresh Snapshot
// after every state change. Called without the orchestrator lock held.
func (o *Orchestrator) WithOnUpdate(fn func(Snapshot)) *Orchestrator {
	o.onUpdate = fn
	return o
}

// SetText records new query text and restarts the debounce timer.
func (o *Orchestrator) SetText(text string) {
	o.mu.Lock()
	o.text = text
	o.scheduleLocked()
	o.mu.Unlock()
	o.notify()
}

// SetFilters records a new filter set and restarts the debounce timer.
func (o *Orchestrator) SetFilters(filters search.FilterSet) {
	o.mu.Lock()
	o.filters = filters
	o.scheduleLocked()
	o.mu.Unlock()
	o.notify()
}

// scheduleLocked invalidates any pending timer or in-flight fetch and
// arms a new debounce timer. Every input change debounces, even one
// that empties the criteria; whether to fetch or clear is decided when
// the timer fires.
func (o *Orchestrator) scheduleLocked() {
	o.token++
	o.page = 0
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	o.state = StateDebouncing
	token := o.token
	o.timer = time.AfterFunc(o.interval, func() {
		o.fire(token)
	})
}

// fire runs when the debounce timer elapses. With no criteria it
// clears results without a fetch; otherwise it launches the fetch.
// Either way a token invalidated while the timer was pending makes
// this a no-op.
func (o *Orchestrator) fire(token uint64) {
	o.mu.Lock()
	if token != o.token {
		o.mu.Unlock()
		return
	}
	q, err := search.Build(o.text, o.filters)
	if err == nil && !q.HasCriteria() {
		o.results = nil
		o.total = 0
		o.hasMore = false
		o.err = nil
		o.state = StateIdle
		o.mu.Unlock()
		o.notify()
		return
	}
	o.startFetchLocked(token, o.page, false)
	o.mu.Unlock()
	o.notify()
}

// startFetchLocked launches a fetch goroutine for the given page.
// append controls whether the response extends or replaces results.
func (o *Orchestrator) startFetchLocked(token uint64, page int, appendResults bool) {
	o.state = StateFetching
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	p := searchsvc.Params{
		Text:    o.text,
		Filters: o.filters,
		Page:    page,
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		resp, err := o.searcher.Search(ctx, o.userID, p)
		o.apply(token, page, appendResults, resp, err)
	}()
}

// apply installs a fetch outcome if its token is still current.
// Late responses from superseded queries are dropped here.
func (o *Orchestrator) apply(token uint64, page int, appendResults bool, resp *searchsvc.Response, err error) {
	o.mu.Lock()
	if token != o.token {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	if err != nil {
		// Keep the last good results visible alongside the error.
		o.err = err
		o.logger.Warn("search fetch failed", "user", o.userID, "error", err)
	} else {
		o.err = nil
		o.page = page
		o.total = resp.Total
		o.hasMore = resp.HasMore
		if appendResults {
			o.results = append(o.results, resp.Results...)
		} else {
			o.results = resp.Results
		}
	}
	o.mu.Unlock()
	o.notify()
}

// LoadMore fetches the next page for the current query and appends it.
// It is a no-op while a fetch or debounce is pending, or when the last
// page was short.
func (o *Orchestrator) LoadMore() {
	o.mu.Lock()
	if o.state != StateIdle || !o.hasMore {
		o.mu.Unlock()
		return
	}
	o.token++
	o.startFetchLocked(o.token, o.page+1, true)
	o.mu.Unlock()
	o.notify()
}

// Suggest fetches typeahead candidates for the partial input. It does
// not touch the debounce token, so an in-flight search is unaffected.
func (o *Orchestrator) Suggest(ctx context.Context, partial string) ([]suggest.Suggestion, error) {
	return o.searcher.Suggest(ctx, o.userID, partial)
}

// Snapshot returns a copy of the current visible state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	results := make([]searchsvc.Result, len(o.results))
	copy(results, o.results)
	return Snapshot{
		State:   o.state,
		Text:    o.text,
		Filters: o.filters,
		Results: results,
		Total:   o.total,
		HasMore: o.hasMore,
		Page:    o.page,
		Err:     o.err,
	}
}

func (o *Orchestrator) notify() {
	if o.onUpdate == nil {
		return
	}
	o.onUpdate(o.Snapshot())
}

// Close invalidates pending work and waits for in-flight fetches to
// finish. The orchestrator must not be used afterwards.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.token++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state = StateIdle
	o.mu.Unlock()
	o.wg.Wait()
}
