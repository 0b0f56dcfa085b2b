package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ledgerbox/ledgerbox/internal/query"
	"github.com/ledgerbox/ledgerbox/internal/rank"
	"github.com/ledgerbox/ledgerbox/internal/search"
	"github.com/ledgerbox/ledgerbox/internal/searchsvc"
	"github.com/ledgerbox/ledgerbox/internal/suggest"
)

// testInterval keeps debounce waits short in tests.
const testInterval = 20 * time.Millisecond

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []searchsvc.Params
	respond func(p searchsvc.Params) (*searchsvc.Response, error)
	// blockUntil, when non-nil, is received from before responding.
	blockUntil chan struct{}

	suggestions []suggest.Suggestion
}

func (f *fakeSearcher) Search(ctx context.Context, userID string, p searchsvc.Params) (*searchsvc.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	block := f.blockUntil
	respond := f.respond
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if respond != nil {
		return respond(p)
	}
	return &searchsvc.Response{}, nil
}

func (f *fakeSearcher) Suggest(_ context.Context, _, _ string) ([]suggest.Suggestion, error) {
	return f.suggestions, nil
}

func (f *fakeSearcher) PageSize() int { return 50 }

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSearcher) lastCall() searchsvc.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func resultsNamed(subjects ...string) []searchsvc.Result {
	out := make([]searchsvc.Result, len(subjects))
	for i, s := range subjects {
		out[i] = searchsvc.Result{
			ScoredEmail: rank.ScoredEmail{
				EmailSummary:   query.EmailSummary{ID: int64(i + 1), Subject: s},
				RelevanceScore: 1,
			},
		}
	}
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDebounceCoalescesRapidInput(t *testing.T) {
	fake := &fakeSearcher{
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			return &searchsvc.Response{Results: resultsNamed(p.Text), Total: 1}, nil
		},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	o.SetText("i")
	o.SetText("in")
	o.SetText("invoice")

	waitFor(t, func() bool {
		snap := o.Snapshot()
		return snap.State == StateIdle && len(snap.Results) == 1
	})

	if got := fake.callCount(); got != 1 {
		t.Errorf("search invoked %d times, want 1", got)
	}
	if got := fake.lastCall().Text; got != "invoice" {
		t.Errorf("fetched text %q, want final input", got)
	}
}

func TestEmptyCriteriaClearsWithoutFetch(t *testing.T) {
	fake := &fakeSearcher{
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			return &searchsvc.Response{Results: resultsNamed("hit"), Total: 1}, nil
		},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	o.SetText("invoice")
	waitFor(t, func() bool { return len(o.Snapshot().Results) == 1 })

	o.SetText("   ")

	// Clearing the input debounces like any other change: the old
	// results stay visible until the timer fires.
	snap := o.Snapshot()
	if snap.State != StateDebouncing {
		t.Errorf("state = %v, want debouncing", snap.State)
	}
	if len(snap.Results) != 1 {
		t.Errorf("results cleared before the timer fired: %+v", snap.Results)
	}

	waitFor(t, func() bool { return o.Snapshot().State == StateIdle })

	snap = o.Snapshot()
	if len(snap.Results) != 0 || snap.Total != 0 || snap.HasMore {
		t.Errorf("results not cleared: %+v", snap)
	}

	time.Sleep(2 * testInterval)
	if got := fake.callCount(); got != 1 {
		t.Errorf("search invoked %d times after clear, want 1", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeSearcher{
		blockUntil: release,
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			return &searchsvc.Response{Results: resultsNamed(p.Text), Total: 1}, nil
		},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	o.SetText("invoice")
	waitFor(t, func() bool { return fake.callCount() == 1 })

	// Supersede the in-flight fetch, then let both complete.
	o.SetText("quote")
	close(release)

	waitFor(t, func() bool {
		snap := o.Snapshot()
		return snap.State == StateIdle && len(snap.Results) == 1
	})

	snap := o.Snapshot()
	if got := snap.Results[0].Subject; got != "quote" {
		t.Errorf("visible result %q, want the newer query's", got)
	}
}

func TestLoadMoreAppends(t *testing.T) {
	fake := &fakeSearcher{
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			switch p.Page {
			case 0:
				return &searchsvc.Response{Results: resultsNamed("a", "b"), Total: 3, HasMore: true}, nil
			case 1:
				return &searchsvc.Response{Results: resultsNamed("c"), Total: 3, HasMore: false}, nil
			default:
				return &searchsvc.Response{}, nil
			}
		},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	o.SetText("invoice")
	waitFor(t, func() bool {
		snap := o.Snapshot()
		return snap.State == StateIdle && len(snap.Results) == 2
	})
	if !o.Snapshot().HasMore {
		t.Fatal("first page should report more")
	}

	o.LoadMore()
	waitFor(t, func() bool {
		snap := o.Snapshot()
		return snap.State == StateIdle && len(snap.Results) == 3
	})

	snap := o.Snapshot()
	var subjects []string
	for _, r := range snap.Results {
		subjects = append(subjects, r.Subject)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, subjects); diff != "" {
		t.Errorf("accumulated results mismatch (-want +got):\n%s", diff)
	}
	if snap.HasMore {
		t.Error("short final page should clear HasMore")
	}
	if snap.Page != 1 {
		t.Errorf("page = %d, want 1", snap.Page)
	}

	// Nothing more to load.
	o.LoadMore()
	time.Sleep(2 * testInterval)
	if got := fake.callCount(); got != 2 {
		t.Errorf("search invoked %d times, want 2", got)
	}
}

func TestErrorKeepsLastResults(t *testing.T) {
	var fail bool
	var mu sync.Mutex
	fake := &fakeSearcher{}
	fake.respond = func(p searchsvc.Params) (*searchsvc.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("store down")
		}
		return &searchsvc.Response{Results: resultsNamed("kept"), Total: 1}, nil
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	o.SetText("invoice")
	waitFor(t, func() bool { return len(o.Snapshot().Results) == 1 })

	mu.Lock()
	fail = true
	mu.Unlock()

	o.SetText("invoices overdue")
	waitFor(t, func() bool { return o.Snapshot().Err != nil })

	snap := o.Snapshot()
	if len(snap.Results) != 1 || snap.Results[0].Subject != "kept" {
		t.Errorf("previous results lost on error: %+v", snap.Results)
	}

	// The next successful fetch clears the error.
	mu.Lock()
	fail = false
	mu.Unlock()
	o.SetText("invoice")
	waitFor(t, func() bool {
		snap := o.Snapshot()
		return snap.Err == nil && snap.State == StateIdle && len(snap.Results) == 1
	})
}

func TestFilterChangeTriggersFetch(t *testing.T) {
	fake := &fakeSearcher{
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			return &searchsvc.Response{Results: resultsNamed("starred"), Total: 1}, nil
		},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	starred := true
	o.SetFilters(search.FilterSet{IsStarred: &starred})

	waitFor(t, func() bool { return len(o.Snapshot().Results) == 1 })
	if fake.lastCall().Filters.IsStarred == nil {
		t.Error("filters not forwarded to the searcher")
	}
}

func TestSuggestBypassesDebounce(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fake := &fakeSearcher{
		blockUntil:  release,
		suggestions: []suggest.Suggestion{{Type: suggest.TypeSender, Value: "Acme Billing"}},
	}
	o := New(fake, "u1").WithInterval(testInterval)
	defer o.Close()

	// A fetch is in flight; suggestions must still come back.
	o.SetText("invoice")
	waitFor(t, func() bool { return fake.callCount() == 1 })

	got, err := o.Suggest(context.Background(), "ac")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0].Value != "Acme Billing" {
		t.Errorf("suggestions = %+v", got)
	}
}

func TestOnUpdateCallback(t *testing.T) {
	fake := &fakeSearcher{
		respond: func(p searchsvc.Params) (*searchsvc.Response, error) {
			return &searchsvc.Response{Results: resultsNamed("hit"), Total: 1}, nil
		},
	}
	var mu sync.Mutex
	var states []State
	o := New(fake, "u1").WithInterval(testInterval).WithOnUpdate(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})
	defer o.Close()

	o.SetText("invoice")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2 && states[len(states)-1] == StateIdle
	})

	mu.Lock()
	defer mu.Unlock()
	if states[0] != StateDebouncing {
		t.Errorf("first observed state = %v, want debouncing", states[0])
	}
}
