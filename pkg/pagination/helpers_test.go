package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/rs/zerolog"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Step moves time forward without firing timers, as if their delivery
// were late.
func (c *fakeClock) Step(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func score(v float64) *float64 { return &v }

func testPage(number, total int, ids ...int) *catalog.Page {
	p := &catalog.Page{Page: number}
	if total > 0 {
		p.TotalPages = &total
	}
	for _, id := range ids {
		p.Results = append(p.Results, catalog.Movie{
			ID:          id,
			Title:       fmt.Sprintf("Movie %d", id),
			VoteAverage: score(float64(id)),
		})
	}
	return p
}

// stubFetcher serves configured pages. A gated page blocks its first
// request until the gate is closed.
type stubFetcher struct {
	mu       sync.Mutex
	pages    map[int]*catalog.Page
	errs     map[int]error
	panics   map[int]bool
	gates    map[int]chan struct{}
	calls    []int
	started  chan int
	finished chan int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:    make(map[int]*catalog.Page),
		errs:     make(map[int]error),
		panics:   make(map[int]bool),
		gates:    make(map[int]chan struct{}),
		started:  make(chan int, 64),
		finished: make(chan int, 64),
	}
}

func (s *stubFetcher) set(p *catalog.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[p.Page] = p
	delete(s.errs, p.Page)
}

func (s *stubFetcher) fail(number int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[number] = err
}

func (s *stubFetcher) panicOn(number int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[number] = true
}

func (s *stubFetcher) gate(number int) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[number] = ch
	return ch
}

func (s *stubFetcher) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func (s *stubFetcher) FetchPage(ctx context.Context, number int) (*catalog.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, number)
	gate := s.gates[number]
	delete(s.gates, number)
	page, err, panics := s.pages[number], s.errs[number], s.panics[number]
	s.mu.Unlock()

	signal(s.started, number)
	defer signal(s.finished, number)

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if panics {
		panic(fmt.Sprintf("page %d exploded", number))
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("page %d not configured", number)
	}
	cp := *page
	cp.Results = append([]catalog.Movie(nil), page.Results...)
	return &cp, nil
}

func signal(ch chan int, v int) {
	select {
	case ch <- v:
	default:
	}
}

func receive(t *testing.T, ch chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for page request")
		return 0
	}
}

// recorder collects engine events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(e *Engine) *recorder {
	r := &recorder{}
	e.Subscribe(func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return r
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Count(kind EventKind) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestEngine(t *testing.T, f PageFetcher, probe connectivity.Probe, clock Clock) *Engine {
	t.Helper()
	e := NewEngine(f, probe, WithClock(clock), WithLogger(zerolog.Nop()))
	e.Start(context.Background())
	t.Cleanup(func() { e.Close() })
	return e
}

// flush waits until everything posted to the loop so far has run.
func flush(t *testing.T, e *Engine) {
	t.Helper()
	done := make(chan struct{})
	e.loop.post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not drain")
	}
}

// settle waits for posted operations, their page requests and the
// resulting completions.
func settle(t *testing.T, e *Engine) {
	t.Helper()
	flush(t, e)
	e.batches.Wait()
	flush(t, e)
}

func ids(items []catalog.Movie) []int {
	out := make([]int, 0, len(items))
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}
