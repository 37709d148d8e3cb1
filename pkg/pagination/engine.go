package pagination

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Sternrassler/movie-catalog/pkg/catalog"
	"github.com/Sternrassler/movie-catalog/pkg/connectivity"
	"github.com/Sternrassler/movie-catalog/pkg/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// DefaultMinDisplay is the minimum time the first-load indicator stays visible.
const DefaultMinDisplay = 3 * time.Second

// GenericErrorMessage is the message carried by EventGenericError.
const GenericErrorMessage = "Something went wrong. Please try again."

// unknownTotal stands for a total page count the server has not reported yet.
const unknownTotal = math.MaxInt

var errEmptyPage = errors.New("fetcher returned no page")

// Engine fetches catalog pages two at a time and merges them into a
// duplicate-free list. State is mutated only on the event loop; the query
// methods may be called from any goroutine.
type Engine struct {
	fetcher    PageFetcher
	probe      connectivity.Probe
	clock      Clock
	minDisplay time.Duration
	logger     zerolog.Logger

	loop      *loop
	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	batches   sync.WaitGroup

	mu          sync.RWMutex
	items       []catalog.Movie
	seen        map[int]struct{}
	currentPage int
	totalPages  int
	loading     bool
	generation  uint64

	events notify.Publisher[Event]
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for the offline notification delay.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMinDisplay sets the delay before an offline refresh is reported.
func WithMinDisplay(d time.Duration) Option {
	return func(e *Engine) {
		e.minDisplay = d
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine. Call Start before expecting any event.
func NewEngine(fetcher PageFetcher, probe connectivity.Probe, opts ...Option) *Engine {
	e := &Engine{
		fetcher:    fetcher,
		probe:      probe,
		clock:      SystemClock(),
		minDisplay: DefaultMinDisplay,
		logger:     log.With().Str("component", "pagination").Logger(),
		loop:       newLoop(),
		seen:       make(map[int]struct{}),
		totalPages: unknownTotal,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.probe == nil {
		e.probe = connectivity.NewStatic(true)
	}
	return e
}

// Start runs the event loop until ctx is done or Close is called.
// Page requests inherit ctx. Calling Start more than once has no effect.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.ctx, e.cancel = context.WithCancel(ctx)
		go e.loop.run(e.ctx)
	})
}

// Close stops the event loop and waits for in-flight page requests.
func (e *Engine) Close() error {
	e.startOnce.Do(func() {})
	if e.cancel != nil {
		e.cancel()
		<-e.loop.done
	}
	e.batches.Wait()
	return nil
}

// Refresh clears the list and loads the first batch.
func (e *Engine) Refresh() {
	e.loop.post(e.refresh)
}

// LoadNextBatch loads the next two pages unless a batch is in flight or
// every page has been loaded.
func (e *Engine) LoadNextBatch() {
	e.loop.post(e.loadNextBatch)
}

// Subscribe registers fn for every event. Handlers run on the event loop
// in subscription order and may call Engine methods.
func (e *Engine) Subscribe(fn func(Event)) (cancel func()) {
	_, cancel = e.events.Subscribe(fn)
	return cancel
}

// HasMore reports whether pages remain to be loaded.
func (e *Engine) HasMore() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentPage < e.totalPages
}

// Len returns the number of accumulated items.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Item returns the item at index i.
func (e *Engine) Item(i int) (catalog.Movie, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i < 0 || i >= len(e.items) {
		return catalog.Movie{}, false
	}
	return e.items[i], true
}

// Items returns a copy of the items in r.
func (e *Engine) Items(r Range) []catalog.Movie {
	e.mu.RLock()
	defer e.mu.RUnlock()
	lower := max(r.Lower, 0)
	upper := min(r.Upper, len(e.items))
	if upper <= lower {
		return nil
	}
	return append([]catalog.Movie(nil), e.items[lower:upper]...)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := e.totalPages
	if total == unknownTotal {
		total = -1
	}
	return Snapshot{
		Items:       append([]catalog.Movie(nil), e.items...),
		CurrentPage: e.currentPage,
		TotalPages:  total,
		Loading:     e.loading,
		HasMore:     e.currentPage < e.totalPages,
		Generation:  e.generation,
	}
}

// AverageScore returns the mean vote average of the loaded items that
// carry one. ok is false when no item has a score.
func (e *Engine) AverageScore() (avg float64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var sum float64
	n := 0
	for _, m := range e.items {
		if m.VoteAverage != nil {
			sum += *m.VoteAverage
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// emit delivers ev to every subscriber. Loop only.
func (e *Engine) emit(ev Event) {
	ev.Generation = e.generation
	e.events.Publish(ev)
}

// refresh runs on the loop.
func (e *Engine) refresh() {
	e.mu.Lock()
	e.generation++
	e.items = nil
	e.seen = make(map[int]struct{})
	e.currentPage = 0
	e.totalPages = unknownTotal
	// A batch of the previous generation may still be in flight; its
	// completion is dropped.
	e.loading = false
	gen := e.generation
	e.mu.Unlock()

	e.logger.Debug().Uint64("generation", gen).Msg("Refresh")
	e.emit(Event{Kind: EventLoadingChanged, Loading: true})

	if !e.probe.IsConnected() {
		offlineTotal.WithLabelValues("refresh").Inc()
		e.logger.Info().Uint64("generation", gen).Msg("Offline - refresh skipped")
		e.clock.AfterFunc(e.minDisplay, func() {
			e.loop.post(func() {
				if e.generation != gen {
					return
				}
				e.emit(Event{Kind: EventOffline, Err: ErrOffline})
			})
		})
		e.emit(Event{Kind: EventLoadingChanged, Loading: false})
		return
	}

	e.loadNextBatch()
}

// loadNextBatch runs on the loop.
func (e *Engine) loadNextBatch() {
	if e.loading || e.currentPage >= e.totalPages {
		return
	}

	if !e.probe.IsConnected() {
		offlineTotal.WithLabelValues("load_more").Inc()
		e.logger.Info().Int("current_page", e.currentPage).Msg("Offline - load more skipped")
		e.emit(Event{Kind: EventOffline, Err: ErrOffline})
		e.emit(Event{Kind: EventLoadingChanged, Loading: false})
		return
	}

	next1 := e.currentPage + 1
	pages := []int{next1}
	if next2 := next1 + 1; next2 <= e.totalPages {
		pages = append(pages, next2)
	}

	e.mu.Lock()
	e.loading = true
	gen := e.generation
	e.mu.Unlock()

	batchID := uuid.NewString()
	logger := e.logger.With().Str("batch_id", batchID).Uint64("generation", gen).Logger()
	logger.Debug().Ints("pages", pages).Msg("Batch started")

	e.batches.Add(1)
	go func() {
		defer e.batches.Done()
		result := e.fetchBatch(e.ctx, logger, pages)
		e.loop.post(func() {
			e.complete(gen, logger, result)
		})
	}()
}

type pageResult struct {
	number int
	page   *catalog.Page
	err    error
	start  time.Time
	end    time.Time
}

type batchResult struct {
	pages     []pageResult
	duration  time.Duration
	recovered error
}

// fetchBatch requests pages concurrently and returns once all completed.
// Results are in request order.
func (e *Engine) fetchBatch(ctx context.Context, logger zerolog.Logger, pages []int) batchResult {
	start := time.Now()
	results := make([]pageResult, len(pages))

	var wg conc.WaitGroup
	for i, number := range pages {
		results[i].number = number
		wg.Go(func() {
			r := &results[i]
			r.start = time.Now()
			logger.Debug().Int("page", number).Msg("Page request started")
			r.page, r.err = e.fetcher.FetchPage(ctx, number)
			r.end = time.Now()
			logger.Debug().
				Int("page", number).
				Dur("duration", r.end.Sub(r.start)).
				Bool("ok", r.err == nil).
				Msg("Page request finished")
		})
	}
	recovered := wg.WaitAndRecover()

	res := batchResult{pages: results, duration: time.Since(start)}
	if recovered != nil {
		res.recovered = recovered.AsError()
		logger.Error().Str("panic", recovered.String()).Msg("Page request panicked")
	}

	for i := range results {
		r := &results[i]
		if r.err == nil && r.page == nil {
			r.err = errEmptyPage
			if res.recovered != nil {
				r.err = res.recovered
			}
		}
		if r.err != nil {
			pagesTotal.WithLabelValues("error").Inc()
		} else {
			pagesTotal.WithLabelValues("ok").Inc()
		}
	}

	if len(results) == 2 {
		a, b := results[0], results[1]
		overlap := a.start.Before(b.end) && b.start.Before(a.end)
		logger.Debug().Bool("overlap", overlap).Msg("Batch request overlap")
	}
	batchDuration.Observe(res.duration.Seconds())
	logger.Debug().Dur("duration", res.duration).Msg("Batch requests done")

	return res
}

// complete merges a joined batch. Runs on the loop.
func (e *Engine) complete(gen uint64, logger zerolog.Logger, res batchResult) {
	if gen != e.generation {
		batchesTotal.WithLabelValues("stale").Inc()
		logger.Debug().Uint64("current_generation", e.generation).Msg("Stale batch dropped")
		return
	}

	var ok []*catalog.Page
	var firstErr error
	for _, r := range res.pages {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			logger.Warn().Err(r.err).Int("page", r.number).Msg("Page request failed")
			continue
		}
		ok = append(ok, r.page)
	}

	if len(ok) == 0 {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()

		batchesTotal.WithLabelValues("failed").Inc()
		logger.Warn().Err(firstErr).Int("current_page", e.currentPage).Msg("Batch failed")

		if res.recovered != nil {
			e.emit(Event{Kind: EventGenericError, Err: res.recovered, Message: GenericErrorMessage})
		} else {
			e.emit(Event{Kind: EventError, Err: firstErr})
		}
		e.emit(Event{Kind: EventLoadingChanged, Loading: false})
		return
	}

	if len(ok) < len(res.pages) {
		batchesTotal.WithLabelValues("partial").Inc()
	} else {
		batchesTotal.WithLabelValues("success").Inc()
	}

	e.mu.Lock()
	appended := e.merge(ok)
	e.loading = false
	current, total := e.currentPage, e.totalPages
	e.mu.Unlock()

	logger.Info().
		Int("appended", appended.Len()).
		Int("current_page", current).
		Bool("has_more", current < total).
		Msg("Batch merged")

	if !appended.Empty() {
		e.emit(Event{Kind: EventBatchAppended, Range: appended})
	}
	e.emit(Event{Kind: EventLoadingChanged, Loading: false})
}

// merge appends pages in the given order and returns the appended range.
// The caller holds e.mu.
func (e *Engine) merge(pages []*catalog.Page) Range {
	lower := len(e.items)
	for _, p := range pages {
		e.currentPage = max(e.currentPage, p.Page)
		if p.TotalPages != nil {
			e.totalPages = *p.TotalPages
		}
		for _, m := range p.Results {
			if _, dup := e.seen[m.ID]; dup {
				duplicatesDroppedTotal.Inc()
				continue
			}
			e.seen[m.ID] = struct{}{}
			e.items = append(e.items, m)
		}
	}
	upper := len(e.items)
	itemsAppendedTotal.Add(float64(upper - lower))
	return Range{Lower: lower, Upper: upper}
}
