package pagination

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFooterThreshold is the distance from the bottom, in viewport
// heights, at which load-more starts.
const DefaultFooterThreshold = 1.5

// View is the rendering surface driven by a Coordinator. Methods are
// called on the engine event loop.
type View interface {
	ShowInitialLoader()
	HideInitialLoader()
	SetFooterVisible(visible bool)
	InsertRange(r Range)
	ReloadAll()
	EndRefreshing()
	// IsRefreshing reports whether a pull-to-refresh control is spinning.
	IsRefreshing() bool
	ShowError(err error)
	ShowOffline()
}

type operation int

const (
	opNone operation = iota
	opRefresh
	opLoadMore
)

// Coordinator turns Engine events into View updates. It keeps the
// first-load indicator visible for a minimum duration and triggers one
// load-more per scroll threshold crossing.
type Coordinator struct {
	engine     *Engine
	view       View
	clock      Clock
	minDisplay time.Duration
	threshold  float64
	logger     zerolog.Logger
	unsub      func()

	// Owned by the event loop.
	showing   bool
	shownAt   time.Time
	hideTimer Timer
	cycle     uint64
	footer    bool
	pending   []func()
	lastOp    operation

	loaderVisible atomic.Bool
	footerVisible atomic.Bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorClock sets the clock used for loader timing.
func WithCoordinatorClock(c Clock) CoordinatorOption {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithLoaderMinDisplay sets the minimum first-load indicator duration.
func WithLoaderMinDisplay(d time.Duration) CoordinatorOption {
	return func(co *Coordinator) {
		co.minDisplay = d
	}
}

// WithFooterThreshold sets the load-more distance in viewport heights.
func WithFooterThreshold(screens float64) CoordinatorOption {
	return func(co *Coordinator) {
		co.threshold = screens
	}
}

// NewCoordinator subscribes a Coordinator to engine.
func NewCoordinator(engine *Engine, view View, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		engine:     engine,
		view:       view,
		clock:      engine.clock,
		minDisplay: DefaultMinDisplay,
		threshold:  DefaultFooterThreshold,
		logger:     log.With().Str("component", "loader").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsub = engine.Subscribe(c.handle)
	return c
}

// Close unsubscribes from the engine and cancels a pending hide.
func (c *Coordinator) Close() {
	c.unsub()
	c.engine.loop.post(func() {
		if c.hideTimer != nil {
			c.hideTimer.Stop()
			c.hideTimer = nil
		}
	})
}

// Refresh starts a refresh through the engine.
func (c *Coordinator) Refresh() {
	c.engine.loop.post(func() {
		c.lastOp = opRefresh
		c.engine.refresh()
	})
}

// Retry repeats the last refresh or load-more. Without a previous
// operation it refreshes.
func (c *Coordinator) Retry() {
	c.engine.loop.post(func() {
		switch c.lastOp {
		case opLoadMore:
			c.engine.loadNextBatch()
		default:
			c.lastOp = opRefresh
			c.engine.refresh()
		}
	})
}

// Scrolled reports the scroll position. When the bottom is within the
// threshold and more pages exist, the footer is shown and one batch is
// requested; further crossings are ignored until the next load cycle
// hides the footer.
func (c *Coordinator) Scrolled(offsetY, contentHeight, viewportHeight float64) {
	c.engine.loop.post(func() {
		if !c.engine.HasMore() {
			return
		}
		if offsetY <= contentHeight-viewportHeight*c.threshold {
			return
		}
		if c.footer {
			return
		}
		c.setFooter(true)
		c.lastOp = opLoadMore
		c.engine.loadNextBatch()
	})
}

// LoaderVisible reports whether the first-load indicator is shown.
func (c *Coordinator) LoaderVisible() bool {
	return c.loaderVisible.Load()
}

// FooterVisible reports whether the load-more footer is shown.
func (c *Coordinator) FooterVisible() bool {
	return c.footerVisible.Load()
}

func (c *Coordinator) handle(ev Event) {
	switch ev.Kind {
	case EventLoadingChanged:
		c.setFooter(false)
		if ev.Loading {
			c.loadingStarted()
		} else {
			c.loadingFinished()
		}

	case EventBatchAppended:
		c.setFooter(false)
		c.view.EndRefreshing()
		if ev.Range.Lower == 0 {
			c.view.ReloadAll()
		} else {
			c.view.InsertRange(ev.Range)
		}

	case EventError:
		c.setFooter(false)
		c.view.EndRefreshing()
		err := ev.Err
		c.alert(func() { c.view.ShowError(err) })

	case EventGenericError:
		c.setFooter(false)
		c.view.EndRefreshing()
		msg := ev.Message
		c.alert(func() { c.view.ShowError(errors.New(msg)) })

	case EventOffline:
		c.alert(c.view.ShowOffline)
	}
}

func (c *Coordinator) loadingStarted() {
	if c.view.IsRefreshing() {
		return
	}
	c.show()
	c.view.ReloadAll()
}

func (c *Coordinator) loadingFinished() {
	if c.showing && c.clock.Now().Sub(c.shownAt) >= c.minDisplay {
		c.hide()
	}
	c.view.EndRefreshing()
}

// show displays the loader and arms the guaranteed hide.
func (c *Coordinator) show() {
	if c.showing {
		return
	}
	c.showing = true
	c.shownAt = c.clock.Now()
	c.cycle++
	cycle := c.cycle

	c.view.ShowInitialLoader()
	c.loaderVisible.Store(true)

	c.hideTimer = c.clock.AfterFunc(c.minDisplay, func() {
		c.engine.loop.post(func() {
			if c.showing && c.cycle == cycle {
				c.hideTimer = nil
				c.hide()
			}
		})
	})
}

// hide removes the loader and flushes the alerts held back while it was
// shown, in arrival order.
func (c *Coordinator) hide() {
	if !c.showing {
		return
	}
	c.showing = false
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}

	visible := c.clock.Now().Sub(c.shownAt)
	loaderVisibleSeconds.Observe(visible.Seconds())
	c.logger.Debug().Dur("visible", visible).Msg("Initial loader hidden")

	c.view.HideInitialLoader()
	c.loaderVisible.Store(false)

	pending := c.pending
	c.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// alert runs fn now, or queues it until the loader hides while it is shown.
func (c *Coordinator) alert(fn func()) {
	if c.showing {
		c.pending = append(c.pending, fn)
		return
	}
	fn()
}

func (c *Coordinator) setFooter(visible bool) {
	if c.footer == visible {
		return
	}
	c.footer = visible
	c.footerVisible.Store(visible)
	c.view.SetFooterVisible(visible)
}
