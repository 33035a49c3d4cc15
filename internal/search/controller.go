package search

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rendis/geofind/internal/model"
)

const DefaultDebounce = 500 * time.Millisecond

// Fetcher performs the remote lookup. Not-found answers are reported as
// model.ErrCountryNotFound.
type Fetcher interface {
	SearchByName(ctx context.Context, name string) ([]model.Country, error)
}

type Options struct {
	Debounce       time.Duration
	Policy         RacePolicy
	RequestTimeout time.Duration // per lookup; 0 leaves it to the Fetcher
}

// Snapshot is a read-only copy of the search state.
type Snapshot struct {
	Query       string
	Results     []model.Country
	Loading     bool
	Selection   *Selection
	Label       string
	Trigger     string
	PopoverOpen bool
	PanelOpen   bool
}

// Controller drives State from keystrokes, debounce fires and network
// completions. Lookups run on their own goroutines and are never cancelled
// by newer input, only by Close.
type Controller struct {
	mu        sync.Mutex
	state     State
	fetcher   Fetcher
	debouncer *Debouncer
	logger    *zap.Logger
	timeout   time.Duration
	observers []func(Selection)
	updates   chan Snapshot
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(fetcher Fetcher, logger *zap.Logger, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		state:     NewState(opts.Policy),
		fetcher:   fetcher,
		debouncer: NewDebouncer(opts.Debounce),
		logger:    logger,
		timeout:   opts.RequestTimeout,
		updates:   make(chan Snapshot, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Input handles one keystroke worth of text.
func (c *Controller) Input(text string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked()
	}
	gen := c.state.Keystroke(text)
	c.debouncer.Schedule(func() { c.fire(gen) })
	return c.publishLocked()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	req, ok := c.state.DebounceFired(gen)
	if ok {
		c.wg.Add(1)
	}
	c.publishLocked()
	c.mu.Unlock()

	if !ok {
		return
	}
	c.logger.Debug("lookup issued", zap.Uint64("seq", req.Seq), zap.String("query", req.Query))
	go c.fetch(req)
}

func (c *Controller) fetch(req Request) {
	defer c.wg.Done()

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	countries, err := c.fetcher.SearchByName(ctx, req.Query)

	c.mu.Lock()
	outcome := c.state.Resolve(Response{Seq: req.Seq, Query: req.Query, Countries: countries, Err: err})
	c.publishLocked()
	c.mu.Unlock()

	fields := []zap.Field{zap.Uint64("seq", req.Seq), zap.String("query", req.Query)}
	switch outcome {
	case OutcomeFailed:
		c.logger.Error("country lookup failed", append(fields, zap.Error(err))...)
	case OutcomeStale:
		c.logger.Debug("stale lookup dropped", fields...)
	case OutcomeEmpty:
		c.logger.Debug("no country matched", fields...)
	default:
		c.logger.Debug("lookup resolved", append(fields, zap.Int("results", len(countries)))...)
	}
}

// Select runs the selection resolver and notifies observers when the
// Selection moved to a new record.
func (c *Controller) Select(name string) Snapshot {
	c.mu.Lock()
	changed := c.state.Select(name)
	var sel Selection
	if changed {
		sel = *c.state.Selection
	}
	observers := slices.Clone(c.observers)
	c.publishLocked()
	c.mu.Unlock()

	if changed {
		c.logger.Info("country selected",
			zap.String("country", sel.Country.CommonName),
			zap.Uint64("rev", sel.Rev))
		for _, fn := range observers {
			fn(sel)
		}
	}
	return c.Snapshot()
}

// OnSelection registers fn to run after every resolved pick.
func (c *Controller) OnSelection(fn func(Selection)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) TogglePanel() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TogglePanel()
	return c.publishLocked()
}

func (c *Controller) OpenPanel() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.OpenPanel()
	return c.publishLocked()
}

func (c *Controller) SetPopover(open bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SetPopover(open)
	return c.publishLocked()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Updates delivers the latest snapshot after asynchronous changes. Only
// the most recent one is kept if the reader falls behind.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Close cancels the pending debounce and every in-flight lookup, then
// waits for the lookup goroutines to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.debouncer.Cancel()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Query:       c.state.Query,
		Results:     c.state.Results,
		Loading:     c.state.Loading,
		Selection:   c.state.Selection,
		Label:       c.state.Label,
		Trigger:     c.state.TriggerText(),
		PopoverOpen: c.state.PopoverOpen,
		PanelOpen:   c.state.PanelOpen,
	}
}

// publishLocked replaces whatever snapshot is waiting on the channel.
func (c *Controller) publishLocked() Snapshot {
	snap := c.snapshotLocked()
	for {
		select {
		case c.updates <- snap:
			return snap
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}
