package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/shake"
)

const (
	DefaultMinQueryLength     = 3
	DefaultFallbackTotalPages = 5
)

type Options struct {
	// MinQueryLength is the shortest trimmed query Search accepts.
	MinQueryLength int
	// FallbackTotalPages is used when a headlines response carries no
	// page count.
	FallbackTotalPages int
	Listener           Listener
}

func DefaultOptions() Options {
	return Options{
		MinQueryLength:     DefaultMinQueryLength,
		FallbackTotalPages: DefaultFallbackTotalPages,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.Feed.MinQueryLength > 0 {
		opts.MinQueryLength = cfg.Feed.MinQueryLength
	}
	if cfg.Feed.FallbackTotalPages > 0 {
		opts.FallbackTotalPages = cfg.Feed.FallbackTotalPages
	}
	return opts
}

// request tags one fetch with everything needed to decide, when it
// completes, whether its result still applies.
type request struct {
	seq  uint64
	gen  uint64
	kind LoadKind
	op   string
	mode Mode
	page int
	// done is closed when a refresh has finished, so a shake can wait on
	// one already in flight.
	done chan struct{}
}

// Controller is the single owner of the feed State. All methods are safe
// for concurrent use. The lock is held only while state is read or
// mutated, never while the Source is being awaited, so a slow fetch does
// not block the guards of other operations.
//
// Every fetch is tagged with the mode generation it was issued under.
// LoadInitial, Search and Refresh start a new generation; a response from
// an older generation is discarded without touching state.
type Controller struct {
	src  Source
	opts Options
	log  *debuglog.FieldLogger

	done   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	gen    uint64
	seq    uint64
	owner  uint64 // seq of the request holding state.Loading
	ver    uint64
	armed  bool
	closed bool
	sub    io.Closer

	// refreshDone belongs to the refresh holding state.Loading, if any.
	refreshDone chan struct{}
}

func NewController(src Source, opts Options) *Controller {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.FallbackTotalPages <= 0 {
		opts.FallbackTotalPages = DefaultFallbackTotalPages
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFuncs{}
	}

	done, cancel := context.WithCancel(context.Background())
	return &Controller{
		src:    src,
		opts:   opts,
		log:    debuglog.WithFields(map[string]interface{}{"component": "feed"}),
		done:   done,
		cancel: cancel,
		state:  initialState(),
		armed:  true,
	}
}

// State returns a snapshot. The Items slice is a copy.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// ShakeArmed reports whether the next shake will trigger a refresh.
func (c *Controller) ShakeArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// LoadInitial shows page 1 of the headlines, replacing whatever is
// displayed. It is a no-op while another initial headlines load is in
// flight.
func (c *Controller) LoadInitial(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Loading == LoadInitial && c.state.Mode.IsHeadlines() {
		c.mu.Unlock()
		c.log.Debugf("initial load already in flight")
		return nil
	}
	req := c.beginLocked(LoadInitial, opLoadInitial, HeadlinesMode(), 1, true)
	return c.run(ctx, req)
}

// LoadMore appends the next headlines page. It does nothing while any load
// is in flight, when the last page has been reached, or in search mode.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	s := c.state
	if s.Loading != LoadNone || s.Page >= s.TotalPages || !s.Mode.IsHeadlines() {
		c.mu.Unlock()
		c.log.Debugf("load more skipped: loading=%s page=%d/%d mode=%s", s.Loading, s.Page, s.TotalPages, s.Mode)
		return nil
	}
	req := c.beginLocked(LoadMore, opLoadMore, s.Mode, s.Page+1, false)
	return c.run(ctx, req)
}

// Search replaces the list with the first page of results for query. A
// query shorter than the minimum after trimming is rejected with a
// *ValidationError and state is left untouched.
func (c *Controller) Search(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)
	if n := utf8.RuneCountInString(q); n < c.opts.MinQueryLength {
		return &ValidationError{Field: "query", Min: c.opts.MinQueryLength, Got: n}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	req := c.beginLocked(LoadInitial, opSearch, SearchMode(q), 1, true)
	return c.run(ctx, req)
}

// Refresh always returns to the headlines, abandoning an active search,
// and reloads page 1 from the network, bypassing any response cache. It is
// a no-op while a refresh is in flight.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx, false)
}

// refresh starts a refresh, or when one is already in flight either
// returns at once or, with join set, waits for it to finish.
func (c *Controller) refresh(ctx context.Context, join bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Loading == LoadRefresh {
		pending := c.refreshDone
		c.mu.Unlock()
		if !join || pending == nil {
			c.log.Debugf("refresh already in flight")
			return nil
		}
		c.log.Debugf("waiting for the refresh in flight")
		select {
		case <-pending:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done.Done():
			return ErrClosed
		}
	}
	req := c.beginLocked(LoadRefresh, opRefresh, HeadlinesMode(), 1, true)
	return c.run(ctx, req)
}

// OnShakeEvent refreshes the feed once per acknowledged shake. The gate
// closes before the refresh starts and only AcknowledgeShake reopens it.
// A shake during a refresh joins it, and OnShakeRefreshed fires once that
// refresh has completed.
func (c *Controller) OnShakeEvent(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.armed {
		c.mu.Unlock()
		c.log.Debugf("shake ignored, awaiting acknowledgement")
		return nil
	}
	c.armed = false
	c.mu.Unlock()

	c.log.Infof("shake detected, refreshing")
	err := c.refresh(ctx, true)
	if errors.Is(err, ErrClosed) {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	c.opts.Listener.OnShakeRefreshed()
	return err
}

// AcknowledgeShake re-arms the shake gate.
func (c *Controller) AcknowledgeShake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
}

// Attach hands the controller a motion-sensor subscription to release on
// Close. A previously attached subscription is closed first.
func (c *Controller) Attach(sub io.Closer) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		return ErrClosed
	}
	prev := c.sub
	c.sub = sub
	c.mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

// WatchShakes subscribes the controller to sensor. Every detected shake
// runs OnShakeEvent on its own goroutine so the sensor is never blocked by
// a fetch. The subscription is released by Close.
func (c *Controller) WatchShakes(ctx context.Context, sensor shake.Sensor, d *shake.Detector) error {
	sub, err := shake.Watch(ctx, sensor, d, func() {
		go func() {
			if err := c.OnShakeEvent(c.done); err != nil && !errors.Is(err, ErrClosed) {
				c.log.Debugf("shake refresh: %v", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("watching shakes: %w", err)
	}
	return c.Attach(sub)
}

// Close detaches the motion sensor, abandons in-flight fetches and stops
// all events. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// beginLocked claims the loading flag for a new request and releases the
// lock. Callers must hold c.mu.
func (c *Controller) beginLocked(kind LoadKind, op string, mode Mode, page int, newGen bool) request {
	if newGen {
		c.gen++
		c.state.Mode = mode
	}
	c.seq++
	req := request{
		seq:  c.seq,
		gen:  c.gen,
		kind: kind,
		op:   op,
		mode: mode,
		page: page,
	}
	if kind == LoadRefresh {
		req.done = make(chan struct{})
		c.refreshDone = req.done
	}
	c.owner = req.seq
	c.state.Loading = kind
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debugf("%s: %s page %d (gen %d)", op, mode, page, req.gen)
	c.opts.Listener.OnStateChange(snap)
	return req
}

func (c *Controller) run(ctx context.Context, req request) error {
	defer c.release(req)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.done, cancel)
	defer stop()

	if req.kind == LoadRefresh {
		ctx = WithFresh(ctx)
	}

	var (
		page Page
		err  error
	)
	if req.mode.IsSearch() {
		page, err = c.src.Search(ctx, req.mode.Query, req.page)
	} else {
		page, err = c.src.Headlines(ctx, req.page)
	}
	return c.finish(req, page, err)
}

// currentLocked reports whether req's result may still be applied.
func (c *Controller) currentLocked(req request) bool {
	if c.closed || c.owner != req.seq || c.gen != req.gen {
		return false
	}
	if !c.state.Mode.Equal(req.mode) {
		return false
	}
	if req.kind == LoadMore && c.state.Page != req.page-1 {
		return false
	}
	return true
}

// finish applies a completed fetch as one atomic step, or drops it when a
// newer request has taken over.
func (c *Controller) finish(req request, page Page, fetchErr error) error {
	c.mu.Lock()
	if !c.currentLocked(req) {
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}
		c.log.Debugf("%v: %s %s page %d (gen %d)", errStaleResponse, req.op, req.mode, req.page, req.gen)
		return nil
	}

	c.owner = 0
	c.state.Loading = LoadNone
	if fetchErr == nil {
		c.applyLocked(req, page)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.opts.Listener.OnStateChange(snap)

	if fetchErr != nil {
		lerr := &LoadError{Op: req.op, Err: fetchErr}
		c.log.Warnf("%s failed: %v", req.op, fetchErr)
		c.opts.Listener.OnError(lerr)
		return lerr
	}
	c.log.Debugf("%s: %d items, page %d/%d", req.op, len(snap.Items), snap.Page, snap.TotalPages)
	return nil
}

func (c *Controller) applyLocked(req request, page Page) {
	switch {
	case req.kind == LoadMore:
		if len(page.Articles) == 0 {
			// The source ran out before the page count said it would.
			c.state.TotalPages = req.page
		} else if page.TotalPages > 0 {
			c.state.TotalPages = max(page.TotalPages, req.page)
		}
		c.state.Items = appendUnique(c.state.Items, page.Articles)
		c.state.Page = req.page
	case req.mode.IsSearch():
		c.state.Items = appendUnique(nil, page.Articles)
		c.state.Page = 1
		c.state.TotalPages = 1
	default:
		c.state.Items = appendUnique(nil, page.Articles)
		c.state.Page = 1
		c.state.TotalPages = page.TotalPages
		if c.state.TotalPages <= 0 {
			c.state.TotalPages = c.opts.FallbackTotalPages
		}
	}
	if c.state.Items == nil {
		c.state.Items = []Article{}
	}
}

// snapshotLocked stamps the next version into state and copies it.
// Callers must hold c.mu.
func (c *Controller) snapshotLocked() State {
	c.ver++
	c.state.Version = c.ver
	return c.state.clone()
}

// release clears the loading flag if req still owns it and wakes shakes
// waiting on a refresh. It runs on every exit path of a fetch, including a
// panicking Source.
func (c *Controller) release(req request) {
	c.mu.Lock()
	if req.done != nil {
		if c.refreshDone == req.done {
			c.refreshDone = nil
		}
		close(req.done)
	}
	if c.owner != req.seq {
		c.mu.Unlock()
		return
	}
	c.owner = 0
	c.state.Loading = LoadNone
	closed := c.closed
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if !closed {
		c.opts.Listener.OnStateChange(snap)
	}
}
