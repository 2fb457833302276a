package feed

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

// PageSize is the number of posts requested per fetch, for every source.
const PageSize = 10

var (
	ErrMissingSourceID = fmt.Errorf("community feed requires a source id")
	ErrUnknownSource   = fmt.Errorf("unknown feed source")
	// ErrStale is returned by a fetch whose result was discarded because the
	// cursor moved on while it was in flight.
	ErrStale = fmt.Errorf("stale feed fetch discarded")
)

// Cursor is a snapshot of the pagination state.
type Cursor struct {
	Kind       SourceKind
	SourceID   string
	Offset     int
	HasMore    bool
	Loading    bool
	Generation uint64
	Count      int
	Err        error
}

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger used to report failed fetches.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithOnChange registers fn to be called with a fresh snapshot after every
// applied state transition. fn runs without the controller's lock held.
func WithOnChange(fn func(Cursor)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller pages through a single feed source at a time. It is safe for concurrent use.
type Controller struct {
	fetcher  PageFetcher
	logger   *log.Logger
	onChange func(Cursor)

	mu         sync.Mutex
	kind       SourceKind
	sourceID   string
	offset     int
	hasMore    bool
	loading    bool
	generation uint64
	items      []models.Post
	lastErr    error
}

// NewController creates a controller with no active source; call [Controller.ResetAndFetch] to start paging.
func NewController(fetcher PageFetcher, opts ...Option) *Controller {
	c := &Controller{fetcher: fetcher, hasMore: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(io.Discard)
	}
	return c
}

// ResetAndFetch abandons the current cursor, points the controller at a new
// source and loads its first page, replacing the item list.
//
// Any fetch still in flight for the previous cursor is discarded when it completes.
func (c *Controller) ResetAndFetch(ctx context.Context, kind SourceKind, sourceID string) error {
	if kind == CommunityFeed && sourceID == "" {
		return ErrMissingSourceID
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.kind = kind
	c.sourceID = sourceID
	c.offset = 0
	c.hasMore = true
	c.items = nil
	c.loading = true
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()

	return c.fetch(ctx, gen, kind, sourceID, 0, true)
}

// LoadMore fetches the next page and appends it. It does nothing when a fetch
// is already outstanding or the source is exhausted.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	if c.kind == CommunityFeed && c.sourceID == "" {
		c.mu.Unlock()
		return ErrMissingSourceID
	}
	c.generation++
	gen := c.generation
	kind, sourceID, offset := c.kind, c.sourceID, c.offset
	c.loading = true
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()

	return c.fetch(ctx, gen, kind, sourceID, offset, false)
}

// Invalidate logically cancels any in-flight fetch, for use when the view
// displaying this feed goes away.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.loading = false
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) fetch(ctx context.Context, gen uint64, kind SourceKind, sourceID string, offset int, replace bool) error {
	page, err := c.fetcher.FetchPage(ctx, kind, sourceID, offset, PageSize)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping stale feed page", "source", kind, "id", sourceID, "generation", gen)
		return ErrStale
	}

	c.loading = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Error("failed to fetch feed page", "source", kind, "id", sourceID, "offset", offset, "error", err)
		c.notify()
		return err
	}

	if replace {
		c.items = append([]models.Post(nil), page...)
	} else {
		c.items = append(c.items, page...)
	}
	c.offset += len(page)
	c.hasMore = len(page) == PageSize
	c.mu.Unlock()
	c.notify()

	return nil
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.Cursor())
	}
}

// Items returns a copy of the accumulated posts.
func (c *Controller) Items() []models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Post(nil), c.items...)
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

func (c *Controller) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Cursor returns a snapshot of the current pagination state.
func (c *Controller) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Cursor{
		Kind:       c.kind,
		SourceID:   c.sourceID,
		Offset:     c.offset,
		HasMore:    c.hasMore,
		Loading:    c.loading,
		Generation: c.generation,
		Count:      len(c.items),
		Err:        c.lastErr,
	}
}

// UpdateItem replaces the post with the same id in place, e.g. after a like.
// It reports whether a post was found.
func (c *Controller) UpdateItem(post models.Post) bool {
	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].ID == post.ID {
			c.items[i] = post
			found = true
		}
	}
	c.mu.Unlock()
	if found {
		c.notify()
	}
	return found
}
