package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/config"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/sources"
)

// PageFactory creates isolated browser pages for adapter runs
type PageFactory interface {
	NewPage(cookies []browser.Cookie) (browser.Page, error)
	Cookies(p browser.Page) ([]browser.Cookie, error)
}

// SessionCache persists per-board session cookies between runs
type SessionCache interface {
	Load(ctx context.Context, source string) ([]browser.Cookie, error)
	Save(ctx context.Context, source string, cookies []browser.Cookie) error
	Invalidate(ctx context.Context, source string) error
}

// ListingStore persists completed search runs
type ListingStore interface {
	SaveRun(ctx context.Context, query domain.Query, result *domain.MultiSourceResult) error
}

// Options carries the coordinator's optional collaborators. Any field
// may be nil.
type Options struct {
	Sessions SessionCache
	Store    ListingStore
	Metrics  *observability.Metrics
}

// Coordinator fans a query out to the registered adapters and merges
// their results. One adapter failing, timing out or panicking never
// affects the others.
type Coordinator struct {
	registry *sources.Registry
	pages    PageFactory
	deduper  *Deduper
	config   config.SourcesConfig
	sessions SessionCache
	store    ListingStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCoordinator creates a search coordinator over the given adapters
func NewCoordinator(registry *sources.Registry, pages PageFactory, cfg config.SourcesConfig, opts Options, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		pages:    pages,
		deduper:  NewDeduper(),
		config:   cfg,
		sessions: opts.Sessions,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// SearchAll runs the query against the named sources concurrently and
// returns the aggregated, deduplicated result. An empty sourceNames
// requests every registered adapter.
func (c *Coordinator) SearchAll(ctx context.Context, query domain.Query, sourceNames []string) (*domain.MultiSourceResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	adapters := c.resolve(sourceNames)
	if len(adapters) == 0 {
		return nil, domain.ValidationError("sources", "no registered adapter matches the requested sources")
	}

	start := time.Now()
	c.logger.Info("starting multi-source search",
		zap.String("keywords", query.Keywords),
		zap.Int("adapters", len(adapters)),
	)

	// Fixed-index result slots keep aggregation in registration order
	// without any cross-task coordination beyond the WaitGroup.
	results := make([]domain.AdapterResult, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(slot int, a sources.Adapter) {
			defer wg.Done()
			results[slot] = c.runAdapter(ctx, a, query)
		}(i, adapter)
	}
	wg.Wait()

	result := c.aggregate(results, time.Since(start))

	if c.store != nil {
		if err := c.store.SaveRun(ctx, query, result); err != nil {
			c.logger.Warn("failed to persist search run", zap.Error(err))
		}
	}

	c.logger.Info("multi-source search complete",
		zap.Int("unique", result.TotalUnique),
		zap.Int("duplicates_removed", result.DuplicatesRemoved),
		zap.Strings("failed_sources", result.FailedSources),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// resolve maps requested source names onto registered adapters, keeping
// registration order. Unknown names are logged and dropped.
func (c *Coordinator) resolve(sourceNames []string) []sources.Adapter {
	if len(sourceNames) == 0 {
		return c.registry.All()
	}

	requested := make(map[string]bool, len(sourceNames))
	for _, name := range sourceNames {
		requested[name] = true
	}

	var adapters []sources.Adapter
	for _, a := range c.registry.All() {
		if requested[a.Name()] {
			adapters = append(adapters, a)
			delete(requested, a.Name())
		}
	}
	for name := range requested {
		c.logger.Warn("unknown source requested", zap.String("source", name))
	}
	return adapters
}

// runAdapter executes one adapter inside its own time box. Panics are
// converted into failed results so sibling adapters keep running.
func (c *Coordinator) runAdapter(ctx context.Context, a sources.Adapter, query domain.Query) (result domain.AdapterResult) {
	start := time.Now()
	result.Source = a.Name()

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("adapter panic: %v", r)
			result.Elapsed = time.Since(start)
			c.logger.Error("adapter panicked",
				zap.String("source", a.Name()),
				zap.Any("panic", r),
			)
		}
		if c.metrics != nil {
			c.metrics.RecordSearch(result.Source, result.Success, result.Elapsed)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.AdapterTimeout)
	defer cancel()

	var cookies []browser.Cookie
	if c.sessions != nil {
		if cached, err := c.sessions.Load(ctx, a.Name()); err == nil {
			cookies = cached
		}
	}

	page, err := c.pages.NewPage(cookies)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("opening page: %v", err)
		result.Elapsed = time.Since(start)
		return result
	}
	defer page.Close()

	listings, err := a.Search(ctx, page, query)
	result.Listings = listings // partial extractions survive a failure
	result.Elapsed = time.Since(start)

	if err != nil {
		result.ErrorMessage = err.Error()
		c.logger.Warn("adapter search failed",
			zap.String("source", a.Name()),
			zap.Int("partial_listings", len(listings)),
			zap.Error(err),
		)
		// Cached cookies that hit an auth wall are stale; drop them so
		// the next run starts from a clean context.
		if c.sessions != nil && domain.IsCode(err, domain.ErrCodeAuthRequired) {
			if err := c.sessions.Invalidate(ctx, a.Name()); err != nil {
				c.logger.Debug("failed to invalidate cached session",
					zap.String("source", a.Name()),
					zap.Error(err),
				)
			}
		}
		return result
	}

	result.Success = true
	if c.sessions != nil {
		if exported, err := c.pages.Cookies(page); err == nil && len(exported) > 0 {
			if err := c.sessions.Save(ctx, a.Name(), exported); err != nil {
				c.logger.Debug("failed to cache session cookies",
					zap.String("source", a.Name()),
					zap.Error(err),
				)
			}
		}
	}
	return result
}

// aggregate flattens per-adapter results in slot order and dedupes the
// combined candidate list
func (c *Coordinator) aggregate(results []domain.AdapterResult, elapsed time.Duration) *domain.MultiSourceResult {
	out := &domain.MultiSourceResult{
		RunID:    uuid.New(),
		BySource: make(map[string]domain.AdapterResult, len(results)),
		Elapsed:  elapsed,
	}

	var candidates []domain.RawListing
	for _, r := range results {
		out.BySource[r.Source] = r
		if r.Success {
			out.SuccessfulSources = append(out.SuccessfulSources, r.Source)
		} else {
			out.FailedSources = append(out.FailedSources, r.Source)
		}
		candidates = append(candidates, r.Listings...)

		if c.metrics != nil {
			for _, l := range r.Listings {
				c.metrics.RecordListings(l.Source, l.IsSimulated, 1)
			}
		}
	}

	deduped := c.deduper.Dedupe(candidates)
	out.Listings = deduped.Unique
	out.TotalUnique = len(deduped.Unique)
	out.DuplicatesRemoved = deduped.DuplicatesRemoved

	if c.metrics != nil {
		c.metrics.RecordDedup(out.TotalUnique, out.DuplicatesRemoved)
	}
	return out
}
