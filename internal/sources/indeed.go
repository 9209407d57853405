package sources

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
)

var indeedCardSelectors = []string{
	"[data-testid=job-card]",
	".job_seen_beacon",
	".jobsearch-SerpJobCard",
	"[data-jk]",
}

var indeedTitleSelectors = []string{
	"[data-testid=job-title] a",
	".jobTitle a",
	"h2.jobTitle a",
	"h2 a",
}

var indeedCompanySelectors = []string{
	"[data-testid=company-name]",
	".companyName",
}

var indeedLocationSelectors = []string{
	"[data-testid=job-location]",
	".companyLocation",
}

var indeedSnippetSelectors = []string{
	"[data-testid=job-snippet]",
	".job-snippet",
}

var indeedNextSelectors = []string{
	"[aria-label='Next Page']",
	"[data-testid=pagination-page-next]",
	"a[aria-label=Next]",
}

// Indeed searches indeed.com job listings across result pages
type Indeed struct {
	config Config
	pacer  *Pacer
	logger *zap.Logger
}

// NewIndeed creates the Indeed adapter
func NewIndeed(cfg Config, logger *zap.Logger) *Indeed {
	return &Indeed{
		config: cfg,
		pacer:  NewPacer(cfg.MinPageDelay, cfg.MaxPageDelay),
		logger: logger,
	}
}

func (i *Indeed) Name() string { return "indeed" }

func (i *Indeed) searchURL(query domain.Query) string {
	params := url.Values{}
	params.Set("q", query.Keywords)
	location := query.Location
	if location == "" {
		location = "Remote"
	}
	params.Set("l", location)
	params.Set("sort", "date")
	params.Set("fromage", "1")

	return "https://www.indeed.com/jobs?" + params.Encode()
}

// Search runs the query against Indeed, following pagination up to the
// configured page cap
func (i *Indeed) Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	target := i.searchURL(query)
	i.logger.Info("searching indeed", zap.String("url", target))

	if err := page.Navigate(ctx, target); err != nil {
		return nil, domain.NavigationError(target, err)
	}

	maxPages := i.config.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var listings []domain.RawListing
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return listings, err
		}

		if content, err := page.Content(); err == nil && looksBlocked(content) {
			if len(listings) > 0 {
				// Keep what we already have
				break
			}
			return nil, domain.AccessBlockedError("indeed")
		}

		before := len(listings)
		listings = i.extractPage(page, query, listings)

		i.logger.Debug("indeed page extracted",
			zap.Int("page", pageNum),
			zap.Int("new", len(listings)-before),
		)

		if len(listings) >= query.MaxResults || pageNum == maxPages {
			break
		}
		if !i.nextPage(ctx, page) {
			break
		}
	}

	i.logger.Info("indeed search complete", zap.Int("listings", len(listings)))
	return listings, nil
}

func (i *Indeed) extractPage(page browser.Page, query domain.Query, listings []domain.RawListing) []domain.RawListing {
	for _, card := range collectCards(page, indeedCardSelectors) {
		title := childText(card, indeedTitleSelectors)
		company := childText(card, indeedCompanySelectors)
		if title == "" || company == "" {
			continue
		}

		listing := domain.NewRawListing(i.Name(),
			childHref(card, "https://www.indeed.com", indeedTitleSelectors),
			title, company)
		listing.Location = childText(card, indeedLocationSelectors)
		if listing.Location == "" {
			listing.Location = "Remote"
		}
		listing.Description = childText(card, indeedSnippetSelectors)

		listings = append(listings, listing)
		if len(listings) >= query.MaxResults {
			break
		}
	}
	return listings
}

// nextPage clicks through to the next result page, pacing first so the
// click pattern stays irregular
func (i *Indeed) nextPage(ctx context.Context, page browser.Page) bool {
	if err := i.pacer.Wait(ctx); err != nil {
		return false
	}

	for _, sel := range indeedNextSelectors {
		el, err := page.First(sel)
		if err != nil || el == nil {
			continue
		}
		if disabled, _ := el.Attribute("aria-disabled"); disabled == "true" {
			return false
		}
		if err := el.Click(); err == nil {
			return true
		}
	}
	return false
}
