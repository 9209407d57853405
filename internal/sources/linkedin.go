package sources

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
)

// linkedinCardSelectors from newest to oldest markup generation
var linkedinCardSelectors = []string{
	"[data-testid=job-card]",
	".job-search-card",
	".jobs-search-results__list-item",
	".job-card-container",
	"[data-job-id]",
}

var linkedinTitleSelectors = []string{
	".job-card-list__title",
	".job-search-card__title",
	"h3 a",
	"h3",
}

var linkedinCompanySelectors = []string{
	".job-card-container__company-name",
	".job-search-card__subtitle",
	"h4",
}

var linkedinLocationSelectors = []string{
	".job-card-container__metadata-item",
	".job-search-card__location",
}

var linkedinLinkSelectors = []string{
	"a[href*='/jobs/view/']",
	"a",
}

// LinkedIn searches linkedin.com job listings
type LinkedIn struct {
	config Config
	pacer  *Pacer
	logger *zap.Logger
}

// NewLinkedIn creates the LinkedIn adapter
func NewLinkedIn(cfg Config, logger *zap.Logger) *LinkedIn {
	return &LinkedIn{
		config: cfg,
		pacer:  NewPacer(cfg.MinPageDelay, cfg.MaxPageDelay),
		logger: logger,
	}
}

func (l *LinkedIn) Name() string { return "linkedin" }

// searchURL builds the jobs search URL, filtered to recent remote
// listings with in-page applications
func (l *LinkedIn) searchURL(query domain.Query) string {
	params := url.Values{}
	params.Set("keywords", query.Keywords)
	location := query.Location
	if location == "" {
		location = "Worldwide"
	}
	params.Set("location", location)
	params.Set("f_TPR", "r86400")
	params.Set("f_WT", "2")
	params.Set("f_LF", "f_AL")
	params.Set("sortBy", "DD")

	return "https://www.linkedin.com/jobs/search/?" + params.Encode()
}

// Search runs the query against LinkedIn Jobs
func (l *LinkedIn) Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	target := l.searchURL(query)
	l.logger.Info("searching linkedin", zap.String("url", target))

	if err := page.Navigate(ctx, target); err != nil {
		return nil, domain.NavigationError(target, err)
	}

	title, _ := page.Title()
	if looksLikeLogin(page.URL(), title) {
		return nil, domain.AuthRequiredError("linkedin")
	}

	cards := collectCards(page, linkedinCardSelectors)
	if len(cards) == 0 {
		// Stale markup fallback: walk bare job links instead
		return l.extractFromLinks(page, query)
	}

	listings := make([]domain.RawListing, 0, len(cards))
	for _, card := range cards {
		listing, ok := l.extractCard(card)
		if !ok {
			continue
		}
		listings = append(listings, listing)
		if len(listings) >= query.MaxResults {
			break
		}
	}

	l.logger.Info("linkedin search complete", zap.Int("listings", len(listings)))
	return listings, nil
}

func (l *LinkedIn) extractCard(card browser.Element) (domain.RawListing, bool) {
	title := childText(card, linkedinTitleSelectors)
	if len(title) < 4 {
		return domain.RawListing{}, false
	}

	company := childText(card, linkedinCompanySelectors)
	if company == "" {
		company = "Unknown Company"
	}

	listing := domain.NewRawListing(l.Name(),
		childHref(card, "https://www.linkedin.com", linkedinLinkSelectors),
		title, company)
	listing.Location = childText(card, linkedinLocationSelectors)
	listing.Description = childText(card, []string{".job-search-card__snippet"})
	if listing.Description == "" {
		listing.Description = title
	}
	return listing, true
}

// extractFromLinks recovers listings from anchor tags when no card
// selector matches the current markup
func (l *LinkedIn) extractFromLinks(page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	links, err := page.Query("a[href*='/jobs/view/']")
	if err != nil {
		return nil, fmt.Errorf("querying job links: %w", err)
	}

	var listings []domain.RawListing
	for _, link := range links {
		text, err := link.Text()
		if err != nil || len(cleanText(text)) < 6 {
			continue
		}
		href, _ := link.Attribute("href")

		listing := domain.NewRawListing(l.Name(),
			absoluteURL("https://www.linkedin.com", href),
			cleanText(text), "Unknown Company")
		listing.Description = listing.Title
		listings = append(listings, listing)

		if len(listings) >= query.MaxResults {
			break
		}
	}

	if len(listings) > 0 {
		l.logger.Info("linkedin fallback extraction", zap.Int("listings", len(listings)))
	}
	return listings, nil
}
