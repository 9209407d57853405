package sources

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
)

var remoteCoCardSelectors = []string{
	"article[data-job]",
	".job-card",
	".card.position",
	"[itemscope][itemtype*=JobPosting]",
	"li.job",
	"div.job",
}

var remoteCoTitleSelectors = []string{
	".position-title",
	".font-weight-bold",
	"h2",
	"h3",
	"a",
}

var remoteCoCompanySelectors = []string{
	".company",
	".m-0",
	"p.company-name",
}

// RemoteCo searches remote.co, which lists exclusively remote positions
type RemoteCo struct {
	config Config
	logger *zap.Logger
}

// NewRemoteCo creates the Remote.co adapter
func NewRemoteCo(cfg Config, logger *zap.Logger) *RemoteCo {
	return &RemoteCo{config: cfg, logger: logger}
}

func (r *RemoteCo) Name() string { return "remoteco" }

func (r *RemoteCo) searchURL(query domain.Query) string {
	params := url.Values{}
	params.Set("search_term", query.Keywords)
	return "https://remote.co/remote-jobs/search?" + params.Encode()
}

// Search runs the query against Remote.co
func (r *RemoteCo) Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	target := r.searchURL(query)
	r.logger.Info("searching remote.co", zap.String("url", target))

	if err := page.Navigate(ctx, target); err != nil {
		return nil, domain.NavigationError(target, err)
	}

	var listings []domain.RawListing
	for _, card := range collectCards(page, remoteCoCardSelectors) {
		title := childText(card, remoteCoTitleSelectors)
		if len(title) < 4 {
			continue
		}

		company := childText(card, remoteCoCompanySelectors)
		if company == "" {
			company = "Unknown Company"
		}

		listing := domain.NewRawListing(r.Name(),
			childHref(card, "https://remote.co", []string{"a"}),
			title, company)
		listing.Location = "Remote"
		listing.Description = title

		listings = append(listings, listing)
		if len(listings) >= query.MaxResults {
			break
		}
	}

	r.logger.Info("remote.co search complete", zap.Int("listings", len(listings)))
	return listings, nil
}
