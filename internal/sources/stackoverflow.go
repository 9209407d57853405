package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
)

var stackOverflowCardSelectors = []string{
	"div.js-result",
	"div[data-jobid]",
	".listResults .result",
	".job-item",
}

var stackOverflowTitleSelectors = []string{
	"h2.mb4 > a.s-link",
	"h2 > a[href*='/jobs/']",
	".job-title a",
}

var stackOverflowCompanySelectors = []string{
	"h3.fc-black-700 > span:first-child",
	".job-company-name",
	"h3 > span:first-child",
}

var stackOverflowLocationSelectors = []string{
	"h3.fc-black-700 > span.fc-black-500",
	".job-location",
	"h3 > span:nth-child(2)",
}

// The board retired its job section, so live extraction rarely yields
// anything. The adapter keeps a developer-market sample to degrade into.
var stackOverflowCompanies = []string{
	"Google", "Microsoft", "Amazon", "Meta", "Apple",
	"Netflix", "Spotify", "GitHub", "Stack Overflow", "Atlassian",
	"JetBrains", "Discord", "Slack",
}

var stackOverflowTopics = []struct {
	topic  string
	titles []string
}{
	{"python", []string{"Senior Python Developer", "Python Backend Engineer", "Django Developer"}},
	{"javascript", []string{"JavaScript Engineer", "Node.js Developer", "React Engineer"}},
	{"java", []string{"Java Developer", "Senior Java Engineer", "Spring Boot Developer"}},
	{"golang", []string{"Go Developer", "Backend Engineer (Go)", "Distributed Systems Engineer"}},
}

var stackOverflowDefaultTitles = []string{
	"Software Developer", "Senior Software Developer", "Full-Stack Developer",
	"Backend Developer", "DevOps Engineer", "Site Reliability Engineer",
}

var stackOverflowLocations = []string{
	"Remote", "San Francisco, CA", "New York, NY", "Seattle, WA", "Austin, TX",
}

// StackOverflow searches stackoverflow.com/jobs developer listings
type StackOverflow struct {
	config Config
	logger *zap.Logger
}

// NewStackOverflow creates the Stack Overflow adapter
func NewStackOverflow(cfg Config, logger *zap.Logger) *StackOverflow {
	return &StackOverflow{config: cfg, logger: logger}
}

func (s *StackOverflow) Name() string { return "stackoverflow" }

func (s *StackOverflow) searchURL(query domain.Query) string {
	params := url.Values{}
	params.Set("q", strings.Join(strings.Fields(query.Keywords), ","))
	location := query.Location
	if location == "" {
		location = "Remote"
	}
	params.Set("l", location)
	params.Set("sort", "p")
	return "https://stackoverflow.com/jobs?" + params.Encode()
}

// Search runs the query against Stack Overflow Jobs. The board no longer
// serves listings reliably, so any failure degrades to simulated output.
func (s *StackOverflow) Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	target := s.searchURL(query)
	s.logger.Info("searching stackoverflow", zap.String("url", target))

	if err := page.Navigate(ctx, target); err != nil {
		s.logger.Warn("stackoverflow navigation failed, degrading to simulated listings", zap.Error(err))
		return s.simulated(query), nil
	}

	title, _ := page.Title()
	if looksLikeLogin(page.URL(), title) {
		s.logger.Warn("stackoverflow requires authentication, degrading to simulated listings")
		return s.simulated(query), nil
	}
	if content, err := page.Content(); err == nil && looksBlocked(content) {
		s.logger.Warn("stackoverflow blocked the request, degrading to simulated listings")
		return s.simulated(query), nil
	}

	var listings []domain.RawListing
	for _, card := range collectCards(page, stackOverflowCardSelectors) {
		jobTitle := childText(card, stackOverflowTitleSelectors)
		if len(jobTitle) < 4 {
			continue
		}

		company := childText(card, stackOverflowCompanySelectors)
		if company == "" {
			company = "Unknown Company"
		}

		listing := domain.NewRawListing(s.Name(),
			childHref(card, "https://stackoverflow.com", []string{"a[href*='/jobs/']", "h2 a"}),
			jobTitle, company)
		listing.Location = cleanLocation(childText(card, stackOverflowLocationSelectors))
		listing.Description = jobTitle

		listings = append(listings, listing)
		if len(listings) >= query.MaxResults {
			break
		}
	}

	if len(listings) == 0 {
		s.logger.Info("no stackoverflow listings extracted, degrading to simulated listings")
		return s.simulated(query), nil
	}

	s.logger.Info("stackoverflow search complete", zap.Int("listings", len(listings)))
	return listings, nil
}

// simulated builds keyword-matched developer listings, flagged so
// downstream consumers can tell them from scraped data
func (s *StackOverflow) simulated(query domain.Query) []domain.RawListing {
	titles := stackOverflowTitles(query.Keywords)

	count := query.MaxResults
	if count > len(stackOverflowCompanies) {
		count = len(stackOverflowCompanies)
	}

	listings := make([]domain.RawListing, 0, count)
	for i := 0; i < count; i++ {
		company := stackOverflowCompanies[i%len(stackOverflowCompanies)]
		title := titles[i%len(titles)]

		slug := strings.ReplaceAll(strings.ToLower(company), " ", "-")
		listing := domain.NewRawListing(s.Name(),
			fmt.Sprintf("https://stackoverflow.com/jobs/simulated-%s-%d", slug, i+1),
			title, company)
		listing.Location = stackOverflowLocations[i%len(stackOverflowLocations)]
		listing.Description = fmt.Sprintf("%s at %s (developer market sample)", title, company)
		listing.MarkSimulated()

		listings = append(listings, listing)
	}
	return listings
}

func stackOverflowTitles(keywords string) []string {
	lower := strings.ToLower(keywords)
	var titles []string
	for _, entry := range stackOverflowTopics {
		if strings.Contains(lower, entry.topic) {
			titles = append(titles, entry.titles...)
		}
	}
	if len(titles) == 0 {
		titles = stackOverflowDefaultTitles
	}
	return titles
}

// cleanLocation strips the "- " separator the board prefixes locations with
func cleanLocation(location string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(location), "-–"))
}
