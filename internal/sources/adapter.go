// Package sources holds the per-board adapters that turn a search query
// into raw job listings. Every adapter speaks the same contract so the
// orchestrator can treat boards uniformly.
package sources

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
)

// Adapter turns a query into raw listings from one job board
type Adapter interface {
	// Name is the unique board identifier, e.g. "linkedin"
	Name() string

	// Search runs the query against the board using the given page
	Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error)
}

// Config holds settings shared by all adapters
type Config struct {
	MaxPages     int
	MinPageDelay time.Duration
	MaxPageDelay time.Duration
}

// DefaultConfig returns default adapter settings
func DefaultConfig() Config {
	return Config{
		MaxPages:     3,
		MinPageDelay: 2 * time.Second,
		MaxPageDelay: 5 * time.Second,
	}
}

// Pacer introduces randomized delays between page interactions so the
// traffic pattern does not look mechanical
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer creates a pacer for the given delay window
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max}
}

// Wait sleeps a random duration inside the window, or returns early when
// the context is cancelled
func (p *Pacer) Wait(ctx context.Context) error {
	delay := p.min
	if span := p.max - p.min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// collectCards returns the elements of the first selector that matches
// anything. Boards change their markup often, so each adapter carries a
// chain of selectors from newest to oldest.
func collectCards(page browser.Page, selectors []string) []browser.Element {
	for _, sel := range selectors {
		els, err := page.Query(sel)
		if err == nil && len(els) > 0 {
			return els
		}
	}
	return nil
}

// childText returns trimmed text from the first matching child selector
func childText(card browser.Element, selectors []string) string {
	for _, sel := range selectors {
		el, err := card.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if text, err := el.Text(); err == nil && text != "" {
			return cleanText(text)
		}
	}
	return ""
}

// childHref returns the first href found under the card, resolved
// against base and stripped of tracking query parameters
func childHref(card browser.Element, base string, selectors []string) string {
	for _, sel := range selectors {
		el, err := card.Query(sel)
		if err != nil || el == nil {
			continue
		}
		href, err := el.Attribute("href")
		if err != nil || href == "" {
			continue
		}
		return absoluteURL(base, href)
	}
	return ""
}

// absoluteURL resolves href against base and drops query and fragment
func absoluteURL(base, href string) string {
	parsedBase, err := url.Parse(base)
	if err != nil {
		return href
	}
	parsed, err := parsedBase.Parse(href)
	if err != nil {
		return href
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// cleanText collapses whitespace runs into single spaces
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// looksBlocked checks page text for bot-protection markers
func looksBlocked(pageText string) bool {
	lower := strings.ToLower(pageText)
	for _, marker := range []string{"captcha", "access denied", "verify you are", "unusual traffic", "blocked"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// looksLikeLogin checks whether the board bounced us to an auth wall
func looksLikeLogin(pageURL, title string) bool {
	haystacks := []string{strings.ToLower(pageURL), strings.ToLower(title)}
	for _, h := range haystacks {
		for _, marker := range []string{"login", "sign in", "sign up", "authwall", "register"} {
			if strings.Contains(h, marker) {
				return true
			}
		}
	}
	return false
}
