package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SimulatedSuffix tags the source name of synthetically generated listings.
// The IsSimulated flag is authoritative; the suffix exists so that humans
// reading per-source breakdowns can tell real and placeholder data apart.
const SimulatedSuffix = "_simulated"

// RawListing is a single record as extracted by one source adapter.
// It is created by the adapter and never mutated afterwards.
type RawListing struct {
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	NaturalKey   string    `json:"natural_key,omitempty"` // platform-assigned ID when available
	IsSimulated  bool      `json:"is_simulated"`
	CapturedAt   time.Time `json:"captured_at"`
}

// NewRawListing creates a raw listing stamped with the capture time.
func NewRawListing(source, url, title, organization string) RawListing {
	return RawListing{
		Source:       source,
		URL:          url,
		Title:        title,
		Organization: organization,
		CapturedAt:   time.Now().UTC(),
	}
}

// MarkSimulated tags the listing as synthetic placeholder data. Both the
// flag and the source-name suffix are set so neither can drift alone.
func (l *RawListing) MarkSimulated() {
	l.IsSimulated = true
	if !strings.HasSuffix(l.Source, SimulatedSuffix) {
		l.Source += SimulatedSuffix
	}
}

// CanonicalListing is the deduplicated representative of one or more raw
// listings believed to refer to the same real-world posting.
type CanonicalListing struct {
	RawListing
	Signatures []string `json:"signatures"` // signatures that identify this listing
	Sources    []string `json:"sources"`    // all sources that produced a matching raw listing
}

// AddSource records an additional contributing source, keeping the list unique.
func (c *CanonicalListing) AddSource(source string) {
	for _, s := range c.Sources {
		if s == source {
			return
		}
	}
	c.Sources = append(c.Sources, source)
}

// AdapterResult is the outcome of one adapter's search. Adapters never
// return errors past their boundary; failures are captured here, and any
// listings extracted before the failure are preserved.
type AdapterResult struct {
	Source       string        `json:"source"`
	Listings     []RawListing  `json:"listings"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// MultiSourceResult aggregates one orchestrated search run.
type MultiSourceResult struct {
	RunID             uuid.UUID                `json:"run_id"`
	Listings          []CanonicalListing       `json:"listings"`
	BySource          map[string]AdapterResult `json:"by_source"`
	SuccessfulSources []string                 `json:"successful_sources"`
	FailedSources     []string                 `json:"failed_sources"`
	TotalUnique       int                      `json:"total_unique"`
	DuplicatesRemoved int                      `json:"duplicates_removed"`
	Elapsed           time.Duration            `json:"elapsed"`
}

// Query is a search request fanned out to adapters.
type Query struct {
	Keywords   string `json:"keywords"`
	Location   string `json:"location,omitempty"`
	MaxResults int    `json:"max_results"`
}

// Validate enforces the adapter contract preconditions. Violations are
// programming errors and propagate as hard failures.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Keywords) == "" {
		return ValidationError("keywords", "keywords must not be empty")
	}
	if q.MaxResults <= 0 {
		return ValidationError("max_results", "max_results must be positive")
	}
	return nil
}
