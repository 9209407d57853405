package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/config"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/sources"
)

type stubPage struct{ closed bool }

func (s *stubPage) Navigate(ctx context.Context, url string) error { return nil }
func (s *stubPage) Query(selector string) ([]browser.Element, error) {
	return nil, nil
}
func (s *stubPage) First(selector string) (browser.Element, error) { return nil, nil }
func (s *stubPage) URL() string                                    { return "" }
func (s *stubPage) Title() (string, error)                         { return "", nil }
func (s *stubPage) Content() (string, error)                       { return "", nil }
func (s *stubPage) Screenshot(fullPage bool) ([]byte, error)       { return nil, nil }
func (s *stubPage) ClickAt(x, y float64) error                     { return nil }
func (s *stubPage) TypeAt(x, y float64, text string) error         { return nil }
func (s *stubPage) Close() error                                   { s.closed = true; return nil }

type stubPageFactory struct {
	mu    sync.Mutex
	pages []*stubPage
}

func (f *stubPageFactory) NewPage(cookies []browser.Cookie) (browser.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &stubPage{}
	f.pages = append(f.pages, p)
	return p, nil
}

func (f *stubPageFactory) Cookies(p browser.Page) ([]browser.Cookie, error) {
	return []browser.Cookie{{Name: "sid", Value: "abc"}}, nil
}

type stubSessionCache struct {
	mu          sync.Mutex
	cookies     map[string][]browser.Cookie
	saved       []string
	invalidated []string
}

func (s *stubSessionCache) Load(ctx context.Context, source string) ([]browser.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies[source], nil
}

func (s *stubSessionCache) Save(ctx context.Context, source string, cookies []browser.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, source)
	return nil
}

func (s *stubSessionCache) Invalidate(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, source)
	return nil
}

type stubAdapter struct {
	name     string
	listings []domain.RawListing
	err      error
	panics   bool
	delay    time.Duration
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Search(ctx context.Context, page browser.Page, query domain.Query) ([]domain.RawListing, error) {
	if s.panics {
		panic("adapter exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return s.listings, ctx.Err()
		}
	}
	return s.listings, s.err
}

func listing(source, url, title, org string) domain.RawListing {
	return domain.NewRawListing(source, url, title, org)
}

func newTestCoordinator(t *testing.T, opts Options, adapters ...sources.Adapter) (*Coordinator, *stubPageFactory) {
	t.Helper()
	registry := sources.NewRegistry()
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			t.Fatalf("Register(%s) error = %v", a.Name(), err)
		}
	}
	cfg := config.SourcesConfig{AdapterTimeout: 5 * time.Second}
	factory := &stubPageFactory{}
	return NewCoordinator(registry, factory, cfg, opts, zap.NewNop()), factory
}

func TestSearchAll_AggregatesAllSources(t *testing.T) {
	c, factory := newTestCoordinator(t, Options{},
		&stubAdapter{name: "alpha", listings: []domain.RawListing{
			listing("alpha", "https://a.com/1", "Engineer", "Acme"),
		}},
		&stubAdapter{name: "beta", listings: []domain.RawListing{
			listing("beta", "https://b.com/1", "Designer", "Beta"),
		}},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if result.TotalUnique != 2 {
		t.Errorf("TotalUnique = %d, want 2", result.TotalUnique)
	}
	if len(result.SuccessfulSources) != 2 {
		t.Errorf("SuccessfulSources = %v, want both", result.SuccessfulSources)
	}
	if len(result.FailedSources) != 0 {
		t.Errorf("FailedSources = %v, want none", result.FailedSources)
	}
	for i, p := range factory.pages {
		if !p.closed {
			t.Errorf("page %d not closed", i)
		}
	}
}

func TestSearchAll_FaultIsolation(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{},
		&stubAdapter{name: "broken", err: errors.New("boom")},
		&stubAdapter{name: "working", listings: []domain.RawListing{
			listing("working", "https://w.com/1", "Engineer", "Acme"),
		}},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if result.TotalUnique != 1 {
		t.Errorf("TotalUnique = %d, want working adapter's listing", result.TotalUnique)
	}
	if len(result.FailedSources) != 1 || result.FailedSources[0] != "broken" {
		t.Errorf("FailedSources = %v, want [broken]", result.FailedSources)
	}
	if len(result.SuccessfulSources) != 1 || result.SuccessfulSources[0] != "working" {
		t.Errorf("SuccessfulSources = %v, want [working]", result.SuccessfulSources)
	}
	if result.BySource["broken"].ErrorMessage == "" {
		t.Error("failed source should carry an error message")
	}
}

func TestSearchAll_PanicIsolation(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{},
		&stubAdapter{name: "panicky", panics: true},
		&stubAdapter{name: "calm", listings: []domain.RawListing{
			listing("calm", "https://c.com/1", "Engineer", "Acme"),
		}},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if len(result.FailedSources) != 1 || result.FailedSources[0] != "panicky" {
		t.Errorf("FailedSources = %v, want [panicky]", result.FailedSources)
	}
	if result.TotalUnique != 1 {
		t.Errorf("TotalUnique = %d, want 1", result.TotalUnique)
	}
}

func TestSearchAll_PartialResultsKeptOnFailure(t *testing.T) {
	partial := []domain.RawListing{
		listing("flaky", "https://f.com/1", "Engineer", "Acme"),
		listing("flaky", "https://f.com/2", "Designer", "Beta"),
	}
	c, _ := newTestCoordinator(t, Options{},
		&stubAdapter{name: "flaky", listings: partial, err: errors.New("blocked mid-pagination")},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if result.TotalUnique != 2 {
		t.Errorf("TotalUnique = %d, want partial extractions preserved", result.TotalUnique)
	}
	if len(result.FailedSources) != 1 {
		t.Errorf("FailedSources = %v, want flaky marked failed", result.FailedSources)
	}
}

func TestSearchAll_AuthFailureInvalidatesCachedSession(t *testing.T) {
	sessions := &stubSessionCache{}
	c, _ := newTestCoordinator(t, Options{Sessions: sessions},
		&stubAdapter{name: "walled", err: domain.AuthRequiredError("walled")},
		&stubAdapter{name: "open", listings: []domain.RawListing{
			listing("open", "https://o.com/1", "Engineer", "Acme"),
		}},
	)

	_, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if len(sessions.invalidated) != 1 || sessions.invalidated[0] != "walled" {
		t.Errorf("invalidated = %v, want the auth-walled source's session dropped", sessions.invalidated)
	}
	if len(sessions.saved) != 1 || sessions.saved[0] != "open" {
		t.Errorf("saved = %v, want only the successful source cached", sessions.saved)
	}
}

func TestSearchAll_PlainFailureKeepsCachedSession(t *testing.T) {
	sessions := &stubSessionCache{}
	c, _ := newTestCoordinator(t, Options{Sessions: sessions},
		&stubAdapter{name: "flaky", err: errors.New("boom")},
	)

	if _, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil); err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}
	if len(sessions.invalidated) != 0 {
		t.Errorf("invalidated = %v, want no invalidation on non-auth failure", sessions.invalidated)
	}
}

func TestSearchAll_DedupesAcrossSources(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{},
		&stubAdapter{name: "alpha", listings: []domain.RawListing{
			listing("alpha", "https://x.com/job/1?ref=a", "Engineer", "Acme"),
		}},
		&stubAdapter{name: "beta", listings: []domain.RawListing{
			listing("beta", "https://x.com/job/1", "Engineer", "Acme"),
		}},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if result.TotalUnique != 1 {
		t.Fatalf("TotalUnique = %d, want 1", result.TotalUnique)
	}
	if result.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", result.DuplicatesRemoved)
	}
	canonical := result.Listings[0]
	if canonical.Source != "alpha" {
		t.Errorf("canonical Source = %v, want first registered adapter's record", canonical.Source)
	}
	if len(canonical.Sources) != 2 {
		t.Errorf("Sources = %v, want both adapters recorded", canonical.Sources)
	}
}

func TestSearchAll_UnknownSourceDropped(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{},
		&stubAdapter{name: "alpha", listings: []domain.RawListing{
			listing("alpha", "https://a.com/1", "Engineer", "Acme"),
		}},
	)

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, []string{"alpha", "nonexistent"})
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}
	if result.TotalUnique != 1 {
		t.Errorf("TotalUnique = %d, want 1", result.TotalUnique)
	}

	if _, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, []string{"nonexistent"}); err == nil {
		t.Error("all-unknown source list should be an error")
	}
}

func TestSearchAll_AdapterTimeout(t *testing.T) {
	registry := sources.NewRegistry()
	slow := &stubAdapter{name: "slow", delay: time.Hour}
	fast := &stubAdapter{name: "fast", listings: []domain.RawListing{
		listing("fast", "https://f.com/1", "Engineer", "Acme"),
	}}
	if err := registry.Register(slow); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(fast); err != nil {
		t.Fatal(err)
	}

	cfg := config.SourcesConfig{AdapterTimeout: 50 * time.Millisecond}
	c := NewCoordinator(registry, &stubPageFactory{}, cfg, Options{}, zap.NewNop())

	result, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("SearchAll() error = %v", err)
	}

	if len(result.FailedSources) != 1 || result.FailedSources[0] != "slow" {
		t.Errorf("FailedSources = %v, want [slow]", result.FailedSources)
	}
	if result.TotalUnique != 1 {
		t.Errorf("TotalUnique = %d, want fast adapter's listing", result.TotalUnique)
	}
}

func TestSearchAll_InvalidQuery(t *testing.T) {
	c, _ := newTestCoordinator(t, Options{}, &stubAdapter{name: "alpha"})

	if _, err := c.SearchAll(context.Background(), domain.Query{Keywords: "", MaxResults: 10}, nil); !domain.IsCode(err, domain.ErrCodeValidation) {
		t.Errorf("empty keywords: err = %v, want validation error", err)
	}
	if _, err := c.SearchAll(context.Background(), domain.Query{Keywords: "go", MaxResults: 0}, nil); !domain.IsCode(err, domain.ErrCodeValidation) {
		t.Errorf("zero cap: err = %v, want validation error", err)
	}
}
