package apply

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/locator"
	"github.com/jobreach/jobreach/internal/resilience"
)

type fakeElement struct {
	tag      string
	text     string
	visible  bool
	attrs    map[string]string
	children map[string]*fakeElement
	options  []browser.SelectOption

	filled        string
	cleared       bool
	clicked       bool
	checked       bool
	unchecked     bool
	selectedLabel string
	selectedValue string
	labelErr      error
	box           browser.Box
}

func newInput(attrs map[string]string) *fakeElement {
	return &fakeElement{tag: "input", visible: true, attrs: attrs, box: browser.Box{X: 10, Y: 20, Width: 100, Height: 30}}
}

func (f *fakeElement) Tag() (string, error)   { return f.tag, nil }
func (f *fakeElement) Visible() (bool, error) { return f.visible, nil }
func (f *fakeElement) Text() (string, error)  { return f.text, nil }
func (f *fakeElement) Attribute(name string) (string, error) {
	return f.attrs[name], nil
}
func (f *fakeElement) Query(selector string) (browser.Element, error) {
	if child, ok := f.children[selector]; ok {
		return child, nil
	}
	return nil, nil
}
func (f *fakeElement) Fill(value string) error { f.filled = value; return nil }
func (f *fakeElement) Clear() error            { f.cleared = true; return nil }
func (f *fakeElement) Click() error            { f.clicked = true; return nil }
func (f *fakeElement) Check() error            { f.checked = true; return nil }
func (f *fakeElement) Uncheck() error          { f.unchecked = true; return nil }
func (f *fakeElement) SelectByLabel(label string) error {
	if f.labelErr != nil {
		return f.labelErr
	}
	f.selectedLabel = label
	return nil
}
func (f *fakeElement) SelectByValue(value string) error {
	if len(f.options) > 0 {
		for _, opt := range f.options {
			if opt.Value == value {
				f.selectedValue = value
				return nil
			}
		}
		return fmt.Errorf("no option with value %q", value)
	}
	f.selectedValue = value
	return nil
}
func (f *fakeElement) Options() ([]browser.SelectOption, error) { return f.options, nil }
func (f *fakeElement) Box() (browser.Box, error)                { return f.box, nil }

type fakePage struct {
	url      string
	elements map[string][]browser.Element
	shot     []byte

	typedAt   []string
	clickedAt []string
}

func (f *fakePage) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakePage) Query(selector string) ([]browser.Element, error) {
	return f.elements[selector], nil
}
func (f *fakePage) First(selector string) (browser.Element, error) {
	els := f.elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}
func (f *fakePage) URL() string              { return f.url }
func (f *fakePage) Title() (string, error)   { return "", nil }
func (f *fakePage) Content() (string, error) { return "", nil }
func (f *fakePage) Screenshot(fullPage bool) ([]byte, error) {
	if f.shot != nil {
		return f.shot, nil
	}
	return []byte("png"), nil
}
func (f *fakePage) ClickAt(x, y float64) error {
	f.clickedAt = append(f.clickedAt, coord(x, y))
	return nil
}
func (f *fakePage) TypeAt(x, y float64, text string) error {
	f.typedAt = append(f.typedAt, coord(x, y)+":"+text)
	return nil
}
func (f *fakePage) Close() error { return nil }

func coord(x, y float64) string {
	return fmt.Sprintf("%.0f,%.0f", x, y)
}

type scriptedGate struct {
	responses []domain.ReviewResponse
	errs      []error
	requests  []domain.ReviewRequest
}

func (g *scriptedGate) Review(ctx context.Context, req domain.ReviewRequest) (domain.ReviewResponse, error) {
	g.requests = append(g.requests, req)
	i := len(g.requests) - 1
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	var resp domain.ReviewResponse
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

type fakeScreenshotStore struct {
	saved map[string][]byte
	url   string
	err   error
}

func (f *fakeScreenshotStore) Save(ctx context.Context, name string, png []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[name] = png
	return f.url, nil
}

func newTestLocator(t *testing.T) *locator.Locator {
	t.Helper()
	breaker := resilience.NewBreaker(resilience.DefaultConfig("test-vision"))
	cfg := locator.DefaultConfig()
	cfg.PhaseTimeout = time.Second
	return locator.New(nil, breaker, cfg, zap.NewNop())
}

func fastFillerConfig() FillerConfig {
	return FillerConfig{MinFieldDelay: time.Millisecond, MaxFieldDelay: 2 * time.Millisecond}
}
