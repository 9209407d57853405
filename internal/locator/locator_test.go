package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/resilience"
	"github.com/jobreach/jobreach/internal/vision"
)

type fakeElement struct {
	tag     string
	text    string
	attrs   map[string]string
	visible bool
	box     browser.Box
}

func (f *fakeElement) Tag() (string, error)     { return f.tag, nil }
func (f *fakeElement) Visible() (bool, error)   { return f.visible, nil }
func (f *fakeElement) Text() (string, error)    { return f.text, nil }
func (f *fakeElement) Attribute(name string) (string, error) {
	return f.attrs[name], nil
}
func (f *fakeElement) Query(selector string) (browser.Element, error) { return nil, nil }
func (f *fakeElement) Fill(value string) error                        { return nil }
func (f *fakeElement) Clear() error                                   { return nil }
func (f *fakeElement) Click() error                                   { return nil }
func (f *fakeElement) Check() error                                   { return nil }
func (f *fakeElement) Uncheck() error                                 { return nil }
func (f *fakeElement) SelectByLabel(label string) error               { return nil }
func (f *fakeElement) SelectByValue(value string) error               { return nil }
func (f *fakeElement) Options() ([]browser.SelectOption, error)       { return nil, nil }
func (f *fakeElement) Box() (browser.Box, error)                      { return f.box, nil }

type fakePage struct {
	elements   map[string][]browser.Element
	screenshot []byte
	url        string
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
func (f *fakePage) URL() string                          { return f.url }
func (f *fakePage) Title() (string, error)               { return "", nil }
func (f *fakePage) Content() (string, error)             { return "", nil }
func (f *fakePage) Screenshot(fullPage bool) ([]byte, error) {
	return f.screenshot, nil
}
func (f *fakePage) ClickAt(x, y float64) error                 { return nil }
func (f *fakePage) TypeAt(x, y float64, text string) error     { return nil }
func (f *fakePage) Close() error                               { return nil }

type fakeVision struct {
	available bool
	detection *vision.Detection
	err       error
	calls     int
}

func (f *fakeVision) Available(ctx context.Context) bool { return f.available }
func (f *fakeVision) FindElement(ctx context.Context, screenshot []byte, description string) (*vision.Detection, error) {
	f.calls++
	return f.detection, f.err
}

func newTestLocator(v VisionBackend) *Locator {
	return New(v, resilience.NewBreaker(resilience.DefaultConfig("vision")), Config{}, zap.NewNop())
}

func TestLocate_StructuralHit(t *testing.T) {
	el := &fakeElement{tag: "button", text: "Apply now", visible: true}
	page := &fakePage{elements: map[string][]browser.Element{
		"button.apply": {el},
	}}

	l := newTestLocator(nil)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies:  []Strategy{Structural("button.apply")},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if outcome.Phase != PhaseStructural {
		t.Errorf("Phase = %v, want structural", outcome.Phase)
	}
	if outcome.Target.Element != el {
		t.Error("target should be the matched element")
	}
	if outcome.Target.Coordinates {
		t.Error("structural hit should not be a coordinate target")
	}
	if len(outcome.Trace) != 1 || !outcome.Trace[0].Matched {
		t.Errorf("trace = %+v, want single matched attempt", outcome.Trace)
	}
}

func TestLocate_HiddenStructuralMatchRejected(t *testing.T) {
	hidden := &fakeElement{tag: "button", visible: false}
	page := &fakePage{elements: map[string][]browser.Element{
		"button.apply": {hidden},
	}}

	l := newTestLocator(nil)
	_, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies:  []Strategy{Structural("button.apply")},
	})
	if !errors.Is(err, domain.ErrElementUnresolvable) {
		t.Fatalf("expected unresolvable error, got %v", err)
	}
}

func TestLocate_HeuristicFallback(t *testing.T) {
	noise := &fakeElement{tag: "a", text: "Home", visible: true}
	match := &fakeElement{tag: "button", text: "Easy Apply", visible: true}
	page := &fakePage{elements: map[string][]browser.Element{
		"a, button": {noise, match},
	}}

	l := newTestLocator(nil)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies: []Strategy{
			Structural("button.apply"),
			Heuristic("a, button", "apply"),
		},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if outcome.Phase != PhaseHeuristic {
		t.Errorf("Phase = %v, want heuristic", outcome.Phase)
	}
	if outcome.Target.Element != match {
		t.Error("target should be the keyword match")
	}
	if len(outcome.Trace) != 2 {
		t.Fatalf("trace length = %d, want 2", len(outcome.Trace))
	}
	if outcome.Trace[0].Matched || outcome.Trace[0].Error == "" {
		t.Errorf("first attempt should be a recorded miss: %+v", outcome.Trace[0])
	}
}

func TestLocate_HeuristicPrefersBestScore(t *testing.T) {
	weak := &fakeElement{tag: "button", text: "Apply", visible: true}
	strong := &fakeElement{tag: "button", text: "Submit application", visible: true,
		attrs: map[string]string{"aria-label": "apply"}}
	page := &fakePage{elements: map[string][]browser.Element{
		"button": {weak, strong},
	}}

	l := newTestLocator(nil)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "submit",
		Strategies:  []Strategy{Heuristic("button", "apply", "submit")},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if outcome.Target.Element != strong {
		t.Error("expected element matching more keywords to win")
	}
}

func TestLocate_NoisyHeuristicRejected(t *testing.T) {
	var buttons []browser.Element
	for i := 0; i < 12; i++ {
		buttons = append(buttons, &fakeElement{tag: "button", text: fmt.Sprintf("Apply to job %d", i), visible: true})
	}
	page := &fakePage{elements: map[string][]browser.Element{
		"button": buttons,
	}}

	l := New(nil, resilience.NewBreaker(resilience.DefaultConfig("vision")),
		Config{NoiseLimit: 10}, zap.NewNop())
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies:  []Strategy{Heuristic("button", "apply")},
	})
	if !errors.Is(err, domain.ErrElementUnresolvable) {
		t.Fatalf("expected unresolvable error on ambiguous page, got %v", err)
	}
	if len(outcome.Trace) != 1 {
		t.Fatalf("trace length = %d, want 1", len(outcome.Trace))
	}
	if !strings.Contains(outcome.Trace[0].Error, "noise limit") {
		t.Errorf("trace error = %q, want noise limit rejection", outcome.Trace[0].Error)
	}
}

func TestLocate_NoisyHeuristicEscalatesToVision(t *testing.T) {
	var buttons []browser.Element
	for i := 0; i < 12; i++ {
		buttons = append(buttons, &fakeElement{tag: "button", text: "Apply", visible: true})
	}
	page := &fakePage{
		elements:   map[string][]browser.Element{"button": buttons},
		screenshot: []byte("png-bytes"),
	}
	v := &fakeVision{
		available: true,
		detection: &vision.Detection{Found: true, X: 40, Y: 60, Width: 10, Height: 10, Confidence: 0.8},
	}

	l := newTestLocator(v)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button for the Acme role",
		Strategies: []Strategy{
			Heuristic("button", "apply"),
			Vision(),
		},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if outcome.Phase != PhaseVision {
		t.Errorf("Phase = %v, want vision after noisy heuristic", outcome.Phase)
	}
	if !outcome.Target.Coordinates {
		t.Error("vision hit should be a coordinate target")
	}
}

func TestLocate_HeuristicUnderNoiseLimitAccepted(t *testing.T) {
	a := &fakeElement{tag: "button", text: "Apply now", visible: true}
	b := &fakeElement{tag: "a", text: "How to apply", visible: true}
	page := &fakePage{elements: map[string][]browser.Element{
		"a, button": {a, b},
	}}

	l := newTestLocator(nil)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies:  []Strategy{Heuristic("a, button", "apply", "now")},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if outcome.Target.Element != a {
		t.Error("expected the higher-scoring element within the noise limit")
	}
}

func TestLocate_RecordsAttemptMetrics(t *testing.T) {
	metrics := observability.NewMetrics("loctest")
	el := &fakeElement{tag: "button", text: "Easy Apply", visible: true}
	page := &fakePage{elements: map[string][]browser.Element{
		"button": {el},
	}}

	cfg := DefaultConfig()
	cfg.Metrics = metrics
	l := New(nil, resilience.NewBreaker(resilience.DefaultConfig("vision")), cfg, zap.NewNop())

	_, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies: []Strategy{
			Structural("button.apply"),
			Heuristic("button", "apply"),
		},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.LocatorAttempts.WithLabelValues("structural", "failure")); got != 1 {
		t.Errorf("structural failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.LocatorAttempts.WithLabelValues("heuristic", "success")); got != 1 {
		t.Errorf("heuristic success count = %v, want 1", got)
	}
}

func TestLocate_VisionFallback(t *testing.T) {
	page := &fakePage{screenshot: []byte("png-bytes")}
	v := &fakeVision{
		available: true,
		detection: &vision.Detection{Found: true, X: 100, Y: 200, Width: 20, Height: 10, Confidence: 0.9},
	}

	l := newTestLocator(v)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies: []Strategy{
			Structural("button.apply"),
			Vision(),
		},
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if outcome.Phase != PhaseVision {
		t.Errorf("Phase = %v, want vision", outcome.Phase)
	}
	if !outcome.Target.Coordinates {
		t.Fatal("vision hit should be a coordinate target")
	}
	if outcome.Target.X != 110 || outcome.Target.Y != 205 {
		t.Errorf("target = (%v, %v), want (110, 205)", outcome.Target.X, outcome.Target.Y)
	}
}

func TestLocate_LowConfidenceVisionRejected(t *testing.T) {
	page := &fakePage{screenshot: []byte("png-bytes")}
	v := &fakeVision{
		available: true,
		detection: &vision.Detection{Found: true, X: 100, Y: 200, Confidence: 0.2},
	}

	l := newTestLocator(v)
	outcome, err := l.Locate(context.Background(), page, Intent{
		Description: "the apply button",
		Strategies:  []Strategy{Vision()},
	})
	if !errors.Is(err, domain.ErrElementUnresolvable) {
		t.Fatalf("expected unresolvable error, got %v", err)
	}
	if outcome.Success {
		t.Error("outcome should not be successful")
	}
	if len(outcome.Trace) != 1 || outcome.Trace[0].Error == "" {
		t.Errorf("trace should record the rejection: %+v", outcome.Trace)
	}
}

func TestLocate_BreakerShieldsDeadVisionBackend(t *testing.T) {
	page := &fakePage{screenshot: []byte("png-bytes")}
	v := &fakeVision{available: true, err: fmt.Errorf("model crashed")}

	l := New(v, resilience.NewBreaker(resilience.Config{
		Name:             "vision",
		FailureThreshold: 2,
	}), Config{}, zap.NewNop())

	intent := Intent{Description: "anything", Strategies: []Strategy{Vision()}}

	for i := 0; i < 3; i++ {
		l.Locate(context.Background(), page, intent)
	}

	if v.calls != 2 {
		t.Errorf("vision backend saw %d calls, want 2 (breaker open after threshold)", v.calls)
	}
}

func TestLocate_NoVisionBackendConfigured(t *testing.T) {
	page := &fakePage{}

	l := newTestLocator(nil)
	_, err := l.Locate(context.Background(), page, Intent{
		Description: "anything",
		Strategies:  []Strategy{Vision()},
	})
	if !errors.Is(err, domain.ErrElementUnresolvable) {
		t.Fatalf("expected unresolvable error, got %v", err)
	}
}
