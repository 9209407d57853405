// Package locator resolves page elements through escalating phases:
// exact selectors first, then a keyword scan of the DOM, and finally a
// screenshot pass through the vision model.
package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/vision"
)

// Target is a resolved element: either a DOM handle or raw coordinates
// from the vision phase
type Target struct {
	Element     browser.Element
	X           float64
	Y           float64
	Coordinates bool
}

// Attempt records one strategy attempt for diagnostics
type Attempt struct {
	Phase   Phase
	Detail  string
	Matched bool
	Error   string
	Elapsed time.Duration
}

// Outcome is the result of a locate call, including the full trace of
// what was tried
type Outcome struct {
	Success bool
	Phase   Phase
	Target  Target
	Trace   []Attempt
}

// VisionBackend is the vision surface the locator needs
type VisionBackend interface {
	Available(ctx context.Context) bool
	FindElement(ctx context.Context, screenshot []byte, description string) (*vision.Detection, error)
}

// Breaker guards calls to the vision backend
type Breaker interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
}

// Config for the locator
type Config struct {
	// PhaseTimeout bounds each individual phase
	PhaseTimeout time.Duration

	// MinVisionConfidence rejects low-confidence detections
	MinVisionConfidence float64

	// MaxScan caps heuristic scans when a strategy does not set its own
	MaxScan int

	// NoiseLimit fails the heuristic phase when more elements than this
	// match the keywords, used when a strategy does not set its own
	NoiseLimit int

	// Metrics records phase attempts when set
	Metrics *observability.Metrics
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		PhaseTimeout:        15 * time.Second,
		MinVisionConfidence: 0.5,
		MaxScan:             150,
		NoiseLimit:          10,
	}
}

// Locator resolves intents against live pages
type Locator struct {
	vision  VisionBackend
	breaker Breaker
	config  Config
	logger  *zap.Logger
}

// New creates a locator. The vision backend may be nil, in which case
// vision strategies are skipped.
func New(visionBackend VisionBackend, breaker Breaker, cfg Config, logger *zap.Logger) *Locator {
	defaults := DefaultConfig()
	if cfg.PhaseTimeout == 0 {
		cfg.PhaseTimeout = defaults.PhaseTimeout
	}
	if cfg.MinVisionConfidence == 0 {
		cfg.MinVisionConfidence = defaults.MinVisionConfidence
	}
	if cfg.MaxScan == 0 {
		cfg.MaxScan = defaults.MaxScan
	}
	if cfg.NoiseLimit == 0 {
		cfg.NoiseLimit = defaults.NoiseLimit
	}

	return &Locator{
		vision:  visionBackend,
		breaker: breaker,
		config:  cfg,
		logger:  logger,
	}
}

// Locate tries each strategy of the intent in order and returns the first
// hit. When every strategy fails the outcome carries the full trace and
// the error is an unresolvable-element domain error.
func (l *Locator) Locate(ctx context.Context, page browser.Page, intent Intent) (*Outcome, error) {
	outcome := &Outcome{}

	for _, strategy := range intent.Strategies {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		phaseCtx, cancel := context.WithTimeout(ctx, l.config.PhaseTimeout)
		attempt := l.tryStrategy(phaseCtx, page, intent, strategy, outcome)
		cancel()

		outcome.Trace = append(outcome.Trace, attempt)

		if attempt.Matched {
			outcome.Success = true
			outcome.Phase = strategy.Kind

			l.logger.Debug("element resolved",
				zap.String("description", intent.Description),
				zap.String("phase", string(strategy.Kind)),
			)
			return outcome, nil
		}
	}

	l.logger.Warn("element unresolvable",
		zap.String("description", intent.Description),
		zap.Int("attempts", len(outcome.Trace)),
	)
	reason := "all strategies exhausted"
	if n := len(outcome.Trace); n > 0 {
		reason = outcome.Trace[n-1].Error
	}
	return outcome, domain.UnresolvableError(intent.Description, reason)
}

func (l *Locator) tryStrategy(ctx context.Context, page browser.Page, intent Intent, strategy Strategy, outcome *Outcome) Attempt {
	start := time.Now()
	attempt := Attempt{Phase: strategy.Kind}

	var err error
	switch strategy.Kind {
	case PhaseStructural:
		attempt.Detail = strategy.Selector
		err = l.tryStructural(page, strategy, outcome)
	case PhaseHeuristic:
		attempt.Detail = strings.Join(strategy.Keywords, ",")
		err = l.tryHeuristic(page, strategy, outcome)
	case PhaseVision:
		attempt.Detail = intent.Description
		err = l.tryVision(ctx, page, intent, outcome)
	default:
		err = fmt.Errorf("unknown strategy kind %q", strategy.Kind)
	}

	attempt.Elapsed = time.Since(start)
	if err != nil {
		attempt.Error = err.Error()
	} else {
		attempt.Matched = true
	}
	if l.config.Metrics != nil {
		l.config.Metrics.RecordLocate(string(strategy.Kind), attempt.Matched, attempt.Elapsed)
	}
	return attempt
}

func (l *Locator) tryStructural(page browser.Page, strategy Strategy, outcome *Outcome) error {
	el, err := page.First(strategy.Selector)
	if err != nil {
		return fmt.Errorf("querying %q: %w", strategy.Selector, err)
	}
	if el == nil {
		return fmt.Errorf("no match for %q", strategy.Selector)
	}

	visible, err := el.Visible()
	if err != nil {
		return fmt.Errorf("visibility check: %w", err)
	}
	if !visible {
		return fmt.Errorf("%q matched a hidden element", strategy.Selector)
	}

	outcome.Target = Target{Element: el}
	return nil
}

func (l *Locator) tryHeuristic(page browser.Page, strategy Strategy, outcome *Outcome) error {
	scope := strategy.Scope
	if scope == "" {
		scope = "a, button, input, textarea, select, [role=button]"
	}
	maxScan := strategy.MaxScan
	if maxScan == 0 {
		maxScan = l.config.MaxScan
	}
	noiseLimit := strategy.NoiseLimit
	if noiseLimit == 0 {
		noiseLimit = l.config.NoiseLimit
	}

	elements, err := page.Query(scope)
	if err != nil {
		return fmt.Errorf("querying scope %q: %w", scope, err)
	}
	if len(elements) > maxScan {
		elements = elements[:maxScan]
	}

	var best browser.Element
	bestScore := 0
	matched := 0

	for _, el := range elements {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}

		text := elementText(el)
		score := 0
		for _, kw := range strategy.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				score++
			}
		}
		if score > 0 {
			matched++
		}
		if score > bestScore {
			best, bestScore = el, score
		}
	}

	if best == nil {
		return fmt.Errorf("no element matched keywords %v", strategy.Keywords)
	}
	if matched > noiseLimit {
		return fmt.Errorf("%d elements matched keywords %v, above the noise limit %d", matched, strategy.Keywords, noiseLimit)
	}

	outcome.Target = Target{Element: best}
	return nil
}

func (l *Locator) tryVision(ctx context.Context, page browser.Page, intent Intent, outcome *Outcome) error {
	if l.vision == nil {
		return fmt.Errorf("vision backend not configured")
	}

	return l.breaker.Execute(ctx, func(ctx context.Context) error {
		if !l.vision.Available(ctx) {
			return fmt.Errorf("vision backend unavailable")
		}

		screenshot, err := page.Screenshot(false)
		if err != nil {
			return fmt.Errorf("taking screenshot: %w", err)
		}

		det, err := l.vision.FindElement(ctx, screenshot, intent.Description)
		if err != nil {
			return err
		}
		if !det.Found {
			return fmt.Errorf("vision model did not find the element")
		}
		if det.Confidence < l.config.MinVisionConfidence {
			return fmt.Errorf("vision confidence %.2f below threshold %.2f",
				det.Confidence, l.config.MinVisionConfidence)
		}

		x, y := det.Center()
		outcome.Target = Target{X: x, Y: y, Coordinates: true}
		return nil
	})
}

// elementText gathers the searchable text of an element: its content plus
// naming attributes, lowercased
func elementText(el browser.Element) string {
	var parts []string

	if text, err := el.Text(); err == nil && text != "" {
		parts = append(parts, text)
	}
	for _, attr := range []string{"aria-label", "placeholder", "name", "id", "value", "title"} {
		if v, err := el.Attribute(attr); err == nil && v != "" {
			parts = append(parts, v)
		}
	}

	return strings.ToLower(strings.Join(parts, " "))
}
