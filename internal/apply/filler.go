package apply

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/locator"
	"github.com/jobreach/jobreach/internal/observability"
)

// ElementLocator resolves element intents on a page
type ElementLocator interface {
	Locate(ctx context.Context, page browser.Page, intent locator.Intent) (*locator.Outcome, error)
}

// FillerConfig holds form interaction pacing
type FillerConfig struct {
	// Delay window between field operations. Pacing only; nothing
	// depends on it for correctness.
	MinFieldDelay time.Duration
	MaxFieldDelay time.Duration

	// Metrics records per-field fill outcomes when set
	Metrics *observability.Metrics
}

// DefaultFillerConfig returns default pacing
func DefaultFillerConfig() FillerConfig {
	return FillerConfig{
		MinFieldDelay: 500 * time.Millisecond,
		MaxFieldDelay: 1500 * time.Millisecond,
	}
}

// Filler writes profile values into mapped form fields
type Filler struct {
	locator ElementLocator
	config  FillerConfig
	logger  *zap.Logger
}

// NewFiller creates a form filler
func NewFiller(elementLocator ElementLocator, cfg FillerConfig, logger *zap.Logger) *Filler {
	return &Filler{locator: elementLocator, config: cfg, logger: logger}
}

// navigationStrategies probe for a continue/next affordance after filling
var navigationStrategies = []locator.Strategy{
	locator.Structural("button[type=submit]"),
	locator.Heuristic("button, input[type=submit], a[role=button], .btn", "next", "continue", "save and continue"),
}

// Fill writes values into every mapping that has both an attribute and a
// non-empty value. File fields are never filled automatically; they are
// reported as pending user actions instead.
func (f *Filler) Fill(ctx context.Context, page browser.Page, mappings []domain.FieldMapping, values map[string]string) domain.FillResult {
	var result domain.FillResult

	for _, mapping := range mappings {
		if mapping.Attribute == "" {
			continue
		}
		value := values[mapping.Attribute]
		if value == "" {
			continue
		}

		if mapping.Field.Kind == domain.FieldFile {
			pending := fmt.Sprintf("file upload for %s (%s) requires user action", mapping.Attribute, fieldName(mapping.Field))
			result.Pending = append(result.Pending, pending)
			f.logger.Info("file field left for user",
				zap.String("attribute", mapping.Attribute),
				zap.String("field", fieldName(mapping.Field)),
			)
			continue
		}

		err := f.fillField(ctx, page, mapping.Field, value)
		if f.config.Metrics != nil {
			f.config.Metrics.RecordFill(string(mapping.Field.Kind), err == nil)
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fieldName(mapping.Field), err))
			f.logger.Warn("field fill failed",
				zap.String("attribute", mapping.Attribute),
				zap.String("field", fieldName(mapping.Field)),
				zap.Error(err),
			)
			continue
		}

		result.FilledCount++
		f.pause(ctx)
	}

	result.NavigationAvailable = f.probeNavigation(ctx, page)
	f.logger.Info("form fill complete",
		zap.Int("filled", result.FilledCount),
		zap.Int("errors", len(result.Errors)),
		zap.Int("pending", len(result.Pending)),
		zap.Bool("navigation_available", result.NavigationAvailable),
	)
	return result
}

// fillField resolves the field and performs the kind-appropriate
// interaction. A structural handle is always preferred; coordinates are
// the fallback for vision-only fields.
func (f *Filler) fillField(ctx context.Context, page browser.Page, field domain.DiscoveredField, value string) error {
	target, err := f.resolve(ctx, page, field)
	if err != nil {
		return err
	}

	if target.Element != nil {
		return fillElement(target.Element, field.Kind, value)
	}
	if target.Coordinates {
		return page.TypeAt(target.X, target.Y, value)
	}
	return fmt.Errorf("no usable target for %s", fieldName(field))
}

func (f *Filler) resolve(ctx context.Context, page browser.Page, field domain.DiscoveredField) (locator.Target, error) {
	intent := locator.Intent{Description: fieldName(field)}
	if field.Selector != "" {
		intent.Strategies = append(intent.Strategies, locator.Structural(field.Selector))
	}

	if len(intent.Strategies) > 0 {
		outcome, err := f.locator.Locate(ctx, page, intent)
		if err == nil && outcome.Success {
			return outcome.Target, nil
		}
	}

	if field.HasCoordinates {
		return locator.Target{X: field.X, Y: field.Y, Coordinates: true}, nil
	}
	return locator.Target{}, domain.UnresolvableError(intent.Description, "no selector match and no coordinates")
}

func fillElement(el browser.Element, kind domain.FieldKind, value string) error {
	switch {
	case kind.IsTextual() || kind == domain.FieldUnknown:
		if err := el.Clear(); err != nil {
			return err
		}
		return el.Fill(value)

	case kind == domain.FieldSelect:
		return selectOption(el, value)

	case kind == domain.FieldCheckbox:
		if truthy(value) {
			return el.Check()
		}
		return el.Uncheck()

	case kind == domain.FieldRadio:
		if truthy(value) {
			return el.Click()
		}
		return nil

	default:
		return fmt.Errorf("unsupported field kind %q", kind)
	}
}

// selectOption tries label match, then value match, then a substring
// scan over the option list
func selectOption(el browser.Element, value string) error {
	if err := el.SelectByLabel(value); err == nil {
		return nil
	}
	if err := el.SelectByValue(value); err == nil {
		return nil
	}

	options, err := el.Options()
	if err != nil {
		return fmt.Errorf("listing options: %w", err)
	}
	lower := strings.ToLower(value)
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Label), lower) {
			return el.SelectByValue(opt.Value)
		}
	}
	return fmt.Errorf("no option matches %q", value)
}

// truthy interprets checkbox-style values
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "checked", "on":
		return true
	}
	return false
}

// probeNavigation reports whether a continue/next affordance exists.
// It never clicks; advancing pages is a reviewed action.
func (f *Filler) probeNavigation(ctx context.Context, page browser.Page) bool {
	intent := locator.Intent{
		Description: "continue or next button",
		Strategies:  navigationStrategies,
	}
	outcome, err := f.locator.Locate(ctx, page, intent)
	return err == nil && outcome.Success
}

func (f *Filler) pause(ctx context.Context) {
	delay := f.config.MinFieldDelay
	if span := f.config.MaxFieldDelay - f.config.MinFieldDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func fieldName(field domain.DiscoveredField) string {
	for _, s := range []string{field.Label, field.Name, field.ID, field.Placeholder} {
		if s != "" {
			return s
		}
	}
	if field.Selector != "" {
		return field.Selector
	}
	return "unnamed field"
}
