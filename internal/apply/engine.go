package apply

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/locator"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/review"
)

// submitStrategies locate the final submit affordance
var submitStrategies = []locator.Strategy{
	locator.Structural("button[type=submit]"),
	locator.Structural("input[type=submit]"),
	locator.Heuristic("button, input[type=submit], .btn", "submit", "apply", "send application"),
}

// ScreenshotStore archives page screenshots taken during a run
type ScreenshotStore interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

// EngineConfig controls the gated application flow
type EngineConfig struct {
	// ReviewRequired gates mapping and submission behind human approval.
	// Disabling it is only meant for tests against throwaway pages.
	ReviewRequired bool

	// DryRun stops short of clicking submit. It is the default mode and
	// the pre-submission review is required to disable it per run.
	DryRun bool

	// Metrics records mapping and review outcomes when set
	Metrics *observability.Metrics
}

// Outcome reports one application attempt
type Outcome struct {
	PageURL       string                `json:"page_url"`
	Fields        int                   `json:"fields"`
	Mappings      []domain.FieldMapping `json:"mappings"`
	Fill          domain.FillResult     `json:"fill"`
	Submitted     bool                  `json:"submitted"`
	DryRun        bool                  `json:"dry_run"`
	SubmitLabel   string                `json:"submit_label,omitempty"`
	ScreenshotURL string                `json:"screenshot_url,omitempty"`
	Elapsed       time.Duration         `json:"elapsed"`
}

// Engine runs the full application flow against one page: discover,
// map, review, fill, review, submit. Both reviews must approve before
// anything state-changing happens.
type Engine struct {
	discoverer  *Discoverer
	mapper      *Mapper
	filler      *Filler
	locator     ElementLocator
	gate        review.Gate
	screenshots ScreenshotStore
	config      EngineConfig
	logger      *zap.Logger
}

// NewEngine creates an application engine. screenshots may be nil.
func NewEngine(discoverer *Discoverer, mapper *Mapper, filler *Filler, elementLocator ElementLocator, gate review.Gate, screenshots ScreenshotStore, cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		discoverer:  discoverer,
		mapper:      mapper,
		filler:      filler,
		locator:     elementLocator,
		gate:        gate,
		screenshots: screenshots,
		config:      cfg,
		logger:      logger,
	}
}

// Apply drives the application form on the already-navigated page using
// the given profile values.
func (e *Engine) Apply(ctx context.Context, page browser.Page, profile map[string]string) (*Outcome, error) {
	start := time.Now()
	outcome := &Outcome{PageURL: page.URL(), DryRun: e.config.DryRun}

	fields, err := e.discoverer.DiscoverFields(ctx, page)
	if err != nil {
		return outcome, err
	}
	outcome.Fields = len(fields)

	mappings := e.mapper.MapFields(ctx, fields, profile)
	outcome.Mappings = mappings
	e.recordMappings(mappings)

	if err := e.reviewMappings(ctx, page, mappings, profile); err != nil {
		outcome.Elapsed = time.Since(start)
		return outcome, err
	}

	outcome.Fill = e.filler.Fill(ctx, page, mappings, profile)
	e.captureScreenshot(ctx, page, outcome)

	if err := e.reviewSubmission(ctx, page, outcome); err != nil {
		outcome.Elapsed = time.Since(start)
		return outcome, err
	}

	if err := e.submit(ctx, page, outcome); err != nil {
		outcome.Elapsed = time.Since(start)
		return outcome, err
	}

	outcome.Elapsed = time.Since(start)
	return outcome, nil
}

// reviewMappings runs the first checkpoint. Any gate error rejects.
func (e *Engine) reviewMappings(ctx context.Context, page browser.Page, mappings []domain.FieldMapping, profile map[string]string) error {
	if !e.config.ReviewRequired {
		return nil
	}

	mapped := 0
	req := domain.NewReviewRequest(domain.StageMappingReview, page.URL(), "")
	for _, m := range mappings {
		if m.Attribute == "" {
			continue
		}
		mapped++
		req.Mappings = append(req.Mappings, domain.MappingSummary{
			FieldLabel: fieldName(m.Field),
			Attribute:  m.Attribute,
			Value:      profile[m.Attribute],
			Confidence: m.Confidence,
			Method:     string(m.Method),
		})
		if m.Confidence < 0.5 {
			req.Warnings = append(req.Warnings, fmt.Sprintf("low-confidence mapping for %s", fieldName(m.Field)))
		}
	}
	req.Message = fmt.Sprintf("Review the %d proposed field mappings. Approve to fill the form.", mapped)

	resp, err := e.gate.Review(ctx, req)
	e.recordReview(domain.StageMappingReview, err == nil && resp.Approved)
	if err != nil {
		e.logger.Error("mapping review channel failed, rejecting", zap.Error(err))
		return domain.RejectedError(domain.StageMappingReview, "review channel failure")
	}
	if !resp.Approved {
		return domain.RejectedError(domain.StageMappingReview, resp.Notes)
	}
	return nil
}

// reviewSubmission runs the second checkpoint, only reachable after an
// approved mapping review.
func (e *Engine) reviewSubmission(ctx context.Context, page browser.Page, outcome *Outcome) error {
	if !e.config.ReviewRequired {
		return nil
	}

	message := fmt.Sprintf("Form filled: %d fields set, %d errors, %d pending actions.",
		outcome.Fill.FilledCount, len(outcome.Fill.Errors), len(outcome.Fill.Pending))
	if e.config.DryRun {
		message += " Dry run: submission will be logged, not performed."
	} else {
		message += " Approving WILL submit this application."
	}

	if outcome.ScreenshotURL != "" {
		message += fmt.Sprintf(" Screenshot: %s", outcome.ScreenshotURL)
	}

	req := domain.NewReviewRequest(domain.StageSubmissionReview, page.URL(), message)
	req.Warnings = append(req.Warnings, outcome.Fill.Errors...)
	req.Warnings = append(req.Warnings, outcome.Fill.Pending...)

	resp, err := e.gate.Review(ctx, req)
	e.recordReview(domain.StageSubmissionReview, err == nil && resp.Approved)
	if err != nil {
		e.logger.Error("submission review channel failed, rejecting", zap.Error(err))
		return domain.RejectedError(domain.StageSubmissionReview, "review channel failure")
	}
	if !resp.Approved {
		return domain.RejectedError(domain.StageSubmissionReview, resp.Notes)
	}
	return nil
}

// submit locates the submit affordance and, outside dry-run mode, clicks it
func (e *Engine) submit(ctx context.Context, page browser.Page, outcome *Outcome) error {
	intent := locator.Intent{
		Description: "submit application button",
		Strategies:  submitStrategies,
	}
	resolved, err := e.locator.Locate(ctx, page, intent)
	if err != nil || !resolved.Success {
		return domain.SubmissionNotFoundError(page.URL())
	}

	if resolved.Target.Element != nil {
		if label, err := resolved.Target.Element.Text(); err == nil {
			outcome.SubmitLabel = label
		}
	}

	if e.config.DryRun {
		e.logger.Info("dry run: submission skipped",
			zap.String("url", page.URL()),
			zap.String("button", outcome.SubmitLabel),
		)
		return nil
	}

	if resolved.Target.Element != nil {
		err = resolved.Target.Element.Click()
	} else {
		err = page.ClickAt(resolved.Target.X, resolved.Target.Y)
	}
	if err != nil {
		return fmt.Errorf("clicking submit: %w", err)
	}

	outcome.Submitted = true
	e.logger.Info("application submitted", zap.String("url", page.URL()))
	return nil
}

func (e *Engine) recordMappings(mappings []domain.FieldMapping) {
	if e.config.Metrics == nil {
		return
	}
	for _, m := range mappings {
		method := string(m.Method)
		if m.Attribute == "" {
			method = "unmapped"
		}
		e.config.Metrics.RecordMapping(method)
	}
}

func (e *Engine) recordReview(stage domain.ReviewStage, approved bool) {
	if e.config.Metrics == nil {
		return
	}
	e.config.Metrics.RecordReview(string(stage), approved)
}

func (e *Engine) captureScreenshot(ctx context.Context, page browser.Page, outcome *Outcome) {
	if e.screenshots == nil {
		return
	}
	png, err := page.Screenshot(true)
	if err != nil {
		e.logger.Debug("pre-submission screenshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("presubmit-%d.png", time.Now().UnixNano())
	url, err := e.screenshots.Save(ctx, name, png)
	if err != nil {
		e.logger.Warn("screenshot upload failed", zap.Error(err))
		return
	}
	outcome.ScreenshotURL = url
}
