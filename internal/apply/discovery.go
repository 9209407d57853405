// Package apply drives job application forms: discovering their fields,
// binding them to profile attributes, filling them, and gating every
// state-changing step behind human review.
package apply

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/vision"
)

// minStructuralFields is the threshold below which the discoverer asks
// the vision backend for a second opinion. Real application forms almost
// always have more inputs than this; fewer suggests the DOM scan missed
// a rendered widget.
const minStructuralFields = 3

// fieldSelectors pairs each field kind with the selector that finds it.
// Scanned in order so the discovered list is stable for a given page.
var fieldSelectors = []struct {
	kind     domain.FieldKind
	selector string
}{
	{domain.FieldText, "input[type=text], input:not([type])"},
	{domain.FieldEmail, "input[type=email]"},
	{domain.FieldPhone, "input[type=tel]"},
	{domain.FieldURL, "input[type=url]"},
	{domain.FieldFile, "input[type=file]"},
	{domain.FieldTextarea, "textarea"},
	{domain.FieldSelect, "select"},
	{domain.FieldCheckbox, "input[type=checkbox]"},
	{domain.FieldRadio, "input[type=radio]"},
}

// FieldVision is the vision surface the discoverer needs
type FieldVision interface {
	Available(ctx context.Context) bool
	DetectFormFields(ctx context.Context, screenshot []byte) ([]vision.FieldDetection, error)
}

// Discoverer scans a page for interactive form fields
type Discoverer struct {
	vision FieldVision
	logger *zap.Logger
}

// NewDiscoverer creates a field discoverer. visionBackend may be nil.
func NewDiscoverer(visionBackend FieldVision, logger *zap.Logger) *Discoverer {
	return &Discoverer{vision: visionBackend, logger: logger}
}

// DiscoverFields finds the visible form fields on the page. When the DOM
// scan comes up nearly empty and a vision backend is available, visually
// detected fields supplement the structural ones.
func (d *Discoverer) DiscoverFields(ctx context.Context, page browser.Page) ([]domain.DiscoveredField, error) {
	var fields []domain.DiscoveredField

	for _, entry := range fieldSelectors {
		elements, err := page.Query(entry.selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			field := d.extractField(page, el, entry.kind)
			fields = append(fields, field)
		}
	}

	d.logger.Info("form fields discovered",
		zap.String("url", page.URL()),
		zap.Int("fields", len(fields)),
	)

	if len(fields) < minStructuralFields && d.vision != nil && d.vision.Available(ctx) {
		fields = append(fields, d.discoverWithVision(ctx, page)...)
	}

	if len(fields) == 0 {
		return nil, domain.NoFieldsError(page.URL())
	}
	return fields, nil
}

func (d *Discoverer) extractField(page browser.Page, el browser.Element, kind domain.FieldKind) domain.DiscoveredField {
	id, _ := el.Attribute("id")
	name, _ := el.Attribute("name")
	placeholder, _ := el.Attribute("placeholder")

	field := domain.DiscoveredField{
		Kind:        kind,
		Name:        name,
		ID:          id,
		Placeholder: placeholder,
		Label:       resolveLabel(page, el, id),
		Required:    isRequired(el),
		Confidence:  1.0,
	}

	switch {
	case id != "":
		field.Selector = "#" + id
	case name != "":
		field.Selector = fmt.Sprintf("[name=%q]", name)
	}

	if box, err := el.Box(); err == nil && (box.Width > 0 || box.Height > 0) {
		field.X, field.Y = box.Center()
		field.HasCoordinates = true
	}
	return field
}

// resolveLabel walks the usual label conventions in order: an explicit
// label[for], an aria-label, an enclosing label element, then the
// nearest preceding sibling's short text.
func resolveLabel(page browser.Page, el browser.Element, id string) string {
	if id != "" {
		if label, err := page.First(fmt.Sprintf("label[for=%q]", id)); err == nil && label != nil {
			if text, err := label.Text(); err == nil && text != "" {
				return text
			}
		}
	}

	if aria, err := el.Attribute("aria-label"); err == nil && aria != "" {
		return aria
	}

	if wrapper, err := el.Query("xpath=ancestor::label[1]"); err == nil && wrapper != nil {
		if text, err := wrapper.Text(); err == nil && text != "" {
			return text
		}
	}

	if sibling, err := el.Query("xpath=preceding-sibling::*[1]"); err == nil && sibling != nil {
		if text, err := sibling.Text(); err == nil && text != "" && len(text) < 100 {
			return text
		}
	}
	return ""
}

func isRequired(el browser.Element) bool {
	if aria, err := el.Attribute("aria-required"); err == nil && aria == "true" {
		return true
	}
	// A bare required attribute reads as empty, same as an absent one,
	// so only explicit values count here.
	if req, err := el.Attribute("required"); err == nil && (req == "required" || req == "true") {
		return true
	}
	return false
}

// discoverWithVision asks the vision model to point out form fields the
// DOM scan missed. Vision fields carry only coordinates and a label.
func (d *Discoverer) discoverWithVision(ctx context.Context, page browser.Page) []domain.DiscoveredField {
	screenshot, err := page.Screenshot(false)
	if err != nil {
		d.logger.Warn("screenshot for vision discovery failed", zap.Error(err))
		return nil
	}

	detections, err := d.vision.DetectFormFields(ctx, screenshot)
	if err != nil {
		d.logger.Warn("vision field discovery failed", zap.Error(err))
		return nil
	}

	fields := make([]domain.DiscoveredField, 0, len(detections))
	for _, det := range detections {
		fields = append(fields, domain.DiscoveredField{
			Kind:           kindFromVision(det.FieldType),
			Label:          det.Label,
			X:              det.X,
			Y:              det.Y,
			HasCoordinates: true,
			Confidence:     0.5,
		})
	}

	d.logger.Info("vision discovered additional fields", zap.Int("fields", len(fields)))
	return fields
}

func kindFromVision(fieldType string) domain.FieldKind {
	switch fieldType {
	case "text":
		return domain.FieldText
	case "email":
		return domain.FieldEmail
	case "phone", "tel":
		return domain.FieldPhone
	case "textarea":
		return domain.FieldTextarea
	case "select", "dropdown":
		return domain.FieldSelect
	case "checkbox":
		return domain.FieldCheckbox
	case "file":
		return domain.FieldFile
	default:
		return domain.FieldUnknown
	}
}
