package apply

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/vision"
)

type stubFieldVision struct {
	available  bool
	detections []vision.FieldDetection
	calls      int
}

func (s *stubFieldVision) Available(ctx context.Context) bool { return s.available }

func (s *stubFieldVision) DetectFormFields(ctx context.Context, screenshot []byte) ([]vision.FieldDetection, error) {
	s.calls++
	return s.detections, nil
}

func TestDiscoverFields_Structural(t *testing.T) {
	email := newInput(map[string]string{"id": "email", "name": "email", "placeholder": "you@example.com"})
	phone := newInput(map[string]string{"name": "phone", "aria-required": "true"})
	hidden := newInput(map[string]string{"name": "honeypot"})
	hidden.visible = false
	textarea := &fakeElement{tag: "textarea", visible: true, attrs: map[string]string{"name": "cover_letter"}, box: browser.Box{X: 10, Y: 200, Width: 300, Height: 80}}

	page := &fakePage{
		url: "https://acme.example/apply",
		elements: map[string][]browser.Element{
			"input[type=email]":                 {email},
			"input[type=tel]":                   {phone},
			"input[type=text], input:not([type])": {hidden},
			"textarea":                          {textarea},
		},
	}

	d := NewDiscoverer(nil, zap.NewNop())
	fields, err := d.DiscoverFields(context.Background(), page)
	if err != nil {
		t.Fatalf("DiscoverFields() error = %v", err)
	}

	if len(fields) != 3 {
		t.Fatalf("fields = %d, want 3 (hidden input skipped)", len(fields))
	}

	var phoneField *domain.DiscoveredField
	for i := range fields {
		if fields[i].Name == "phone" {
			phoneField = &fields[i]
		}
	}
	if phoneField == nil {
		t.Fatal("phone field not discovered")
	}
	if !phoneField.Required {
		t.Error("aria-required=true should mark field required")
	}
	if phoneField.Selector != `[name="phone"]` {
		t.Errorf("Selector = %q, want name-based selector", phoneField.Selector)
	}
	if !phoneField.HasCoordinates {
		t.Error("field with bounding box should carry coordinates")
	}
	if phoneField.X != 60 || phoneField.Y != 35 {
		t.Errorf("center = (%v, %v), want box midpoint (60, 35)", phoneField.X, phoneField.Y)
	}
}

func TestDiscoverFields_LabelResolution(t *testing.T) {
	labelled := newInput(map[string]string{"id": "fn"})
	aria := newInput(map[string]string{"name": "ln", "aria-label": "Last name"})
	wrapped := newInput(map[string]string{"name": "city"})
	wrapped.children = map[string]*fakeElement{
		"xpath=ancestor::label[1]": {text: "City"},
	}
	sibling := newInput(map[string]string{"name": "zip"})
	sibling.children = map[string]*fakeElement{
		"xpath=preceding-sibling::*[1]": {text: "Postal code"},
	}

	page := &fakePage{
		url: "https://acme.example/apply",
		elements: map[string][]browser.Element{
			"input[type=text], input:not([type])": {labelled, aria, wrapped, sibling},
			`label[for="fn"]`:                     {&fakeElement{text: "First name", visible: true}},
		},
	}

	d := NewDiscoverer(nil, zap.NewNop())
	fields, err := d.DiscoverFields(context.Background(), page)
	if err != nil {
		t.Fatalf("DiscoverFields() error = %v", err)
	}

	labels := map[string]string{}
	for _, f := range fields {
		labels[f.Name] = f.Label
	}
	if labels[""] != "First name" {
		t.Errorf("label[for] resolution = %q, want First name", labels[""])
	}
	if labels["ln"] != "Last name" {
		t.Errorf("aria-label resolution = %q, want Last name", labels["ln"])
	}
	if labels["city"] != "City" {
		t.Errorf("ancestor label resolution = %q, want City", labels["city"])
	}
	if labels["zip"] != "Postal code" {
		t.Errorf("sibling resolution = %q, want Postal code", labels["zip"])
	}
}

func TestDiscoverFields_VisionSupplement(t *testing.T) {
	visionBackend := &stubFieldVision{
		available: true,
		detections: []vision.FieldDetection{
			{Label: "Email", FieldType: "email", X: 400, Y: 250},
			{Label: "Resume", FieldType: "file", X: 400, Y: 380},
		},
	}

	// One structural field, below the supplement threshold
	page := &fakePage{
		url: "https://acme.example/apply",
		elements: map[string][]browser.Element{
			"input[type=text], input:not([type])": {newInput(map[string]string{"name": "name"})},
		},
	}

	d := NewDiscoverer(visionBackend, zap.NewNop())
	fields, err := d.DiscoverFields(context.Background(), page)
	if err != nil {
		t.Fatalf("DiscoverFields() error = %v", err)
	}

	if len(fields) != 3 {
		t.Fatalf("fields = %d, want 1 structural + 2 vision", len(fields))
	}
	visionField := fields[1]
	if visionField.Kind != domain.FieldEmail {
		t.Errorf("Kind = %v, want email", visionField.Kind)
	}
	if visionField.Selector != "" {
		t.Errorf("vision field Selector = %q, want empty", visionField.Selector)
	}
	if !visionField.HasCoordinates || visionField.X != 400 {
		t.Errorf("vision field should carry coordinates, got %+v", visionField)
	}
	if fields[2].Kind != domain.FieldFile {
		t.Errorf("Kind = %v, want file", fields[2].Kind)
	}
}

func TestDiscoverFields_VisionSkippedWhenEnoughStructural(t *testing.T) {
	visionBackend := &stubFieldVision{available: true}
	page := &fakePage{
		url: "https://acme.example/apply",
		elements: map[string][]browser.Element{
			"input[type=text], input:not([type])": {
				newInput(map[string]string{"name": "a"}),
				newInput(map[string]string{"name": "b"}),
				newInput(map[string]string{"name": "c"}),
			},
		},
	}

	d := NewDiscoverer(visionBackend, zap.NewNop())
	if _, err := d.DiscoverFields(context.Background(), page); err != nil {
		t.Fatalf("DiscoverFields() error = %v", err)
	}
	if visionBackend.calls != 0 {
		t.Errorf("vision calls = %d, want 0 with enough structural fields", visionBackend.calls)
	}
}

func TestDiscoverFields_NoFields(t *testing.T) {
	page := &fakePage{url: "https://acme.example/apply", elements: map[string][]browser.Element{}}

	d := NewDiscoverer(nil, zap.NewNop())
	_, err := d.DiscoverFields(context.Background(), page)
	if !domain.IsCode(err, domain.ErrCodeNoFieldsDiscovered) {
		t.Fatalf("err = %v, want NO_FIELDS_DISCOVERED", err)
	}
}
