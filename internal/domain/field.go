package domain

// FieldKind classifies a discovered form field by interaction type.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldEmail    FieldKind = "email"
	FieldPhone    FieldKind = "phone"
	FieldURL      FieldKind = "url"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
	FieldCheckbox FieldKind = "checkbox"
	FieldRadio    FieldKind = "radio"
	FieldFile     FieldKind = "file"
	FieldUnknown  FieldKind = "unknown"
)

// IsTextual reports whether the field takes free-form keyboard input.
func (k FieldKind) IsTextual() bool {
	switch k {
	case FieldText, FieldEmail, FieldPhone, FieldURL, FieldTextarea:
		return true
	}
	return false
}

// DiscoveredField is a UI element found on a target page. It is ephemeral:
// valid only for the page/session it was discovered on.
type DiscoveredField struct {
	// Selector locates the element structurally. Empty when the field was
	// found only by vision and must be operated by coordinates.
	Selector string `json:"selector,omitempty"`

	Kind        FieldKind `json:"kind"`
	Label       string    `json:"label,omitempty"`
	Name        string    `json:"name,omitempty"`
	ID          string    `json:"id,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`

	// Screen coordinates of the element center, for coordinate interaction.
	X              float64 `json:"x,omitempty"`
	Y              float64 `json:"y,omitempty"`
	HasCoordinates bool    `json:"has_coordinates"`

	Confidence float64 `json:"confidence"` // 0.0-1.0
}

// Text concatenates the field's identifying strings for pattern matching.
func (f DiscoveredField) Text() string {
	out := ""
	for _, s := range []string{f.Label, f.Name, f.ID, f.Placeholder} {
		if s == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += s
	}
	return out
}

// MappingMethod records how a field mapping was produced.
type MappingMethod string

const (
	MappingRule  MappingMethod = "rule"
	MappingModel MappingMethod = "model"
)

// FieldMapping binds a discovered field to a semantic profile attribute.
// Consumed by the form interaction engine; never persisted.
type FieldMapping struct {
	Field      DiscoveredField `json:"field"`
	Attribute  string          `json:"attribute"`
	Method     MappingMethod   `json:"method"`
	Confidence float64         `json:"confidence"`
}

// FillResult reports one form-filling pass.
type FillResult struct {
	FilledCount int      `json:"filled_count"`
	Errors      []string `json:"errors,omitempty"`

	// Pending lists actions deliberately left for the user, e.g. file
	// uploads that are never performed automatically.
	Pending []string `json:"pending,omitempty"`

	// NavigationAvailable is set when a continue/next affordance was found.
	// The engine reports it but never advances without review approval.
	NavigationAvailable bool `json:"navigation_available"`
}
