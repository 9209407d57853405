package browser

import "context"

// Box is an element's bounding box in page coordinates
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the box
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// SelectOption is a single option of a <select> element
type SelectOption struct {
	Value string
	Label string
}

// Cookie is a serializable browser cookie for session reuse
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HttpOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// Element is a handle to a single element on a page
type Element interface {
	// Tag returns the lowercase tag name
	Tag() (string, error)

	// Visible reports whether the element is visible
	Visible() (bool, error)

	// Text returns the trimmed text content
	Text() (string, error)

	// Attribute returns the named attribute, empty string when absent
	Attribute(name string) (string, error)

	// Query returns the first descendant (or xpath-relative) match, nil when none
	Query(selector string) (Element, error)

	Fill(value string) error
	Clear() error
	Click() error
	Check() error
	Uncheck() error

	// SelectByLabel selects a <select> option by its visible label
	SelectByLabel(label string) error

	// SelectByValue selects a <select> option by its value attribute
	SelectByValue(value string) error

	// Options lists the options of a <select> element
	Options() ([]SelectOption, error)

	// Box returns the bounding box, or an error when the element is detached
	Box() (Box, error)
}

// Page is a handle to a browser tab
type Page interface {
	// Navigate loads the URL and waits for the network to settle
	Navigate(ctx context.Context, url string) error

	// Query returns all elements matching the selector
	Query(selector string) ([]Element, error)

	// First returns the first match, nil when none
	First(selector string) (Element, error)

	URL() string
	Title() (string, error)
	Content() (string, error)

	// Screenshot captures the viewport as PNG
	Screenshot(fullPage bool) ([]byte, error)

	// ClickAt clicks at page coordinates
	ClickAt(x, y float64) error

	// TypeAt clicks at page coordinates, selects existing content, and types over it
	TypeAt(x, y float64, text string) error

	Close() error
}
