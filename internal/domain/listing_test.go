package domain

import (
	"testing"
)

func TestNewRawListing(t *testing.T) {
	l := NewRawListing("linkedin", "https://example.com/job/1", "Engineer", "Acme")

	if l.Source != "linkedin" {
		t.Errorf("Source = %v, want linkedin", l.Source)
	}
	if l.URL != "https://example.com/job/1" {
		t.Errorf("URL = %v, want https://example.com/job/1", l.URL)
	}
	if l.IsSimulated {
		t.Error("new listing should not be simulated")
	}
	if l.CapturedAt.IsZero() {
		t.Error("CapturedAt should not be zero")
	}
}

func TestRawListing_MarkSimulated(t *testing.T) {
	l := NewRawListing("wellfound", "https://example.com/job/2", "Designer", "Startup")
	l.MarkSimulated()

	if !l.IsSimulated {
		t.Error("IsSimulated should be true")
	}
	if l.Source != "wellfound_simulated" {
		t.Errorf("Source = %v, want wellfound_simulated", l.Source)
	}

	// Marking twice must not double the suffix.
	l.MarkSimulated()
	if l.Source != "wellfound_simulated" {
		t.Errorf("Source after second mark = %v, want wellfound_simulated", l.Source)
	}
}

func TestCanonicalListing_AddSource(t *testing.T) {
	c := CanonicalListing{
		RawListing: NewRawListing("indeed", "https://example.com/job/3", "PM", "Acme"),
		Sources:    []string{"indeed"},
	}

	c.AddSource("linkedin")
	c.AddSource("indeed") // duplicate, ignored

	if len(c.Sources) != 2 {
		t.Errorf("Sources length = %d, want 2", len(c.Sources))
	}
	if c.Sources[1] != "linkedin" {
		t.Errorf("Sources[1] = %v, want linkedin", c.Sources[1])
	}
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"valid", Query{Keywords: "golang", MaxResults: 10}, false},
		{"empty keywords", Query{Keywords: "  ", MaxResults: 10}, true},
		{"zero max results", Query{Keywords: "golang", MaxResults: 0}, true},
		{"negative max results", Query{Keywords: "golang", MaxResults: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsCode(err, ErrCodeValidation) {
				t.Errorf("expected VALIDATION_ERROR code, got %v", err)
			}
		})
	}
}
