package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/observability"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name  string
		det   Detection
		wantX float64
		wantY float64
	}{
		{"bounding box", Detection{X: 100, Y: 200, Width: 50, Height: 20}, 125, 210},
		{"bare point", Detection{X: 300, Y: 400}, 300, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.det.Center()
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("Center() = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestClient_Available(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL}, zap.NewNop())
	if !client.Available(context.Background()) {
		t.Error("Available() = false, want true")
	}

	client = NewClient(Config{Endpoint: "http://127.0.0.1:1"}, zap.NewNop())
	if client.Available(context.Background()) {
		t.Error("Available() = true for unreachable backend")
	}
}

func TestClient_FindElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Images) != 1 {
			t.Errorf("images count = %d, want 1", len(req.Images))
		}
		if req.Stream {
			t.Error("stream should be false")
		}

		resp := generateResponse{
			Response: "Here is the element:\n```json\n{\"found\": true, \"x\": 120, \"y\": 340, \"width\": 80, \"height\": 30, \"confidence\": 0.85}\n```",
			Done:     true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL}, zap.NewNop())

	det, err := client.FindElement(context.Background(), []byte("fake-png"), "the submit button")
	if err != nil {
		t.Fatalf("FindElement() error = %v", err)
	}

	if !det.Found {
		t.Error("Found = false, want true")
	}
	if det.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", det.Confidence)
	}

	x, y := det.Center()
	if x != 160 || y != 355 {
		t.Errorf("Center() = (%v, %v), want (160, 355)", x, y)
	}
}

func TestClient_RecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{
			Response: `{"found": true, "x": 10, "y": 20, "confidence": 0.9}`,
			Done:     true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	metrics := observability.NewMetrics("visiontest")
	client := NewClient(Config{Endpoint: server.URL, Metrics: metrics}, zap.NewNop())

	if _, err := client.FindElement(context.Background(), []byte("fake-png"), "the submit button"); err != nil {
		t.Fatalf("FindElement() error = %v", err)
	}

	broken := NewClient(Config{Endpoint: "http://127.0.0.1:1", Metrics: metrics}, zap.NewNop())
	if _, err := broken.FindElement(context.Background(), []byte("fake-png"), "anything"); err == nil {
		t.Fatal("expected error from unreachable backend")
	}

	if got := testutil.ToFloat64(metrics.VisionRequestsTotal.WithLabelValues("find_element", "success")); got != 1 {
		t.Errorf("successes recorded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.VisionRequestsTotal.WithLabelValues("find_element", "failure")); got != 1 {
		t.Errorf("failures recorded = %v, want 1", got)
	}
}

func TestClient_DetectFormFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{
			Response: `[{"label": "Email", "field_type": "email", "x": 200, "y": 150}, {"label": "Resume", "field_type": "file", "x": 200, "y": 300}]`,
			Done:     true,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL}, zap.NewNop())

	fields, err := client.DetectFormFields(context.Background(), []byte("fake-png"))
	if err != nil {
		t.Fatalf("DetectFormFields() error = %v", err)
	}

	if len(fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(fields))
	}
	if fields[0].Label != "Email" || fields[0].FieldType != "email" {
		t.Errorf("first field = %+v", fields[0])
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain object", `{"found": true}`, `{"found": true}`},
		{"code block", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose prefix", `The answer is {"a": 1} hope that helps`, `{"a": 1}`},
		{"array", `[1, 2, 3]`, `[1, 2, 3]`},
		{"nested braces in string", `{"a": "b}c"}`, `{"a": "b}c"}`},
		{"no json", "no structured data here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.expected {
				t.Errorf("extractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}
