package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/observability"
)

// Detection is a located element in a screenshot
type Detection struct {
	Found      bool    `json:"found"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Center returns the click point of the detection. When the model reports
// a box, the point is its midpoint; a bare (x, y) is returned as-is.
func (d Detection) Center() (float64, float64) {
	if d.Width > 0 || d.Height > 0 {
		return d.X + d.Width/2, d.Y + d.Height/2
	}
	return d.X, d.Y
}

// FieldDetection is a form field located visually in a screenshot
type FieldDetection struct {
	Label     string  `json:"label"`
	FieldType string  `json:"field_type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Config for the vision client
type Config struct {
	Endpoint string
	Model    string
	Timeout  time.Duration

	// Metrics records request outcomes when set
	Metrics *observability.Metrics
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:11434",
		Model:    "llava:13b",
		Timeout:  60 * time.Second,
	}
}

// Client talks to a local Ollama instance running a vision model
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a new vision client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

func (c *Client) record(operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordVision(operation, err == nil, time.Since(start))
}

// Available reports whether the Ollama backend is reachable
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// FindElement asks the vision model to locate a described element in a
// screenshot and returns its position
func (c *Client) FindElement(ctx context.Context, screenshot []byte, description string) (det *Detection, err error) {
	start := time.Now()
	defer func() { c.record("find_element", start, err) }()

	prompt := fmt.Sprintf(`You are looking at a screenshot of a web page.
Find this element: %s

Respond with ONLY a JSON object:
{"found": true or false, "x": <center x in pixels>, "y": <center y in pixels>, "width": <box width>, "height": <box height>, "confidence": <0.0 to 1.0>}

If the element is not visible, respond {"found": false}.`, description)

	text, err := c.generate(ctx, prompt, screenshot)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON in vision response")
	}

	var parsed Detection
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("parsing detection: %w", err)
	}

	c.logger.Debug("vision detection",
		zap.String("description", description),
		zap.Bool("found", parsed.Found),
		zap.Float64("confidence", parsed.Confidence),
	)

	return &parsed, nil
}

// DetectFormFields asks the vision model to enumerate visible form fields
// in a screenshot
func (c *Client) DetectFormFields(ctx context.Context, screenshot []byte) (fields []FieldDetection, err error) {
	start := time.Now()
	defer func() { c.record("detect_form_fields", start, err) }()

	prompt := `You are looking at a screenshot of a web form.
List every visible form input field.

Respond with ONLY a JSON array:
[{"label": "<field label>", "field_type": "text|email|phone|textarea|select|checkbox|file", "x": <center x>, "y": <center y>}]

If there are no fields, respond [].`

	text, err := c.generate(ctx, prompt, screenshot)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSON(text)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON in vision response")
	}

	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return nil, fmt.Errorf("parsing field detections: %w", err)
	}

	return fields, nil
}

// generateRequest is an Ollama /api/generate request
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

// generateResponse is an Ollama /api/generate response
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// generate sends a prompt plus screenshot to the model
func (c *Client) generate(ctx context.Context, prompt string, screenshot []byte) (string, error) {
	req := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(screenshot)},
		Stream: false,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp generateResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	return apiResp.Response, nil
}

// extractJSON extracts a JSON object or array from model output that may
// be wrapped in markdown or prose
func extractJSON(text string) string {
	codeBlockPattern := regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	matches := codeBlockPattern.FindStringSubmatch(text)
	if len(matches) > 1 {
		text = matches[1]
	}

	text = strings.TrimSpace(text)

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")

	start := -1
	openBracket, closeBracket := byte('{'), byte('}')

	if startObj >= 0 && (startArr < 0 || startObj < startArr) {
		start = startObj
	} else if startArr >= 0 {
		start = startArr
		openBracket, closeBracket = '[', ']'
	}

	if start < 0 {
		return ""
	}

	text = text[start:]
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if ch == openBracket {
			depth++
		} else if ch == closeBracket {
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}

	return ""
}
