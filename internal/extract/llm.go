package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidResponse marks a terminal extraction failure: the model
// answered, but not with the required JSON shape. Not retried.
var ErrInvalidResponse = errors.New("invalid llm response")

// Extraction is the structured event shape returned by the model.
type Extraction struct {
	EventType string
	State     string
	LGA       string
	Severity  string
}

// Categorization assigns a conflict category with a confidence score.
type Categorization struct {
	Category   string
	Confidence int
}

// LLMClient extracts structured conflict data from article text.
type LLMClient interface {
	// ExtractEvent parses article text into an event shape. Returns
	// ErrInvalidResponse for malformed output; other errors are transient.
	ExtractEvent(ctx context.Context, text string) (*Extraction, error)

	// Categorize classifies the conflict into a known category.
	Categorize(ctx context.Context, text string) (*Categorization, error)
}

const extractionPrompt = `You are a conflict analyst specializing in early-warning signals for Nigeria.

Analyze the text and extract the following information in valid JSON format:

1. Event_Type: Type of event (attack, protest, clash, kidnapping, banditry, terrorism, communal, violence, conflict, other)
2. State: Nigerian state where the event occurred
3. LGA: Local Government Area where the event occurred
4. Severity: Event severity (low, medium, high, critical)

Return ONLY valid JSON with these exact field names.`

const categorizationPrompt = `You are an expert conflict analyst for the Nigerian Violent Conflicts Database.

Classify the conflict described in the provided text into exactly ONE of these predefined categories:
- Banditry: Criminal activities involving armed robbery, theft, or banditry by organized groups.
- Kidnapping: Abduction of individuals for ransom or other purposes.
- Gunmen Violence: Attacks or shootings by unidentified armed gunmen, often in hit-and-run style.
- Farmer-Herder Clashes: Conflicts between farming communities and nomadic herders over land, water, or resources.

Also provide a confidence score (0-100) indicating how certain you are of this classification.

If the text does not clearly fit any category, use "Unknown" with an appropriate confidence.

Return ONLY valid JSON with the "category" and "confidence" fields.`

var validCategories = map[string]bool{
	"Banditry":              true,
	"Kidnapping":            true,
	"Gunmen Violence":       true,
	"Farmer-Herder Clashes": true,
	"Unknown":               true,
}

// OllamaOptions configures the Ollama-compatible client.
type OllamaOptions struct {
	// URL of the generate endpoint. Default http://localhost:11434/api/generate.
	URL string

	// Model name. Default "llama3.2".
	Model string

	// Timeout per call. Default 30s.
	Timeout time.Duration

	// Temperature for generation. Default 0.1.
	Temperature float64

	Logger *log.Logger
}

// OllamaClient talks to an Ollama-compatible generate endpoint.
type OllamaClient struct {
	url         string
	model       string
	temperature float64
	client      *http.Client
	logger      *log.Logger
}

// NewOllamaClient creates a client for a local or remote Ollama server.
func NewOllamaClient(opts OllamaOptions) *OllamaClient {
	if opts.URL == "" {
		opts.URL = "http://localhost:11434/api/generate"
	}
	if opts.Model == "" {
		opts.Model = "llama3.2"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &OllamaClient{
		url:         opts.URL,
		model:       opts.Model,
		temperature: opts.Temperature,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
			},
		},
		logger: opts.Logger,
	}
}

var _ LLMClient = (*OllamaClient)(nil)

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generate performs one model call and returns the raw response text.
func (c *OllamaClient) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: c.temperature, MaxTokens: maxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call llm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("%w: empty response field", ErrInvalidResponse)
	}
	return strings.TrimSpace(out.Response), nil
}

// ExtractEvent parses article text into an event shape.
func (c *OllamaClient) ExtractEvent(ctx context.Context, text string) (*Extraction, error) {
	raw, err := c.generate(ctx, extractionPrompt+"\n\nText to analyze:\n"+text, 200)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	for _, required := range []string{"Event_Type", "State", "LGA", "Severity"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("%w: missing field %s", ErrInvalidResponse, required)
		}
	}

	return &Extraction{
		EventType: stringField(fields, "Event_Type"),
		State:     stringField(fields, "State"),
		LGA:       stringField(fields, "LGA"),
		Severity:  stringField(fields, "Severity"),
	}, nil
}

// Categorize classifies the conflict. Out-of-set categories collapse to
// Unknown; out-of-range confidence collapses to 0.
func (c *OllamaClient) Categorize(ctx context.Context, text string) (*Categorization, error) {
	raw, err := c.generate(ctx, categorizationPrompt+"\n\nText to analyze:\n"+text, 50)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	category := stringField(fields, "category")
	if !validCategories[category] {
		c.logger.Printf("invalid category %q, using Unknown", category)
		category = "Unknown"
	}

	confidence := 0
	if v, ok := fields["confidence"].(float64); ok && v >= 0 && v <= 100 {
		confidence = int(v)
	}

	return &Categorization{Category: category, Confidence: confidence}, nil
}

// decodeObject extracts the first JSON object from model output,
// tolerating markdown code fences and surrounding prose. An array
// response yields its first element.
func decodeObject(raw string) (map[string]any, error) {
	jsonStr := raw
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			jsonStr = strings.TrimSpace(rest[:end])
		}
	} else if start := strings.IndexAny(raw, "[{"); start >= 0 {
		if end := strings.LastIndexAny(raw, "]}"); end > start {
			jsonStr = raw[start : end+1]
		}
	}

	var value any
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrInvalidResponse)
		}
		if obj, ok := v[0].(map[string]any); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("%w: array of non-objects", ErrInvalidResponse)
	default:
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidResponse)
	}
}

// stringField reads a string field, mapping null or empty to "unknown".
func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return "unknown"
}
