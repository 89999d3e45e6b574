package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/telltale-dev/telltale/internal/api"
)

// Default Gemini connection parameters.
const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultGeminiModel    = "gemini-3-flash-preview"
)

// Gemini talks to the Google Generative Language API.
type Gemini struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

// GeminiOpts holds parameters for NewGemini. A missing API key is not an
// error here; Complete reports it, so a relay can start without credentials
// and rely on per-request overrides.
type GeminiOpts struct {
	APIKey     string
	Endpoint   string // defaults to DefaultGeminiEndpoint
	Model      string // defaults to DefaultGeminiModel
	HTTPClient *http.Client
}

// NewGemini creates a Gemini provider.
func NewGemini(opts GeminiOpts) *Gemini {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultGeminiEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Gemini{
		apiKey:     opts.APIKey,
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		httpClient: opts.HTTPClient,
	}
}

// Name implements Provider.
func (g *Gemini) Name() string { return "google" }

// WithKey implements Provider.
func (g *Gemini) WithKey(key string) Provider {
	clone := *g
	clone.apiKey = key
	return &clone
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete implements Provider.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("llm: gemini: missing API key, set GEMINI_API_KEY or pass api_key")
	}

	payload := geminiRequest{
		Contents: buildGeminiContents(req.History, req.Message),
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.4,
			ResponseMimeType: "application/json",
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.endpoint, g.model)
	resp, err := postJSON(ctx, g.httpClient, "gemini", url, payload, map[string]string{
		"X-goog-api-key": g.apiKey,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("llm: gemini: decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm: gemini: response contained no text candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// buildGeminiContents converts the shared conversation shape into Gemini
// turns. Gemini calls the assistant role "model".
func buildGeminiContents(history []api.Message, message string) []geminiContent {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == api.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if message != "" && !historyEndsWith(history, message) {
		contents = append(contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: message}},
		})
	}
	return contents
}
