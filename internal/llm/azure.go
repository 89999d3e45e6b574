package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/telltale-dev/telltale/internal/api"
)

// DefaultAzureAPIVersion is used when no api-version is configured.
const DefaultAzureAPIVersion = "2024-12-01-preview"

const azureMaxCompletionTokens = 1024

// AzureOpenAI talks to an Azure OpenAI chat-completions deployment.
type AzureOpenAI struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	httpClient *http.Client
}

// AzureOpenAIOpts holds parameters for NewAzureOpenAI. Endpoint and
// Deployment are checked at call time, like the API key, so the relay can
// start with the provider unconfigured.
type AzureOpenAIOpts struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string // defaults to DefaultAzureAPIVersion
	HTTPClient *http.Client
}

// NewAzureOpenAI creates an Azure OpenAI provider.
func NewAzureOpenAI(opts AzureOpenAIOpts) *AzureOpenAI {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAzureAPIVersion
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &AzureOpenAI{
		apiKey:     opts.APIKey,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		deployment: opts.Deployment,
		apiVersion: opts.APIVersion,
		httpClient: opts.HTTPClient,
	}
}

// Name implements Provider.
func (a *AzureOpenAI) Name() string { return "azure" }

// WithKey implements Provider.
func (a *AzureOpenAI) WithKey(key string) Provider {
	clone := *a
	clone.apiKey = key
	return &clone
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type azureMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureRequest struct {
	Messages            []azureMessage `json:"messages"`
	MaxCompletionTokens int            `json:"max_completion_tokens"`
}

type azureResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Provider.
func (a *AzureOpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("llm: azure: missing API key, set AZURE_OPENAI_API_KEY or pass api_key")
	}
	if a.endpoint == "" {
		return "", fmt.Errorf("llm: azure: missing endpoint, set AZURE_OPENAI_ENDPOINT")
	}
	if a.deployment == "" {
		return "", fmt.Errorf("llm: azure: missing deployment, set AZURE_OPENAI_DEPLOYMENT")
	}

	payload := azureRequest{
		Messages:            buildAzureMessages(req.System, req.History, req.Message),
		MaxCompletionTokens: azureMaxCompletionTokens,
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, a.deployment, a.apiVersion)
	resp, err := postJSON(ctx, a.httpClient, "azure", url, payload, map[string]string{
		"api-key": a.apiKey,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded azureResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("llm: azure: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("llm: azure: response contained no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// buildAzureMessages flattens the conversation into OpenAI chat messages,
// system turn first.
func buildAzureMessages(system string, history []api.Message, message string) []azureMessage {
	messages := make([]azureMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, azureMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		messages = append(messages, azureMessage{Role: m.Role, Content: m.Content})
	}
	if message != "" && !historyEndsWith(history, message) {
		messages = append(messages, azureMessage{Role: api.RoleUser, Content: message})
	}
	return messages
}
