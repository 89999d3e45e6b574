package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/telltale-dev/telltale/internal/api"
	"github.com/telltale-dev/telltale/internal/llm"
)

const assistantFallbackReply = "I can help with driving, comfort, or infotainment settings. What would you like to adjust?"

// maxAssistantHistory bounds the transcript forwarded to providers.
const maxAssistantHistory = 10

// handleAssistant relays one conversation turn to a model provider and
// applies whatever updates the model asked for. The rate limit is checked
// after message validation so malformed requests do not burn quota.
func (s *Server) handleAssistant() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req api.AssistantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			req = api.AssistantRequest{}
		}

		message := strings.TrimSpace(req.Message)
		if message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		history := normalizeHistory(req.History)

		name := strings.ToLower(strings.TrimSpace(req.Provider))
		if name == "" {
			name = "google"
		}

		allowed, retryAfter := s.limiter.Allow(clientID(c.Request))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Try again soon.",
				"retry_after": retryAfter,
			})
			return
		}

		provider, ok := s.providers[name]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider: " + name})
			return
		}
		if key := strings.TrimSpace(req.APIKey); key != "" {
			provider = provider.WithKey(key)
		}

		text, err := provider.Complete(c.Request.Context(), llm.Request{
			System:  BuildSystemPrompt(s.registry, s.store.State()),
			History: history,
			Message: message,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		parsed := llm.ExtractJSON(text)
		if parsed == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Model response was not valid JSON."})
			return
		}

		reply, _ := parsed["reply"].(string)
		reply = strings.TrimSpace(reply)
		if reply == "" {
			reply = assistantFallbackReply
		}
		updates, _ := parsed["updates"].(map[string]any)
		if updates == nil {
			updates = map[string]any{}
		}

		state := s.store.State()
		if len(updates) > 0 {
			state = s.store.ApplyUpdate(updates)
		}

		c.JSON(http.StatusOK, api.AssistantResponse{
			Reply:    reply,
			Updates:  updates,
			State:    state,
			Provider: name,
		})
	}
}

// normalizeHistory drops malformed turns and caps the transcript at the most
// recent maxAssistantHistory entries.
func normalizeHistory(history []api.Message) []api.Message {
	normalized := make([]api.Message, 0, len(history))
	for _, m := range history {
		if m.Role != api.RoleUser && m.Role != api.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		normalized = append(normalized, api.Message{Role: m.Role, Content: content})
	}
	if len(normalized) > maxAssistantHistory {
		normalized = normalized[len(normalized)-maxAssistantHistory:]
	}
	return normalized
}
