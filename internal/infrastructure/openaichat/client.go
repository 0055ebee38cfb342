package openaichat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/metrics"
	"focusnote/scan-api/internal/infrastructure/observability"
	"focusnote/scan-api/internal/utils/platformerrors"
)

const systemPrompt = "You are a study assistant. Answer questions about the user's processed notes clearly and concisely."

// Client answers chat turns through an OpenAI-compatible chat completions API.
type Client struct {
	api   *openai.Client
	model string
	log   zerolog.Logger
}

// NewClient builds a client for OPENAI_BASE_URL (or the public API).
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if base := strings.TrimSpace(cfg.OpenAIBaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.OpenAIModel,
		log:   log.With().Str("component", "openai-chat").Logger(),
	}
}

// Complete sends the context window as chat history. The window already ends
// with the user's message; it is only added again when missing.
func (c *Client) Complete(ctx context.Context, req conversation.ChatRequest) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "openai.chat", attribute.String("llm.model", c.model))
	defer span.End()
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: BuildMessages(req),
	})
	if err != nil {
		metrics.RecordUpstream("openai_chat", "error", time.Since(start).Seconds())
		observability.RecordError(span, err)
		return "", platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"chat completion failed", err, "openai-chat-failed", map[string]any{"upstream_status": statusOf(err)})
	}
	metrics.RecordUpstream("openai_chat", "success", time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildMessages maps the context window onto chat completion messages.
func BuildMessages(req conversation.ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Context)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})

	for _, m := range req.Context {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case string(conversation.RoleAssistant):
			role = openai.ChatMessageRoleAssistant
		case "system":
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	last := messages[len(messages)-1]
	if msg := strings.TrimSpace(req.Message); msg != "" &&
		(last.Role != openai.ChatMessageRoleUser || strings.TrimSpace(last.Content) != msg) {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg})
	}
	return messages
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

var _ conversation.ChatCompleter = (*Client)(nil)
