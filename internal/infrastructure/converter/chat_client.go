package converter

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/metrics"
	"focusnote/scan-api/internal/infrastructure/observability"
)

// ChatClient calls the conversion service's /chat endpoint.
type ChatClient struct {
	httpClient *resty.Client
	path       string
	log        zerolog.Logger
}

type chatContextMessage struct {
	Role    string `json:"role"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string               `json:"message"`
	Context []chatContextMessage `json:"context"`
	UserID  string               `json:"user_id,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// NewChatClient creates a Resty-backed chat client. The deadline comes from
// the caller's context.
func NewChatClient(cfg *config.Config, log zerolog.Logger) *ChatClient {
	return &ChatClient{
		httpClient: resty.New().
			SetBaseURL(cfg.ChatURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		path: cfg.ChatPath,
		log:  log.With().Str("component", "chat-client").Logger(),
	}
}

// Complete sends the user message with its context window.
func (c *ChatClient) Complete(ctx context.Context, req conversation.ChatRequest) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "converter.chat")
	defer span.End()
	start := time.Now()

	payload := chatRequest{
		Message: req.Message,
		Context: make([]chatContextMessage, 0, len(req.Context)),
		UserID:  req.UserID,
	}
	for _, m := range req.Context {
		payload.Context = append(payload.Context, chatContextMessage{Role: m.Role, Type: m.Role, Content: m.Content})
	}

	var out chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post(c.path)
	if upstream := checkResponse("chat", resp, err); upstream != nil {
		metrics.RecordUpstream("chat", "error", time.Since(start).Seconds())
		observability.RecordError(span, upstream)
		return "", external(ctx, "chat request failed", upstream)
	}
	metrics.RecordUpstream("chat", "success", time.Since(start).Seconds())

	return strings.TrimSpace(out.Response), nil
}

var _ conversation.ChatCompleter = (*ChatClient)(nil)
