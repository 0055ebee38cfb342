package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/infrastructure/metrics"
	"focusnote/scan-api/internal/utils/idgen"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// FallbackReply is appended as the assistant turn whenever the chat service
// cannot answer.
const FallbackReply = "I'm sorry, I'm having trouble processing your request right now. Please try asking your question in a different way, or check back in a moment."

const maxMessageLength = 20000

// Service manages conversation records and their chat log.
type Service struct {
	repo          Repository
	chat          ChatCompleter
	chatTimeout   time.Duration
	contextWindow int
	now           func() time.Time
	log           zerolog.Logger
}

// NewService wires the conversation service.
func NewService(cfg *config.Config, repo Repository, chat ChatCompleter, log zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		chat:          chat,
		chatTimeout:   cfg.ChatTimeout,
		contextWindow: cfg.ChatContextWindow,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log.With().Str("component", "conversation-service").Logger(),
	}
}

// Create starts a new conversation owned by requester. When params.Event is
// set it is written as the first log entry in the same insert.
func (s *Service) Create(ctx context.Context, requester string, params CreateParams) (*Conversation, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}

	now := s.now()
	conv := &Conversation{
		ID:        idgen.NewULID(idgen.PrefixConversation),
		UserID:    requester,
		Title:     strings.TrimSpace(params.Title),
		Section:   strings.TrimSpace(params.Section),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.Event != nil {
		conv.Entries = []Entry{{
			ID:        idgen.NewUUID(idgen.PrefixEvent),
			Sequence:  1,
			Kind:      EntryKindProcessingEvent,
			Event:     params.Event,
			CreatedAt: now,
		}}
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// AppendMessage adds one message to the end of the log and returns the
// updated conversation.
func (s *Service) AppendMessage(ctx context.Context, id string, requester string, input MessageInput) (*Conversation, error) {
	if _, err := s.loadOwned(ctx, id, requester); err != nil {
		return nil, err
	}

	entry, err := s.newMessageEntry(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.repo.AppendEntries(ctx, id, []Entry{entry})
}

// RespondWithAI appends the user's text, asks the chat service for a reply
// and appends it. Chat failures never fail the call: the fallback reply is
// appended instead and Delivery reports why.
func (s *Service) RespondWithAI(ctx context.Context, id string, requester string, text string) (*Reply, error) {
	updated, err := s.AppendMessage(ctx, id, requester, MessageInput{Role: RoleUser, Content: text})
	if err != nil {
		return nil, err
	}

	window := s.contextFor(updated)
	answer, delivery := s.complete(ctx, ChatRequest{
		Message: strings.TrimSpace(text),
		Context: window,
		UserID:  requester,
	})
	metrics.RecordAIReply(delivery.Delivered)

	entry, err := s.newMessageEntry(ctx, MessageInput{Role: RoleAssistant, Content: answer})
	if err != nil {
		return nil, err
	}
	final, err := s.repo.AppendEntries(ctx, id, []Entry{entry})
	if err != nil {
		return nil, err
	}

	return &Reply{Conversation: final, Delivery: delivery}, nil
}

func (s *Service) complete(ctx context.Context, req ChatRequest) (string, Delivery) {
	if s.chat == nil {
		return FallbackReply, Delivery{Delivered: false, Reason: "chat service not configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	answer, err := s.chat.Complete(callCtx, req)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("chat service timed out after %s", s.chatTimeout)
		}
		s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("chat completion failed, using fallback reply")
		return FallbackReply, Delivery{Delivered: false, Reason: reason}
	}
	if strings.TrimSpace(answer) == "" {
		s.log.Warn().Str("user_id", req.UserID).Msg("chat completion returned empty reply, using fallback")
		return FallbackReply, Delivery{Delivered: false, Reason: "chat service returned an empty reply"}
	}
	return answer, Delivery{Delivered: true}
}

// contextFor builds the bounded window of recent log entries.
func (s *Service) contextFor(conv *Conversation) []ChatMessage {
	recent := conv.RecentEntries(s.contextWindow)
	window := make([]ChatMessage, 0, len(recent))
	for _, entry := range recent {
		role, content := entry.Summary()
		if strings.TrimSpace(content) == "" {
			continue
		}
		window = append(window, ChatMessage{Role: string(role), Content: content})
	}
	return window
}

func (s *Service) newMessageEntry(ctx context.Context, input MessageInput) (Entry, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return Entry{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message content is required", nil, "conv-message-empty")
	}
	if len(content) > maxMessageLength {
		return Entry{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("message exceeds %d characters", maxMessageLength), nil, "conv-message-too-long")
	}

	role := input.Role
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return Entry{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported message role %q", role), nil, "conv-message-role")
	}

	return Entry{
		ID:   idgen.NewUUID(idgen.PrefixMessage),
		Kind: EntryKindMessage,
		Message: &Message{
			Role:        role,
			Content:     input.Content,
			Attachments: input.Attachments,
		},
		CreatedAt: s.now(),
	}, nil
}

// loadOwned applies the ownership capability check. Foreign conversations
// are reported as not found.
func (s *Service) loadOwned(ctx context.Context, id string, requester string) (*Conversation, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.AccessibleBy(requester) {
		return nil, NotFound(ctx, id)
	}
	return conv, nil
}

// NotFound is the error returned for absent or foreign conversations.
func NotFound(ctx context.Context, id string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("conversation not found: %s", id), nil, "conv-not-found")
}

func requireRequester(ctx context.Context, requester string) error {
	if strings.TrimSpace(requester) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"missing user identity", nil, "conv-missing-identity")
	}
	return nil
}
