package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/interfaces/httpserver/responses"
	"focusnote/scan-api/internal/utils/platformerrors"
)

func TestConversationHandler_Create(t *testing.T) {
	svc := newTestServices()
	svc.conversations.CreateFunc = func(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error) {
		assert.Equal(t, testUser, requester)
		assert.Equal(t, "Biology", params.Title)
		assert.Nil(t, params.Event)
		return &conversation.Conversation{ID: "conv_1", UserID: requester, Title: params.Title}, nil
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", strings.NewReader(`{"title":"Biology"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "conv_1", conv.ID)
	assert.NotContains(t, w.Body.String(), testUser)
}

func TestConversationHandler_CreateWithoutBody(t *testing.T) {
	svc := newTestServices()
	svc.conversations.CreateFunc = func(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error) {
		return &conversation.Conversation{ID: "conv_2"}, nil
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", nil)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestConversationHandler_GetForeignIsNotFound(t *testing.T) {
	svc := newTestServices()
	svc.retrievals.GetConversationFunc = func(ctx context.Context, id string, requester string) (*conversation.Conversation, error) {
		assert.Equal(t, "user_2", requester)
		return nil, conversation.NotFound(ctx, id)
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/conv_1", nil)
	req.Header.Set("X-User-ID", "user_2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationHandler_AppendMessage(t *testing.T) {
	svc := newTestServices()
	svc.conversations.AppendMessageFunc = func(ctx context.Context, id string, requester string, input conversation.MessageInput) (*conversation.Conversation, error) {
		assert.Equal(t, "conv_1", id)
		assert.Equal(t, conversation.Role(""), input.Role)
		assert.Equal(t, "what is mitosis?", input.Content)
		require.Len(t, input.Attachments, 1)
		assert.Equal(t, "art_1", input.Attachments[0].ArtifactID)
		return &conversation.Conversation{
			ID: id,
			Entries: []conversation.Entry{{
				ID:       "msg_1",
				Sequence: 1,
				Kind:     conversation.EntryKindMessage,
				Message:  &conversation.Message{Role: conversation.RoleUser, Content: input.Content},
			}},
		}, nil
	}
	router := setupTestRouter(svc)

	body := `{"message":{"content":"what is mitosis?","attachments":[{"artifact_id":"art_1"}]}}`
	req := httptest.NewRequest(http.MethodPatch, "/v1/conversations/conv_1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conv conversation.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Len(t, conv.Entries, 1)
	assert.Equal(t, conversation.EntryKindMessage, conv.Entries[0].Kind)
}

func TestConversationHandler_AppendMessageRequiresMessage(t *testing.T) {
	router := setupTestRouter(newTestServices())

	req := httptest.NewRequest(http.MethodPatch, "/v1/conversations/conv_1/messages", strings.NewReader(`{"content":"loose"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationHandler_AIResponseDegraded(t *testing.T) {
	svc := newTestServices()
	svc.conversations.RespondWithAIFunc = func(ctx context.Context, id string, requester string, text string) (*conversation.Reply, error) {
		return &conversation.Reply{
			Conversation: &conversation.Conversation{
				ID: id,
				Entries: []conversation.Entry{
					{ID: "msg_1", Sequence: 1, Kind: conversation.EntryKindMessage, Message: &conversation.Message{Role: conversation.RoleUser, Content: text}},
					{ID: "msg_2", Sequence: 2, Kind: conversation.EntryKindMessage, Message: &conversation.Message{Role: conversation.RoleAssistant, Content: conversation.FallbackReply}},
				},
			},
			Delivery: conversation.Delivery{Delivered: false, Reason: "chat service timed out"},
		}, nil
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/conv_1/ai-response", strings.NewReader(`{"message":"explain"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp responses.AIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Delivery.Delivered)
	assert.Equal(t, "chat service timed out", resp.Delivery.Reason)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, conversation.FallbackReply, resp.Reply.Message.Content)
	assert.Len(t, resp.Conversation.Entries, 2)
}

func TestConversationHandler_AIResponseMissingConversation(t *testing.T) {
	svc := newTestServices()
	svc.conversations.RespondWithAIFunc = func(ctx context.Context, id string, requester string, text string) (*conversation.Reply, error) {
		return nil, conversation.NotFound(ctx, id)
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/conv_x/ai-response", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp responses.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(platformerrors.ErrorTypeNotFound), resp.Type)
}
