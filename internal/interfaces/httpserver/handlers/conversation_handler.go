package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/interfaces/httpserver/requests"
	"focusnote/scan-api/internal/interfaces/httpserver/responses"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// ConversationHandler exposes conversation endpoints.
type ConversationHandler struct {
	conversations ConversationService
	retrievals    RetrievalService
	log           zerolog.Logger
}

func NewConversationHandler(conversations ConversationService, retrievals RetrievalService, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		retrievals:    retrievals,
		log:           log.With().Str("component", "conversation-handler").Logger(),
	}
}

// Create godoc
// @Summary      Start an empty conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CreateConversationRequest  false  "Metadata"
// @Success      201      {object}  conversation.Conversation
// @Router       /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req requests.CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid conversation body: "+err.Error(), "conversation-invalid-body")
			return
		}
	}

	conv, err := h.conversations.Create(c.Request.Context(), auth.RequesterID(c), conversation.CreateParams{
		Title:   req.Title,
		Section: req.Section,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Get godoc
// @Summary      Get a conversation with its full log
// @Tags         conversations
// @Produce      json
// @Param        conversation_id  path  string  true  "Conversation ID"
// @Success      200  {object}  conversation.Conversation
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/conversations/{conversation_id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.retrievals.GetConversation(c.Request.Context(), c.Param("conversation_id"), auth.RequesterID(c))
	if err != nil {
		responses.HandleError(c, err, "failed to get conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AppendMessage godoc
// @Summary      Append a message to a conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        conversation_id  path  string                         true  "Conversation ID"
// @Param        request          body  requests.AppendMessageRequest  true  "Message"
// @Success      200  {object}  conversation.Conversation
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/conversations/{conversation_id}/messages [patch]
func (h *ConversationHandler) AppendMessage(c *gin.Context) {
	var req requests.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "body must be {\"message\": {\"content\": ...}}", "conversation-invalid-message")
		return
	}

	conv, err := h.conversations.AppendMessage(c.Request.Context(), c.Param("conversation_id"), auth.RequesterID(c), *req.Message)
	if err != nil {
		responses.HandleError(c, err, "failed to append message")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AIResponse godoc
// @Summary      Ask the assistant about a conversation
// @Description  Always answers 200 once the user message is stored; delivery.delivered is false when the fallback reply was used.
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        conversation_id  path  string                      true  "Conversation ID"
// @Param        request          body  requests.AIResponseRequest  true  "Question"
// @Success      200  {object}  responses.AIResponse
// @Router       /v1/conversations/{conversation_id}/ai-response [post]
func (h *ConversationHandler) AIResponse(c *gin.Context) {
	var req requests.AIResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "message is required", "conversation-missing-question")
		return
	}

	reply, err := h.conversations.RespondWithAI(c.Request.Context(), c.Param("conversation_id"), auth.RequesterID(c), req.Message)
	if err != nil {
		responses.HandleError(c, err, "failed to answer message")
		return
	}
	if !reply.Delivery.Delivered {
		h.log.Warn().
			Str("conversation_id", c.Param("conversation_id")).
			Str("reason", reply.Delivery.Reason).
			Msg("answered with fallback reply")
	}
	c.JSON(http.StatusOK, responses.NewAIResponse(reply))
}
