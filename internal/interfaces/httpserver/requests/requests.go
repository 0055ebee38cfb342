package requests

import "focusnote/scan-api/internal/domain/conversation"

// CreateConversationRequest is the body of POST /v1/conversations.
type CreateConversationRequest struct {
	Title   string `json:"title" binding:"max=256"`
	Section string `json:"section" binding:"max=100"`
}

// AppendMessageRequest is the body of PATCH /v1/conversations/:id/messages.
type AppendMessageRequest struct {
	Message *conversation.MessageInput `json:"message" binding:"required"`
}

// AIResponseRequest is the body of POST /v1/conversations/:id/ai-response.
type AIResponseRequest struct {
	Message string `json:"message" binding:"required"`
}

// HistoryQuery pages GET /v1/scans/history.
type HistoryQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
