package v1

import (
	"github.com/gin-gonic/gin"

	"focusnote/scan-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	scans := group.Group("/scans")
	scans.POST("", r.handlers.Scan.Submit)
	scans.GET("/history", r.handlers.Scan.History)
	scans.GET("/latest", r.handlers.Scan.Latest)
	scans.GET("/:conversation_id/download", r.handlers.Scan.DownloadOutput)

	conversations := group.Group("/conversations")
	conversations.POST("", r.handlers.Conversation.Create)
	conversations.GET("/:conversation_id", r.handlers.Conversation.Get)
	conversations.PATCH("/:conversation_id/messages", r.handlers.Conversation.AppendMessage)
	conversations.POST("/:conversation_id/ai-response", r.handlers.Conversation.AIResponse)

	group.POST("/artifacts", r.handlers.Artifact.Upload)
	group.GET("/artifacts/:artifact_id", r.handlers.Artifact.Download)
}
