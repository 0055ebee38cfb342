package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/domain/retrieval"
	"focusnote/scan-api/internal/domain/scan"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/interfaces/httpserver/handlers"
	v1 "focusnote/scan-api/internal/interfaces/httpserver/routes/v1"
)

const testUser = "user_1"

type MockScanService struct {
	SubmitFunc func(ctx context.Context, requester string, req scan.SubmitRequest) (*scan.SubmitResult, error)
}

func (m *MockScanService) Submit(ctx context.Context, requester string, req scan.SubmitRequest) (*scan.SubmitResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, requester, req)
	}
	return nil, nil
}

type MockConversationService struct {
	CreateFunc        func(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error)
	AppendMessageFunc func(ctx context.Context, id string, requester string, input conversation.MessageInput) (*conversation.Conversation, error)
	RespondWithAIFunc func(ctx context.Context, id string, requester string, text string) (*conversation.Reply, error)
}

func (m *MockConversationService) Create(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, requester, params)
	}
	return nil, nil
}

func (m *MockConversationService) AppendMessage(ctx context.Context, id string, requester string, input conversation.MessageInput) (*conversation.Conversation, error) {
	if m.AppendMessageFunc != nil {
		return m.AppendMessageFunc(ctx, id, requester, input)
	}
	return nil, nil
}

func (m *MockConversationService) RespondWithAI(ctx context.Context, id string, requester string, text string) (*conversation.Reply, error) {
	if m.RespondWithAIFunc != nil {
		return m.RespondWithAIFunc(ctx, id, requester, text)
	}
	return nil, nil
}

type MockArtifactService struct {
	UploadFunc func(ctx context.Context, requester string, params artifact.UploadParams) (*artifact.Artifact, error)
}

func (m *MockArtifactService) Upload(ctx context.Context, requester string, params artifact.UploadParams) (*artifact.Artifact, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, requester, params)
	}
	return nil, nil
}

type MockRetrievalService struct {
	GetConversationFunc            func(ctx context.Context, id string, requester string) (*conversation.Conversation, error)
	DownloadArtifactFunc           func(ctx context.Context, id string, requester string) (*retrieval.Download, error)
	DownloadConversationOutputFunc func(ctx context.Context, conversationID string, requester string) (*retrieval.Download, error)
	ListHistoryFunc                func(ctx context.Context, requester string, limit, offset int) (*retrieval.HistoryPage, error)
	LatestReviewFunc               func(ctx context.Context, requester string) (*conversation.Conversation, error)
}

func (m *MockRetrievalService) GetConversation(ctx context.Context, id string, requester string) (*conversation.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id, requester)
	}
	return nil, nil
}

func (m *MockRetrievalService) DownloadArtifact(ctx context.Context, id string, requester string) (*retrieval.Download, error) {
	if m.DownloadArtifactFunc != nil {
		return m.DownloadArtifactFunc(ctx, id, requester)
	}
	return nil, nil
}

func (m *MockRetrievalService) DownloadConversationOutput(ctx context.Context, conversationID string, requester string) (*retrieval.Download, error) {
	if m.DownloadConversationOutputFunc != nil {
		return m.DownloadConversationOutputFunc(ctx, conversationID, requester)
	}
	return nil, nil
}

func (m *MockRetrievalService) ListHistory(ctx context.Context, requester string, limit, offset int) (*retrieval.HistoryPage, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, requester, limit, offset)
	}
	return nil, nil
}

func (m *MockRetrievalService) LatestReview(ctx context.Context, requester string) (*conversation.Conversation, error) {
	if m.LatestReviewFunc != nil {
		return m.LatestReviewFunc(ctx, requester)
	}
	return nil, nil
}

type testServices struct {
	scans         *MockScanService
	conversations *MockConversationService
	artifacts     *MockArtifactService
	retrievals    *MockRetrievalService
}

func newTestServices() *testServices {
	return &testServices{
		scans:         &MockScanService{},
		conversations: &MockConversationService{},
		artifacts:     &MockArtifactService{},
		retrievals:    &MockRetrievalService{},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:      "scan-api",
		MaxFiles:         10,
		MaxFileBytes:     1 << 20,
		MaxArtifactBytes: 2 << 20,
	}
}

// setupTestRouter mounts the v1 routes behind the header-based identity
// middleware used when JWT auth is disabled.
func setupTestRouter(svc *testServices) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var validator *auth.Validator
	provider := handlers.NewProvider(testConfig(), svc.scans, svc.conversations, svc.artifacts, svc.retrievals, zerolog.Nop())
	v1.NewRoutes(provider).Register(router.Group("/", validator.Middleware()))
	return router
}
