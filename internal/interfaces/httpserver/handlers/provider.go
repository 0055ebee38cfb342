package handlers

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/domain/retrieval"
	"focusnote/scan-api/internal/domain/scan"
)

// ScanService runs the scan pipeline.
type ScanService interface {
	Submit(ctx context.Context, requester string, req scan.SubmitRequest) (*scan.SubmitResult, error)
}

// ConversationService mutates conversation logs.
type ConversationService interface {
	Create(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, id string, requester string, input conversation.MessageInput) (*conversation.Conversation, error)
	RespondWithAI(ctx context.Context, id string, requester string, text string) (*conversation.Reply, error)
}

// ArtifactService accepts single-file uploads.
type ArtifactService interface {
	Upload(ctx context.Context, requester string, params artifact.UploadParams) (*artifact.Artifact, error)
}

// RetrievalService serves owner-scoped reads.
type RetrievalService interface {
	GetConversation(ctx context.Context, id string, requester string) (*conversation.Conversation, error)
	DownloadArtifact(ctx context.Context, id string, requester string) (*retrieval.Download, error)
	DownloadConversationOutput(ctx context.Context, conversationID string, requester string) (*retrieval.Download, error)
	ListHistory(ctx context.Context, requester string, limit, offset int) (*retrieval.HistoryPage, error)
	LatestReview(ctx context.Context, requester string) (*conversation.Conversation, error)
}

// Provider wires HTTP handlers.
type Provider struct {
	Scan         *ScanHandler
	Conversation *ConversationHandler
	Artifact     *ArtifactHandler
}

func NewProvider(
	cfg *config.Config,
	scans ScanService,
	conversations ConversationService,
	artifacts ArtifactService,
	retrievals RetrievalService,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Scan:         NewScanHandler(cfg, scans, retrievals, log),
		Conversation: NewConversationHandler(conversations, retrievals, log),
		Artifact:     NewArtifactHandler(cfg, artifacts, retrievals, log),
	}
}

func readAllClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
