package retrieval

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/utils/idgen"
	"focusnote/scan-api/internal/utils/platformerrors"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	untitledFilename    = "document"
)

// ConversationReader is the read side of the conversation store.
type ConversationReader interface {
	FindByID(ctx context.Context, id string) (*conversation.Conversation, error)
	ListProcessed(ctx context.Context, filter conversation.HistoryFilter) ([]*conversation.Conversation, error)
}

// ArtifactReader is the read side of the artifact metadata store.
type ArtifactReader interface {
	FindByID(ctx context.Context, id string) (*artifact.Artifact, error)
	FindLatestByConversation(ctx context.Context, conversationID string, role artifact.Role) (*artifact.Artifact, error)
	CountByConversations(ctx context.Context, conversationIDs []string) (map[string]artifact.RoleCounts, error)
}

// PayloadOpener streams stored artifact bytes.
type PayloadOpener interface {
	Open(ctx context.Context, a *artifact.Artifact) (io.ReadCloser, error)
}

// Download is an artifact ready to be streamed to the client. The caller
// must close Body.
type Download struct {
	Artifact    *artifact.Artifact
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// HistoryItem summarises one processed conversation.
type HistoryItem struct {
	ID             string                        `json:"id"`
	Title          string                        `json:"title"`
	Section        string                        `json:"section"`
	CreatedAt      time.Time                     `json:"created_at"`
	InputFiles     int                           `json:"input_files"`
	OutputFiles    int                           `json:"output_files"`
	ProcessingInfo conversation.OutputDescriptor `json:"processing_info"`
}

// HistoryPage is one page of HistoryItems.
type HistoryPage struct {
	Items  []HistoryItem `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Service serves read-only views of conversations and artifacts. Every entry
// point applies the same ownership check; foreign records are reported as
// not found.
type Service struct {
	conversations ConversationReader
	artifacts     ArtifactReader
	payloads      PayloadOpener
	log           zerolog.Logger
}

// NewService wires the retrieval service.
func NewService(conversations ConversationReader, artifacts ArtifactReader, payloads PayloadOpener, log zerolog.Logger) *Service {
	return &Service{
		conversations: conversations,
		artifacts:     artifacts,
		payloads:      payloads,
		log:           log.With().Str("component", "retrieval-service").Logger(),
	}
}

// GetConversation returns the conversation with its full log.
func (s *Service) GetConversation(ctx context.Context, id string, requester string) (*conversation.Conversation, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	return s.ownedConversation(ctx, id, requester)
}

// DownloadArtifact opens one artifact the requester owns.
func (s *Service) DownloadArtifact(ctx context.Context, id string, requester string) (*Download, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	if !idgen.HasPrefix(id, idgen.PrefixArtifact) {
		return nil, artifactNotFound(ctx, id)
	}

	art, err := s.artifacts.FindByID(ctx, id)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, artifactNotFound(ctx, id)
		}
		return nil, err
	}
	if !art.AccessibleBy(requester) {
		return nil, artifactNotFound(ctx, id)
	}

	conv, err := s.ownedConversation(ctx, art.ConversationID, requester)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, artifactNotFound(ctx, id)
		}
		return nil, err
	}
	return s.open(ctx, conv, art)
}

// DownloadConversationOutput opens the derived artifact of a conversation.
func (s *Service) DownloadConversationOutput(ctx context.Context, conversationID string, requester string) (*Download, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	conv, err := s.ownedConversation(ctx, conversationID, requester)
	if err != nil {
		return nil, err
	}

	art, err := s.artifacts.FindLatestByConversation(ctx, conv.ID, artifact.RoleDerived)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("no output file for conversation: %s", conversationID), nil, "retrieval-output-not-found")
		}
		return nil, err
	}
	if !art.AccessibleBy(requester) {
		return nil, artifactNotFound(ctx, art.ID)
	}
	return s.open(ctx, conv, art)
}

// ListHistory pages through the requester's processed conversations, newest first.
func (s *Service) ListHistory(ctx context.Context, requester string, limit, offset int) (*HistoryPage, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	convs, err := s.conversations.ListProcessed(ctx, conversation.HistoryFilter{
		UserID: requester,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	counts := map[string]artifact.RoleCounts{}
	if len(ids) > 0 {
		counts, err = s.artifacts.CountByConversations(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	items := make([]HistoryItem, 0, len(convs))
	for _, c := range convs {
		if !c.AccessibleBy(requester) {
			continue
		}
		item := HistoryItem{
			ID:          c.ID,
			Title:       c.Title,
			Section:     c.Section,
			CreatedAt:   c.CreatedAt,
			InputFiles:  counts[c.ID].Source,
			OutputFiles: counts[c.ID].Derived,
		}
		if event := c.ProcessingEvent(); event != nil {
			item.ProcessingInfo = event.Output
		}
		items = append(items, item)
	}

	return &HistoryPage{Items: items, Limit: limit, Offset: offset}, nil
}

// LatestReview returns the requester's most recent processed conversation.
func (s *Service) LatestReview(ctx context.Context, requester string) (*conversation.Conversation, error) {
	if err := requireRequester(ctx, requester); err != nil {
		return nil, err
	}
	convs, err := s.conversations.ListProcessed(ctx, conversation.HistoryFilter{UserID: requester, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 || !convs[0].AccessibleBy(requester) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"no processed documents found", nil, "retrieval-no-review")
	}
	return convs[0], nil
}

func (s *Service) ownedConversation(ctx context.Context, id string, requester string) (*conversation.Conversation, error) {
	if !idgen.HasPrefix(id, idgen.PrefixConversation) {
		return nil, conversation.NotFound(ctx, id)
	}
	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, conversation.NotFound(ctx, id)
		}
		return nil, err
	}
	if !conv.AccessibleBy(requester) {
		return nil, conversation.NotFound(ctx, id)
	}
	return conv, nil
}

func (s *Service) open(ctx context.Context, conv *conversation.Conversation, art *artifact.Artifact) (*Download, error) {
	body, err := s.payloads.Open(ctx, art)
	if err != nil {
		return nil, err
	}
	contentType, filename := describeDownload(conv, art)
	s.log.Debug().
		Str("artifact_id", art.ID).
		Str("conversation_id", conv.ID).
		Str("content_type", contentType).
		Msg("artifact download")
	return &Download{
		Artifact:    art,
		Body:        body,
		ContentType: contentType,
		Filename:    filename,
	}, nil
}

// describeDownload picks the response content type and filename. Derived
// files take both from the conversation's output descriptor and title;
// source pages keep their sniffed type and upload name.
func describeDownload(conv *conversation.Conversation, art *artifact.Artifact) (string, string) {
	base := sanitizeFilename(conv.Title)
	if base == "" {
		base = untitledFilename
	}

	if art.Role == artifact.RoleDerived {
		fileType := ""
		if event := conv.ProcessingEvent(); event != nil {
			fileType = event.Output.FileType
		}
		if fileType == "" || fileType == "unknown" {
			fileType = artifact.FileTypeOf(art.Filename)
		}
		if fileType == "unknown" {
			return "application/octet-stream", base
		}
		return artifact.ContentTypeForFileType(fileType), base + "." + fileType
	}

	contentType := strings.TrimSpace(art.MimeType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if name := sanitizeFilename(art.Filename); name != "" {
		return contentType, name
	}
	if ft := artifact.FileTypeOf(art.Filename); ft != "unknown" {
		return contentType, base + "." + ft
	}
	return contentType, base
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\r', '\n':
			return -1
		case '/', '\\':
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func artifactNotFound(ctx context.Context, id string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		fmt.Sprintf("artifact not found: %s", id), nil, "retrieval-artifact-not-found")
}

func requireRequester(ctx context.Context, requester string) error {
	if strings.TrimSpace(requester) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"missing user identity", nil, "retrieval-missing-identity")
	}
	return nil
}
