package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/utils/idgen"
	"focusnote/scan-api/internal/utils/platformerrors"
)

const maxConcurrentUploads = 4

// ConversationFinder resolves the conversation an artifact is attached to.
type ConversationFinder interface {
	FindByID(ctx context.Context, id string) (*conversation.Conversation, error)
}

// Service stores and opens artifact payloads.
type Service struct {
	repo          Repository
	storage       Storage
	conversations ConversationFinder
	maxBytes      int64
	now           func() time.Time
	log           zerolog.Logger
}

// NewService wires the artifact service.
func NewService(cfg *config.Config, repo Repository, storage Storage, conversations ConversationFinder, log zerolog.Logger) *Service {
	maxBytes := cfg.MaxArtifactBytes
	if cfg.MaxFileBytes > maxBytes {
		maxBytes = cfg.MaxFileBytes
	}
	return &Service{
		repo:          repo,
		storage:       storage,
		conversations: conversations,
		maxBytes:      maxBytes,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log.With().Str("component", "artifact-service").Logger(),
	}
}

// Store writes every payload to blob storage and then records the metadata
// rows in input order. Blob writes run concurrently; the first failure
// cancels the rest and no rows are written.
func (s *Service) Store(ctx context.Context, objects []NewObject) ([]*Artifact, error) {
	if len(objects) == 0 {
		return nil, nil
	}

	artifacts := make([]*Artifact, len(objects))
	for i, obj := range objects {
		artifacts[i] = s.describe(obj)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i := range objects {
		art := artifacts[i]
		data := objects[i].Data
		g.Go(func() error {
			if err := s.storage.Upload(gctx, art.StorageKey, bytes.NewReader(data), int64(len(data)), art.MimeType); err != nil {
				return platformerrors.NewErrorWithContext(gctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
					"failed to store artifact payload", err, "artifact-upload-failed",
					map[string]any{"artifact_id": art.ID, "storage_key": art.StorageKey})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.repo.BulkCreate(ctx, artifacts); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("count", len(artifacts)).
		Str("conversation_id", artifacts[0].ConversationID).
		Str("role", string(artifacts[0].Role)).
		Msg("artifacts stored")
	return artifacts, nil
}

// Upload attaches one file to a conversation the requester owns.
func (s *Service) Upload(ctx context.Context, requester string, params UploadParams) (*Artifact, error) {
	if strings.TrimSpace(requester) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"missing user identity", nil, "artifact-missing-identity")
	}
	if strings.TrimSpace(params.ConversationID) == "" {
		return nil, validation(ctx, "conversation_id is required")
	}
	if !params.Role.IsValid() {
		return nil, validation(ctx, fmt.Sprintf("role must be %q or %q", RoleSource, RoleDerived))
	}
	if len(params.Data) == 0 {
		return nil, validation(ctx, "file is empty")
	}
	if int64(len(params.Data)) > s.maxBytes {
		return nil, validation(ctx, fmt.Sprintf("file exceeds max size of %d bytes", s.maxBytes))
	}

	conv, err := s.conversations.FindByID(ctx, params.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.AccessibleBy(requester) {
		return nil, conversation.NotFound(ctx, params.ConversationID)
	}

	stored, err := s.Store(ctx, []NewObject{{
		UserID:         requester,
		ConversationID: conv.ID,
		Role:           params.Role,
		Filename:       params.Filename,
		DeclaredType:   params.ContentType,
		Data:           params.Data,
	}})
	if err != nil {
		return nil, err
	}
	return stored[0], nil
}

// Open streams the stored payload of a.
func (s *Service) Open(ctx context.Context, a *Artifact) (io.ReadCloser, error) {
	reader, _, err := s.storage.Download(ctx, a.StorageKey)
	if err != nil {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to read artifact payload", err, "artifact-download-failed",
			map[string]any{"artifact_id": a.ID})
	}
	return reader, nil
}

func (s *Service) describe(obj NewObject) *Artifact {
	id := idgen.NewULID(idgen.PrefixArtifact)
	detected := mimetype.Detect(obj.Data)

	mimeType := detected.String()
	if detected.Is("application/octet-stream") && strings.TrimSpace(obj.DeclaredType) != "" {
		mimeType = strings.TrimSpace(obj.DeclaredType)
	}
	ext := detected.Extension()
	if ext == "" {
		if ft := FileTypeOf(obj.Filename); ft != "unknown" {
			ext = "." + ft
		}
	}

	sum := sha256.Sum256(obj.Data)
	return &Artifact{
		ID:             id,
		UserID:         obj.UserID,
		ConversationID: obj.ConversationID,
		Role:           obj.Role,
		Filename:       obj.Filename,
		MimeType:       mimeType,
		Bytes:          int64(len(obj.Data)),
		Sha256:         hex.EncodeToString(sum[:]),
		StorageKey:     fmt.Sprintf("artifacts/%s/%s%s", obj.ConversationID, id, ext),
		CreatedAt:      s.now(),
	}
}

func validation(ctx context.Context, message string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, "artifact-validation")
}
