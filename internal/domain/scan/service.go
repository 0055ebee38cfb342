package scan

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/metrics"
	"focusnote/scan-api/internal/infrastructure/observability"
	"focusnote/scan-api/internal/utils/platformerrors"
)

const (
	defaultTitle   = "Processed Document"
	defaultSection = "General"
)

// ConversationCreator creates the conversation a scan is recorded under.
type ConversationCreator interface {
	Create(ctx context.Context, requester string, params conversation.CreateParams) (*conversation.Conversation, error)
}

// ArtifactStore persists artifact payloads and metadata.
type ArtifactStore interface {
	Store(ctx context.Context, objects []artifact.NewObject) ([]*artifact.Artifact, error)
}

// Service runs the scan pipeline: validate, convert, fetch, persist.
type Service struct {
	validator      *Validator
	converter      Converter
	conversations  ConversationCreator
	artifacts      ArtifactStore
	releaseTimeout time.Duration
	log            zerolog.Logger
}

// NewService wires the scan pipeline.
func NewService(cfg *config.Config, converter Converter, conversations ConversationCreator, artifacts ArtifactStore, log zerolog.Logger) *Service {
	return &Service{
		validator:      NewValidator(cfg.MaxFiles, cfg.MaxFileBytes),
		converter:      converter,
		conversations:  conversations,
		artifacts:      artifacts,
		releaseTimeout: cfg.ReleaseTimeout,
		log:            log.With().Str("component", "scan-service").Logger(),
	}
}

// Submit validates the pages, converts them and stores the conversation plus
// every artifact. The first failing step aborts the rest; rows written by
// earlier steps are kept and reported as orphans.
func (s *Service) Submit(ctx context.Context, requester string, req SubmitRequest) (*SubmitResult, error) {
	start := time.Now()
	if strings.TrimSpace(requester) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"missing user identity", nil, "scan-missing-identity")
	}
	if err := s.validator.Validate(ctx, req); err != nil {
		metrics.RecordScan("invalid", len(req.Images))
		return nil, err
	}

	ctx, span := observability.StartPipelineSpan(ctx, "submit",
		attribute.Int("scan.images", len(req.Images)),
		attribute.String("user.id", requester),
	)
	defer span.End()

	result, err := s.run(ctx, requester, req)
	if err != nil {
		observability.RecordError(span, err)
		metrics.RecordScan("failed", len(req.Images))
		return nil, err
	}

	metrics.RecordScan("success", len(req.Images))
	span.SetAttributes(attribute.String("conversation.id", result.ConversationID))
	s.log.Info().
		Str("user_id", requester).
		Str("conversation_id", result.ConversationID).
		Int("images", len(req.Images)).
		Dur("duration", time.Since(start)).
		Msg("scan processed")
	return result, nil
}

func (s *Service) run(ctx context.Context, requester string, req SubmitRequest) (*SubmitResult, error) {
	converted, err := s.convert(ctx, req)
	if err != nil {
		return nil, err
	}
	if name := remoteName(converted); name != "" {
		defer s.release(ctx, name)
	}

	if strings.TrimSpace(converted.DownloadURL) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"conversion service returned no download_url", nil, "scan-missing-download-url")
	}

	fetched, err := s.fetch(ctx, converted.DownloadURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := fetched.Cleanup(); cerr != nil {
			metrics.RecordCleanupFailure("temp_file")
			s.log.Warn().Err(cerr).Str("path", fetched.Path).Msg("failed to remove temp artifact")
		}
	}()

	output, err := fetched.Bytes()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to read fetched artifact", err, "scan-read-artifact")
	}

	return s.persist(ctx, requester, req, converted, output)
}

func (s *Service) convert(ctx context.Context, req SubmitRequest) (*ConversionResult, error) {
	ctx, span := observability.StartPipelineSpan(ctx, "convert")
	defer span.End()

	result, err := s.converter.Submit(ctx, req.Images, req.Metadata)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if result == nil {
		err = platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"conversion service returned an empty response", nil, "scan-empty-conversion")
		observability.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) fetch(ctx context.Context, locator string) (*FetchedArtifact, error) {
	ctx, span := observability.StartPipelineSpan(ctx, "fetch", attribute.String("artifact.locator", locator))
	defer span.End()

	fetched, err := s.converter.FetchArtifact(ctx, locator)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("artifact.bytes", fetched.Size))
	return fetched, nil
}

// persist writes the conversation, then the source pages, then the output.
func (s *Service) persist(ctx context.Context, requester string, req SubmitRequest, converted *ConversionResult, output []byte) (*SubmitResult, error) {
	ctx, span := observability.StartPipelineSpan(ctx, "persist")
	defer span.End()

	outputName := outputFilename(converted)
	fileType := artifact.FileTypeOf(outputName)
	title := firstNonEmpty(req.Metadata.Title, converted.RecommendedTitle, defaultTitle)
	section := firstNonEmpty(req.Metadata.Section, req.Metadata.Category, defaultSection)

	conv, err := s.conversations.Create(ctx, requester, conversation.CreateParams{
		Title:   title,
		Section: section,
		Event: &conversation.ProcessingEvent{
			ImageCount:          len(req.Images),
			OriginalTitle:       strings.TrimSpace(req.Metadata.Title),
			FinalTitle:          title,
			RecommendedTitle:    converted.RecommendedTitle,
			Category:            strings.TrimSpace(req.Metadata.Category),
			Remarks:             strings.TrimSpace(req.Metadata.Remarks),
			ProcessedTextLength: len(converted.ProcessedText),
			ProcessingTime:      converted.ProcessingTime(),
			Output: conversation.OutputDescriptor{
				Filename: outputName,
				FileType: fileType,
			},
		},
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	written := []string{conv.ID}

	sources := make([]artifact.NewObject, len(req.Images))
	for i, img := range req.Images {
		sources[i] = artifact.NewObject{
			UserID:         requester,
			ConversationID: conv.ID,
			Role:           artifact.RoleSource,
			Filename:       img.Filename,
			DeclaredType:   img.ContentType,
			Data:           img.Data,
		}
	}
	inputs, err := s.artifacts.Store(ctx, sources)
	if err != nil {
		s.reportOrphans(ctx, "store_sources", written, err)
		observability.RecordError(span, err)
		return nil, err
	}
	inputIDs := make([]string, len(inputs))
	for i, a := range inputs {
		inputIDs[i] = a.ID
	}
	written = append(written, inputIDs...)

	derived, err := s.artifacts.Store(ctx, []artifact.NewObject{{
		UserID:         requester,
		ConversationID: conv.ID,
		Role:           artifact.RoleDerived,
		Filename:       outputName,
		DeclaredType:   artifact.ContentTypeForFileType(fileType),
		Data:           output,
	}})
	if err != nil {
		s.reportOrphans(ctx, "store_output", written, err)
		observability.RecordError(span, err)
		return nil, err
	}

	return &SubmitResult{
		ConversationID:      conv.ID,
		Title:               title,
		Section:             section,
		InputArtifactIDs:    inputIDs,
		OutputArtifactID:    derived[0].ID,
		RecommendedTitle:    converted.RecommendedTitle,
		ProcessedTextLength: len(converted.ProcessedText),
		FileType:            fileType,
		ProcessingTime:      converted.ProcessingTime(),
	}, nil
}

// release asks the conversion service to drop its copy. It runs detached
// from the request so a client disconnect does not skip it.
func (s *Service) release(ctx context.Context, name string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.releaseTimeout)
	defer cancel()

	if err := s.converter.ReleaseRemote(releaseCtx, name); err != nil {
		metrics.RecordCleanupFailure("remote_release")
		s.log.Warn().Err(err).Str("artifact", name).Msg("failed to release remote artifact")
	}
}

func (s *Service) reportOrphans(ctx context.Context, step string, ids []string, cause error) {
	metrics.RecordOrphans(len(ids))
	s.log.Warn().
		Err(cause).
		Str("step", step).
		Strs("orphaned_ids", ids).
		Str("request_id", platformerrors.RequestIDFromContext(ctx)).
		Msg("scan aborted after partial write")
}

func remoteName(r *ConversionResult) string {
	if name := strings.TrimSpace(r.Filename); name != "" {
		return name
	}
	return locatorBase(r.DownloadURL)
}

func outputFilename(r *ConversionResult) string {
	if name := strings.TrimSpace(r.Filename); name != "" {
		return path.Base(name)
	}
	return locatorBase(r.DownloadURL)
}

func locatorBase(locator string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return ""
	}
	if u, err := url.Parse(locator); err == nil {
		locator = u.Path
	}
	base := path.Base(locator)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
