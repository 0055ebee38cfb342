package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/interfaces/httpserver/responses"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// ArtifactHandler exposes single-file upload and download.
type ArtifactHandler struct {
	cfg        *config.Config
	artifacts  ArtifactService
	retrievals RetrievalService
	log        zerolog.Logger
}

func NewArtifactHandler(cfg *config.Config, artifacts ArtifactService, retrievals RetrievalService, log zerolog.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		cfg:        cfg,
		artifacts:  artifacts,
		retrievals: retrievals,
		log:        log.With().Str("component", "artifact-handler").Logger(),
	}
}

// Upload godoc
// @Summary      Attach a file to a conversation
// @Tags         artifacts
// @Accept       multipart/form-data
// @Produce      json
// @Param        file             formData  file    true   "File"
// @Param        conversation_id  formData  string  true   "Conversation ID"
// @Param        role             formData  string  false  "source or derived"
// @Success      201  {object}  artifact.Artifact
// @Router       /v1/artifacts [post]
func (h *ArtifactHandler) Upload(c *gin.Context) {
	limit := h.cfg.MaxArtifactBytes
	if h.cfg.MaxFileBytes > limit {
		limit = h.cfg.MaxFileBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "file is required", "artifact-missing-file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded file", "artifact-unreadable-file")
		return
	}
	data, err := readAllClose(f)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded file", "artifact-unreadable-file")
		return
	}

	role := artifact.Role(strings.TrimSpace(c.PostForm("role")))
	if role == "" {
		role = artifact.RoleSource
	}

	art, err := h.artifacts.Upload(c.Request.Context(), auth.RequesterID(c), artifact.UploadParams{
		ConversationID: strings.TrimSpace(c.PostForm("conversation_id")),
		Role:           role,
		Filename:       fh.Filename,
		ContentType:    fh.Header.Get("Content-Type"),
		Data:           data,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to upload artifact")
		return
	}
	c.JSON(http.StatusCreated, art)
}

// Download streams exactly the stored bytes of an artifact the requester owns.
func (h *ArtifactHandler) Download(c *gin.Context) {
	dl, err := h.retrievals.DownloadArtifact(c.Request.Context(), c.Param("artifact_id"), auth.RequesterID(c))
	if err != nil {
		responses.HandleError(c, err, "failed to download artifact")
		return
	}
	streamDownload(c, dl)
}
