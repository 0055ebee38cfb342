package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/domain/scan"
	"focusnote/scan-api/internal/infrastructure/auth"
	"focusnote/scan-api/internal/interfaces/httpserver/requests"
	"focusnote/scan-api/internal/interfaces/httpserver/responses"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the image payload ceiling.
const multipartOverhead = 1 << 20

// ScanHandler exposes the scan pipeline and the processed-document views.
type ScanHandler struct {
	cfg        *config.Config
	scans      ScanService
	retrievals RetrievalService
	log        zerolog.Logger
}

func NewScanHandler(cfg *config.Config, scans ScanService, retrievals RetrievalService, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		cfg:        cfg,
		scans:      scans,
		retrievals: retrievals,
		log:        log.With().Str("component", "scan-handler").Logger(),
	}
}

// Submit godoc
// @Summary      Submit page photos for conversion
// @Tags         scans
// @Accept       multipart/form-data
// @Produce      json
// @Param        images[]  formData  file    true   "Page images"
// @Param        title     formData  string  false  "Title"
// @Param        category  formData  string  false  "Category"
// @Param        section   formData  string  false  "Section"
// @Param        remarks   formData  string  false  "Remarks"
// @Success      201  {object}  responses.ScanResponse
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      502  {object}  responses.ErrorResponse
// @Router       /v1/scans [post]
func (h *ScanHandler) Submit(c *gin.Context) {
	limit := int64(h.cfg.MaxFiles)*h.cfg.MaxFileBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "request must be a multipart form within the upload size limit", "scan-invalid-form")
		return
	}

	images, err := readImages(form)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "failed to read uploaded image", "scan-unreadable-image")
		return
	}

	req := scan.SubmitRequest{
		Images: images,
		Metadata: scan.Metadata{
			Title:    formValue(form, "title"),
			Category: formValue(form, "category"),
			Section:  formValue(form, "section"),
			Remarks:  formValue(form, "remarks"),
		},
	}

	result, err := h.scans.Submit(c.Request.Context(), auth.RequesterID(c), req)
	if err != nil {
		responses.HandleError(c, err, "scan processing failed")
		return
	}

	c.JSON(http.StatusCreated, responses.NewScanResponse(result, len(images)))
}

// History godoc
// @Summary      List processed documents
// @Tags         scans
// @Produce      json
// @Param        limit   query  int  false  "Page size (max 100)"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  retrieval.HistoryPage
// @Router       /v1/scans/history [get]
func (h *ScanHandler) History(c *gin.Context) {
	var query requests.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "limit and offset must be non-negative integers", "scan-invalid-page")
		return
	}

	page, err := h.retrievals.ListHistory(c.Request.Context(), auth.RequesterID(c), query.Limit, query.Offset)
	if err != nil {
		responses.HandleError(c, err, "failed to list history")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Latest godoc
// @Summary      Most recent processed document with its conversation
// @Tags         scans
// @Produce      json
// @Success      200  {object}  conversation.Conversation
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/scans/latest [get]
func (h *ScanHandler) Latest(c *gin.Context) {
	conv, err := h.retrievals.LatestReview(c.Request.Context(), auth.RequesterID(c))
	if err != nil {
		responses.HandleError(c, err, "failed to load latest review")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// DownloadOutput godoc
// @Summary      Download the converted document of a conversation
// @Tags         scans
// @Produce      octet-stream
// @Param        conversation_id  path  string  true  "Conversation ID"
// @Success      200  "binary data"
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v1/scans/{conversation_id}/download [get]
func (h *ScanHandler) DownloadOutput(c *gin.Context) {
	dl, err := h.retrievals.DownloadConversationOutput(c.Request.Context(), c.Param("conversation_id"), auth.RequesterID(c))
	if err != nil {
		responses.HandleError(c, err, "failed to download output")
		return
	}
	streamDownload(c, dl)
}

func readImages(form *multipart.Form) ([]scan.Image, error) {
	headers := form.File["images[]"]
	if len(headers) == 0 {
		headers = form.File["images"]
	}

	images := make([]scan.Image, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := readAllClose(f)
		if err != nil {
			return nil, err
		}
		images = append(images, scan.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		})
	}
	return images, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
