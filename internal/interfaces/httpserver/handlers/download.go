package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusnote/scan-api/internal/domain/retrieval"
)

// streamDownload writes the artifact bytes with attachment headers and closes
// the body.
func streamDownload(c *gin.Context, dl *retrieval.Download) {
	defer dl.Body.Close()

	size := int64(-1)
	if dl.Artifact != nil && dl.Artifact.Bytes > 0 {
		size = dl.Artifact.Bytes
	}
	c.DataFromReader(http.StatusOK, size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": `attachment; filename="` + dl.Filename + `"`,
	})
}
