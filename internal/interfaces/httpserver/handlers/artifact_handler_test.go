package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/retrieval"
	"focusnote/scan-api/internal/utils/platformerrors"
)

func TestArtifactHandler_Upload(t *testing.T) {
	svc := newTestServices()
	svc.artifacts.UploadFunc = func(ctx context.Context, requester string, params artifact.UploadParams) (*artifact.Artifact, error) {
		assert.Equal(t, testUser, requester)
		assert.Equal(t, "conv_1", params.ConversationID)
		assert.Equal(t, artifact.RoleSource, params.Role)
		assert.Equal(t, "notes.txt", params.Filename)
		assert.Equal(t, []byte("hello"), params.Data)
		return &artifact.Artifact{ID: "art_1", ConversationID: params.ConversationID, Role: params.Role, Bytes: 5}, nil
	}
	router := setupTestRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"conversation_id": "conv_1"},
		formFile{"file", "notes.txt", "text/plain", []byte("hello")})
	req := httptest.NewRequest(http.MethodPost, "/v1/artifacts", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var art artifact.Artifact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &art))
	assert.Equal(t, "art_1", art.ID)
}

func TestArtifactHandler_UploadRequiresFile(t *testing.T) {
	router := setupTestRouter(newTestServices())

	body, contentType := multipartBody(t, map[string]string{"conversation_id": "conv_1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/artifacts", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArtifactHandler_Download(t *testing.T) {
	svc := newTestServices()
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	svc.retrievals.DownloadArtifactFunc = func(ctx context.Context, id string, requester string) (*retrieval.Download, error) {
		return &retrieval.Download{
			Artifact:    &artifact.Artifact{ID: id, Bytes: int64(len(payload))},
			Body:        io.NopCloser(bytes.NewReader(payload)),
			ContentType: "image/png",
			Filename:    "page1.png",
		}, nil
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/artifacts/art_1", nil)
	req.Header.Set("X-User-ID", testUser)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="page1.png"`, w.Header().Get("Content-Disposition"))
}

func TestArtifactHandler_DownloadForeignIsNotFound(t *testing.T) {
	svc := newTestServices()
	svc.retrievals.DownloadArtifactFunc = func(ctx context.Context, id string, requester string) (*retrieval.Download, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "artifact not found: "+id, nil, "retrieval-artifact-not-found")
	}
	router := setupTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/artifacts/art_1", nil)
	req.Header.Set("X-User-ID", "user_2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
