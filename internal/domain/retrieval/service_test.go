package retrieval

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/utils/platformerrors"
)

type fakeConversations struct {
	byID      map[string]*conversation.Conversation
	processed []*conversation.Conversation
	filters   []conversation.HistoryFilter
}

func (f *fakeConversations) FindByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, conversation.NotFound(ctx, id)
}

func (f *fakeConversations) ListProcessed(ctx context.Context, filter conversation.HistoryFilter) ([]*conversation.Conversation, error) {
	f.filters = append(f.filters, filter)
	var out []*conversation.Conversation
	for _, c := range f.processed {
		if c.UserID == filter.UserID {
			out = append(out, c)
		}
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeArtifacts struct {
	byID   map[string]*artifact.Artifact
	counts map[string]artifact.RoleCounts
}

func (f *fakeArtifacts) FindByID(ctx context.Context, id string) (*artifact.Artifact, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "artifact not found", nil, "")
}

func (f *fakeArtifacts) FindLatestByConversation(ctx context.Context, conversationID string, role artifact.Role) (*artifact.Artifact, error) {
	for _, a := range f.byID {
		if a.ConversationID == conversationID && a.Role == role {
			return a, nil
		}
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "artifact not found", nil, "")
}

func (f *fakeArtifacts) CountByConversations(ctx context.Context, conversationIDs []string) (map[string]artifact.RoleCounts, error) {
	return f.counts, nil
}

type fakePayloads map[string][]byte

func (f fakePayloads) Open(ctx context.Context, a *artifact.Artifact) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f[a.StorageKey])), nil
}

var outputPDF = []byte("%PDF-1.7 converted notes")

func processedConversation(id, owner, title string, fileType string, created time.Time) *conversation.Conversation {
	return &conversation.Conversation{
		ID:        id,
		UserID:    owner,
		Title:     title,
		Section:   "Math",
		CreatedAt: created,
		Entries: []conversation.Entry{{
			ID:       "evt_1",
			Sequence: 1,
			Kind:     conversation.EntryKindProcessingEvent,
			Event: &conversation.ProcessingEvent{
				ImageCount: 2,
				FinalTitle: title,
				Output:     conversation.OutputDescriptor{Filename: "out." + fileType, FileType: fileType},
			},
		}},
	}
}

func newFixture() (*Service, *fakeConversations) {
	now := time.Now().UTC()
	convA := processedConversation("conv_a", "user_a", `Calc "Week 1"`, "pdf", now)
	convOld := processedConversation("conv_old", "user_a", "", "tex", now.Add(-time.Hour))

	convs := &fakeConversations{
		byID:      map[string]*conversation.Conversation{"conv_a": convA, "conv_old": convOld},
		processed: []*conversation.Conversation{convA, convOld},
	}
	arts := &fakeArtifacts{
		byID: map[string]*artifact.Artifact{
			"art_out": {ID: "art_out", UserID: "user_a", ConversationID: "conv_a", Role: artifact.RoleDerived, Filename: "out.pdf", Bytes: int64(len(outputPDF)), StorageKey: "k/out"},
			"art_src": {ID: "art_src", UserID: "user_a", ConversationID: "conv_a", Role: artifact.RoleSource, Filename: "page 1.jpg", MimeType: "image/jpeg", StorageKey: "k/src"},
		},
		counts: map[string]artifact.RoleCounts{"conv_a": {Source: 2, Derived: 1}},
	}
	payloads := fakePayloads{"k/out": outputPDF, "k/src": []byte("jpeg")}
	return NewService(convs, arts, payloads, zerolog.Nop()), convs
}

func readBody(t *testing.T, dl *Download) []byte {
	t.Helper()
	defer dl.Body.Close()
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	return data
}

func TestService_DownloadDerivedArtifact(t *testing.T) {
	svc, _ := newFixture()

	dl, err := svc.DownloadArtifact(context.Background(), "art_out", "user_a")
	require.NoError(t, err)

	assert.Equal(t, outputPDF, readBody(t, dl))
	assert.Equal(t, "application/pdf", dl.ContentType)
	assert.Equal(t, "Calc Week 1.pdf", dl.Filename)
}

func TestService_DownloadSourceArtifact(t *testing.T) {
	svc, _ := newFixture()

	dl, err := svc.DownloadArtifact(context.Background(), "art_src", "user_a")
	require.NoError(t, err)

	assert.Equal(t, []byte("jpeg"), readBody(t, dl))
	assert.Equal(t, "image/jpeg", dl.ContentType)
	assert.Equal(t, "page 1.jpg", dl.Filename)
}

func TestService_DownloadForeignOrMissingIsNotFound(t *testing.T) {
	svc, _ := newFixture()

	for _, tc := range []struct{ id, requester string }{
		{"art_out", "user_b"},
		{"art_missing", "user_a"},
		{"../etc/passwd", "user_a"},
	} {
		_, err := svc.DownloadArtifact(context.Background(), tc.id, tc.requester)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound), "%s as %s", tc.id, tc.requester)
	}

	_, err := svc.DownloadArtifact(context.Background(), "art_out", "")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))
}

func TestService_DownloadConversationOutput(t *testing.T) {
	svc, _ := newFixture()

	dl, err := svc.DownloadConversationOutput(context.Background(), "conv_a", "user_a")
	require.NoError(t, err)
	assert.Equal(t, "art_out", dl.Artifact.ID)
	assert.Equal(t, outputPDF, readBody(t, dl))

	_, err = svc.DownloadConversationOutput(context.Background(), "conv_old", "user_a")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = svc.DownloadConversationOutput(context.Background(), "conv_a", "user_b")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestService_GetConversationOwnership(t *testing.T) {
	svc, _ := newFixture()

	conv, err := svc.GetConversation(context.Background(), "conv_a", "user_a")
	require.NoError(t, err)
	assert.Equal(t, "conv_a", conv.ID)

	_, err = svc.GetConversation(context.Background(), "conv_a", "user_b")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestService_ListHistory(t *testing.T) {
	svc, convs := newFixture()

	page, err := svc.ListHistory(context.Background(), "user_a", 0, -4)
	require.NoError(t, err)

	assert.Equal(t, DefaultHistoryLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "conv_a", page.Items[0].ID)
	assert.Equal(t, 2, page.Items[0].InputFiles)
	assert.Equal(t, 1, page.Items[0].OutputFiles)
	assert.Equal(t, "pdf", page.Items[0].ProcessingInfo.FileType)
	assert.Equal(t, 0, page.Items[1].InputFiles)

	_, err = svc.ListHistory(context.Background(), "user_a", 500, 1)
	require.NoError(t, err)
	last := convs.filters[len(convs.filters)-1]
	assert.Equal(t, MaxHistoryLimit, last.Limit)
	assert.Equal(t, 1, last.Offset)

	empty, err := svc.ListHistory(context.Background(), "user_b", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestService_LatestReview(t *testing.T) {
	svc, _ := newFixture()

	conv, err := svc.LatestReview(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, "conv_a", conv.ID)

	_, err = svc.LatestReview(context.Background(), "user_b")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestDescribeDownload(t *testing.T) {
	tests := []struct {
		name     string
		conv     *conversation.Conversation
		art      *artifact.Artifact
		wantType string
		wantName string
	}{
		{
			name:     "untitled tex output",
			conv:     processedConversation("conv_1", "u", "", "tex", time.Now()),
			art:      &artifact.Artifact{Role: artifact.RoleDerived, Filename: "x.tex"},
			wantType: "text/plain",
			wantName: "document.tex",
		},
		{
			name:     "unknown output type",
			conv:     processedConversation("conv_1", "u", "Notes", "unknown", time.Now()),
			art:      &artifact.Artifact{Role: artifact.RoleDerived, Filename: "blob"},
			wantType: "application/octet-stream",
			wantName: "Notes",
		},
		{
			name:     "output type from filename",
			conv:     &conversation.Conversation{Title: "Notes"},
			art:      &artifact.Artifact{Role: artifact.RoleDerived, Filename: "result.pdf"},
			wantType: "application/pdf",
			wantName: "Notes.pdf",
		},
		{
			name:     "source without filename",
			conv:     &conversation.Conversation{Title: "a/b"},
			art:      &artifact.Artifact{Role: artifact.RoleSource},
			wantType: "application/octet-stream",
			wantName: "a_b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotName := describeDownload(tt.conv, tt.art)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantName, gotName)
		})
	}
}
