package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domain "focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/database"
	"focusnote/scan-api/internal/utils/platformerrors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newConversation(id, owner string, created time.Time, event *domain.ProcessingEvent) *domain.Conversation {
	conv := &domain.Conversation{
		ID:        id,
		UserID:    owner,
		Title:     "Notes " + id,
		Section:   "General",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if event != nil {
		conv.Entries = []domain.Entry{{
			ID:        "evt_" + id,
			Sequence:  1,
			Kind:      domain.EntryKindProcessingEvent,
			Event:     event,
			CreatedAt: created,
		}}
	}
	return conv
}

func message(id, content string) domain.Entry {
	return domain.Entry{
		ID:        id,
		Kind:      domain.EntryKindMessage,
		Message:   &domain.Message{Role: domain.RoleUser, Content: content},
		CreatedAt: time.Now().UTC(),
	}
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	event := &domain.ProcessingEvent{
		ImageCount: 2,
		FinalTitle: "Kinematics",
		Category:   "Physics",
		Output:     domain.OutputDescriptor{Filename: "out.pdf", FileType: "pdf"},
	}
	require.NoError(t, repo.Create(ctx, newConversation("conv_1", "user-1", time.Now().UTC(), event)))

	got, err := repo.FindByID(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, domain.EntryKindProcessingEvent, got.Entries[0].Kind)
	require.NotNil(t, got.Entries[0].Event)
	assert.Equal(t, "pdf", got.Entries[0].Event.Output.FileType)
	assert.Equal(t, 2, got.Entries[0].Event.ImageCount)
	assert.Nil(t, got.Entries[0].Message)
}

func TestRepository_FindMissing(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), "conv_missing")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRepository_AppendEntriesAssignsSequence(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newConversation("conv_1", "user-1", time.Now().UTC(), nil)))

	updated, err := repo.AppendEntries(ctx, "conv_1", []domain.Entry{message("msg_a", "hello")})
	require.NoError(t, err)
	require.Len(t, updated.Entries, 1)
	assert.Equal(t, 1, updated.Entries[0].Sequence)
	assert.Equal(t, "hello", updated.Entries[0].Message.Content)

	updated, err = repo.AppendEntries(ctx, "conv_1", []domain.Entry{message("msg_b", "second"), message("msg_c", "third")})
	require.NoError(t, err)
	require.Len(t, updated.Entries, 3)
	for i, entry := range updated.Entries {
		assert.Equal(t, i+1, entry.Sequence)
	}
	assert.Equal(t, "third", updated.Entries[2].Message.Content)
}

func TestRepository_AppendEntriesMissingConversation(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.AppendEntries(context.Background(), "conv_missing", []domain.Entry{message("msg_a", "hi")})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRepository_ConcurrentAppendsKeepEveryEntry(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newConversation("conv_1", "user-1", time.Now().UTC(), nil)))

	const writers = 16
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		id := fmt.Sprintf("msg_%02d", i)
		g.Go(func() error {
			_, err := repo.AppendEntries(ctx, "conv_1", []domain.Entry{message(id, id)})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := repo.FindByID(ctx, "conv_1")
	require.NoError(t, err)
	require.Len(t, got.Entries, writers)

	seen := map[string]bool{}
	for i, entry := range got.Entries {
		assert.Equal(t, i+1, entry.Sequence)
		assert.False(t, seen[entry.ID], "duplicate id %s", entry.ID)
		seen[entry.ID] = true
	}
}

func TestRepository_ListProcessed(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.ProcessingEvent{ImageCount: 1, FinalTitle: "t", Output: domain.OutputDescriptor{FileType: "pdf"}}

	require.NoError(t, repo.Create(ctx, newConversation("conv_old", "user-1", base, event)))
	require.NoError(t, repo.Create(ctx, newConversation("conv_new", "user-1", base.Add(time.Hour), event)))
	require.NoError(t, repo.Create(ctx, newConversation("conv_chat", "user-1", base.Add(2*time.Hour), nil)))
	require.NoError(t, repo.Create(ctx, newConversation("conv_other", "user-2", base.Add(3*time.Hour), event)))

	got, err := repo.ListProcessed(ctx, domain.HistoryFilter{UserID: "user-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "conv_new", got[0].ID)
	assert.Equal(t, "conv_old", got[1].ID)
	assert.NotNil(t, got[0].ProcessingEvent())

	page, err := repo.ListProcessed(ctx, domain.HistoryFilter{UserID: "user-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "conv_old", page[0].ID)
}
