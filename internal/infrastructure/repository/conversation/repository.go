package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/infrastructure/database/entities"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// Repository persists conversations and their log entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record and any entries it carries in one
// statement batch.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity, err := entities.NewSchemaConversation(conv)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode conversation", err, "conv-repo-encode")
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"conv-repo-create",
		)
	}
	return nil
}

// FindByID fetches a conversation with its ordered log.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.load(ctx, r.db.WithContext(ctx), id)
}

// AppendEntries locks the conversation row, numbers entries after the current
// tail and inserts them, all inside one transaction. The returned
// conversation is read back inside the same transaction.
func (r *Repository) AppendEntries(ctx context.Context, conversationID string, entries []domain.Entry) (*domain.Conversation, error) {
	if len(entries) == 0 {
		return r.FindByID(ctx, conversationID)
	}

	var updated *domain.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked entities.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", conversationID).
			First(&locked).Error; err != nil {
			return notFoundOr(ctx, err, conversationID, "failed to lock conversation")
		}

		var tail int
		if err := tx.Model(&entities.ConversationEntry{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&tail).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
				"failed to read log tail", err, "conv-repo-tail")
		}

		rows := make([]entities.ConversationEntry, 0, len(entries))
		processed := locked.Processed
		for i, entry := range entries {
			entry.Sequence = tail + i + 1
			row, err := entities.NewSchemaConversationEntry(conversationID, entry)
			if err != nil {
				return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
					"failed to encode log entry", err, "conv-repo-encode-entry")
			}
			rows = append(rows, *row)
			if entry.Kind == domain.EntryKindProcessingEvent {
				processed = true
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
				"failed to append log entries", err, "conv-repo-append")
		}

		if err := tx.Model(&entities.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]any{"updated_at": time.Now().UTC(), "processed": processed}).Error; err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
				"failed to touch conversation", err, "conv-repo-touch")
		}

		conv, err := r.load(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		updated = conv
		return nil
	})
	if err != nil {
		var platformErr *platformerrors.PlatformError
		if errors.As(err, &platformErr) {
			return nil, platformErr
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"append transaction failed", err, "conv-repo-append-tx")
	}
	return updated, nil
}

// ListProcessed returns the user's processed conversations, newest first.
func (r *Repository) ListProcessed(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Conversation, error) {
	query := r.db.WithContext(ctx).
		Preload("Entries", orderedEntries).
		Where("user_id = ? AND processed = ?", filter.UserID, true).
		Order("created_at DESC").
		Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []entities.Conversation
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations", err, "conv-repo-list")
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		conv, err := rows[i].EtoD()
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"failed to decode conversation", err, "conv-repo-decode")
		}
		out = append(out, conv)
	}
	return out, nil
}

func (r *Repository) load(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := db.Preload("Entries", orderedEntries).
		Where("id = ?", id).
		First(&entity).Error; err != nil {
		return nil, notFoundOr(ctx, err, id, "failed to fetch conversation")
	}

	conv, err := entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode conversation", err, "conv-repo-decode")
	}
	return conv, nil
}

func orderedEntries(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func notFoundOr(ctx context.Context, err error, id string, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %s", id),
			nil,
			"conv-repo-not-found",
		)
	}
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		message,
		err,
		"conv-repo-fetch",
	)
}
