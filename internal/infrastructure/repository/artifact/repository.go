package artifact

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "focusnote/scan-api/internal/domain/artifact"
	"focusnote/scan-api/internal/infrastructure/database/entities"
	"focusnote/scan-api/internal/utils/platformerrors"
)

// Repository handles artifact metadata persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BulkCreate inserts the rows in input order.
func (r *Repository) BulkCreate(ctx context.Context, artifacts []*domain.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	rows := make([]entities.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, *entities.NewSchemaArtifact(a))
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create artifacts",
			err,
			"artifact-repo-create",
		)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Artifact, error) {
	var entity entities.Artifact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		return nil, notFoundOr(ctx, err, fmt.Sprintf("artifact not found: %s", id))
	}
	return entity.EtoD(), nil
}

// FindLatestByConversation returns the newest artifact of the given role.
func (r *Repository) FindLatestByConversation(ctx context.Context, conversationID string, role domain.Role) (*domain.Artifact, error) {
	var entity entities.Artifact
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND role = ?", conversationID, string(role)).
		Order("created_at DESC").
		Order("id DESC").
		First(&entity).Error
	if err != nil {
		return nil, notFoundOr(ctx, err, fmt.Sprintf("no %s artifact for conversation: %s", role, conversationID))
	}
	return entity.EtoD(), nil
}

type roleCount struct {
	ConversationID string
	Role           string
	Total          int
}

// CountByConversations tallies artifacts per role for each conversation id.
// Conversations without artifacts are absent from the result.
func (r *Repository) CountByConversations(ctx context.Context, conversationIDs []string) (map[string]domain.RoleCounts, error) {
	counts := make(map[string]domain.RoleCounts, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	var rows []roleCount
	if err := r.db.WithContext(ctx).
		Model(&entities.Artifact{}).
		Select("conversation_id, role, COUNT(*) AS total").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id, role").
		Scan(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count artifacts",
			err,
			"artifact-repo-count",
		)
	}

	for _, row := range rows {
		c := counts[row.ConversationID]
		switch domain.Role(row.Role) {
		case domain.RoleSource:
			c.Source += row.Total
		case domain.RoleDerived:
			c.Derived += row.Total
		}
		counts[row.ConversationID] = c
	}
	return counts, nil
}

func notFoundOr(ctx context.Context, err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			message,
			nil,
			"artifact-repo-not-found",
		)
	}
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		"failed to fetch artifact",
		err,
		"artifact-repo-fetch",
	)
}
