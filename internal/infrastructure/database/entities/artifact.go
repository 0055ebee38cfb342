package entities

import (
	"time"

	"focusnote/scan-api/internal/domain/artifact"
)

// Artifact represents the metadata row of a stored artifact payload.
type Artifact struct {
	ID             string    `gorm:"type:varchar(50);primaryKey"`
	UserID         string    `gorm:"type:varchar(128);not null;index"`
	ConversationID string    `gorm:"type:varchar(50);not null;index:idx_artifact_conversation_role,priority:1"`
	Role           string    `gorm:"type:varchar(16);not null;index:idx_artifact_conversation_role,priority:2"`
	Filename       string    `gorm:"type:varchar(512)"`
	MimeType       string    `gorm:"type:varchar(128);not null"`
	Bytes          int64     `gorm:"not null"`
	Sha256         string    `gorm:"type:char(64);not null"`
	StorageKey     string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for Artifact.
func (Artifact) TableName() string {
	return "artifacts"
}

// EtoD converts database entity to domain model
func (a *Artifact) EtoD() *artifact.Artifact {
	return &artifact.Artifact{
		ID:             a.ID,
		UserID:         a.UserID,
		ConversationID: a.ConversationID,
		Role:           artifact.Role(a.Role),
		Filename:       a.Filename,
		MimeType:       a.MimeType,
		Bytes:          a.Bytes,
		Sha256:         a.Sha256,
		StorageKey:     a.StorageKey,
		CreatedAt:      a.CreatedAt,
	}
}

// NewSchemaArtifact creates a database entity from domain model
func NewSchemaArtifact(a *artifact.Artifact) *Artifact {
	return &Artifact{
		ID:             a.ID,
		UserID:         a.UserID,
		ConversationID: a.ConversationID,
		Role:           string(a.Role),
		Filename:       a.Filename,
		MimeType:       a.MimeType,
		Bytes:          a.Bytes,
		Sha256:         a.Sha256,
		StorageKey:     a.StorageKey,
		CreatedAt:      a.CreatedAt,
	}
}
