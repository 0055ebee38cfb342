package artifact

import (
	"context"
	"io"
)

// Repository persists artifact metadata.
type Repository interface {
	BulkCreate(ctx context.Context, artifacts []*Artifact) error
	FindByID(ctx context.Context, id string) (*Artifact, error)
	FindLatestByConversation(ctx context.Context, conversationID string, role Role) (*Artifact, error)
	CountByConversations(ctx context.Context, conversationIDs []string) (map[string]RoleCounts, error)
}

// Storage holds artifact payload bytes.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}
