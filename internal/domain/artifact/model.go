package artifact

import (
	"strings"
	"time"
)

// Role distinguishes uploaded page images from the AI-produced output.
type Role string

const (
	RoleSource  Role = "source"
	RoleDerived Role = "derived"
)

// IsValid reports whether r is a known artifact role.
func (r Role) IsValid() bool {
	return r == RoleSource || r == RoleDerived
}

// Artifact is an immutable binary object tied to one conversation.
type Artifact struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Filename       string    `json:"filename,omitempty"`
	MimeType       string    `json:"mime_type"`
	Bytes          int64     `json:"bytes"`
	Sha256         string    `json:"sha256"`
	StorageKey     string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// AccessibleBy mirrors the conversation ownership check for artifacts.
func (a *Artifact) AccessibleBy(requester string) bool {
	if a == nil {
		return false
	}
	requester = strings.TrimSpace(requester)
	return requester != "" && a.UserID == requester
}

// NewObject is a payload waiting to be stored as an artifact.
type NewObject struct {
	UserID         string
	ConversationID string
	Role           Role
	Filename       string
	DeclaredType   string
	Data           []byte
}

// UploadParams is a single-file upload attached to an existing conversation.
type UploadParams struct {
	ConversationID string
	Role           Role
	Filename       string
	ContentType    string
	Data           []byte
}

// RoleCounts tallies artifacts per role for one conversation.
type RoleCounts struct {
	Source  int `json:"input_files"`
	Derived int `json:"output_files"`
}

var fileTypeContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"tex":  "text/plain",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ContentTypeForFileType maps a recorded output file type to a MIME type,
// defaulting to a generic binary type.
func ContentTypeForFileType(fileType string) string {
	if ct, ok := fileTypeContentTypes[strings.ToLower(strings.TrimSpace(fileType))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// FileTypeOf returns the lowercase extension of filename without the dot,
// or "unknown".
func FileTypeOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "unknown"
	}
	return strings.ToLower(filename[idx+1:])
}
