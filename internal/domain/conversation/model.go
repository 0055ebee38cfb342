package conversation

import (
	"fmt"
	"strings"
	"time"
)

// ===============================================
// Log Entry Types
// ===============================================

// EntryKind discriminates the variants stored in a conversation log.
type EntryKind string

const (
	EntryKindProcessingEvent EntryKind = "processing_event"
	EntryKindMessage         EntryKind = "message"
)

// Role identifies who authored a conversational message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one a message may carry.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Entry is one element of the append-only conversation log. Exactly one of
// Event or Message is set, matching Kind.
type Entry struct {
	ID        string           `json:"id"`
	Sequence  int              `json:"sequence"`
	Kind      EntryKind        `json:"kind"`
	Event     *ProcessingEvent `json:"event,omitempty"`
	Message   *Message         `json:"message,omitempty"`
	CreatedAt time.Time        `json:"timestamp"`
}

// ProcessingEvent summarises one completed scan pipeline run.
type ProcessingEvent struct {
	ImageCount          int              `json:"image_count"`
	OriginalTitle       string           `json:"original_title,omitempty"`
	FinalTitle          string           `json:"final_title"`
	RecommendedTitle    string           `json:"recommended_title,omitempty"`
	Category            string           `json:"category,omitempty"`
	Remarks             string           `json:"remarks,omitempty"`
	ProcessedTextLength int              `json:"processed_text_length"`
	ProcessingTime      string           `json:"processing_time,omitempty"`
	Output              OutputDescriptor `json:"output"`
}

// OutputDescriptor describes the derived file produced by the conversion service.
type OutputDescriptor struct {
	Filename string `json:"filename,omitempty"`
	FileType string `json:"file_type"`
}

// Message is a conversational turn.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment references an artifact shown alongside a message.
type Attachment struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
}

// Summary renders the entry as a single line of chat context.
func (e Entry) Summary() (Role, string) {
	switch e.Kind {
	case EntryKindMessage:
		if e.Message == nil {
			return RoleUser, ""
		}
		return e.Message.Role, e.Message.Content
	case EntryKindProcessingEvent:
		if e.Event == nil {
			return "system", ""
		}
		text := fmt.Sprintf("Processed %d page(s) into %q", e.Event.ImageCount, e.Event.FinalTitle)
		if e.Event.Category != "" {
			text += fmt.Sprintf(" (category %s)", e.Event.Category)
		}
		if e.Event.Output.Filename != "" {
			text += fmt.Sprintf(", output file %s", e.Event.Output.Filename)
		}
		return "system", text
	default:
		return "system", ""
	}
}

// ===============================================
// Conversation Structure
// ===============================================

// Conversation is one processing session or chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Section   string    `json:"section"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessibleBy is the single capability check every read and write path uses.
func (c *Conversation) AccessibleBy(requester string) bool {
	if c == nil {
		return false
	}
	requester = strings.TrimSpace(requester)
	return requester != "" && c.UserID == requester
}

// ProcessingEvent returns the first processing event of the log, if any.
func (c *Conversation) ProcessingEvent() *ProcessingEvent {
	if c == nil {
		return nil
	}
	for i := range c.Entries {
		if c.Entries[i].Kind == EntryKindProcessingEvent && c.Entries[i].Event != nil {
			return c.Entries[i].Event
		}
	}
	return nil
}

// RecentEntries returns at most n entries from the end of the log.
func (c *Conversation) RecentEntries(n int) []Entry {
	if c == nil || n <= 0 {
		return nil
	}
	if len(c.Entries) <= n {
		return c.Entries
	}
	return c.Entries[len(c.Entries)-n:]
}

// ===============================================
// Service Inputs / Outputs
// ===============================================

// CreateParams carries the metadata for a new conversation.
type CreateParams struct {
	Title   string
	Section string
	// Event, when set, becomes the first log entry in the same write.
	Event *ProcessingEvent
}

// MessageInput is a message submitted through the append endpoint.
type MessageInput struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Delivery reports whether the AI chat service produced the assistant reply.
type Delivery struct {
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// Reply is the outcome of RespondWithAI.
type Reply struct {
	Conversation *Conversation
	Delivery     Delivery
}

// HistoryFilter selects processed conversations for a user.
type HistoryFilter struct {
	UserID string
	Limit  int
	Offset int
}
