package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"focusnote/scan-api/internal/domain/conversation"
)

// Conversation represents the database schema for conversations
type Conversation struct {
	ID        string    `gorm:"type:varchar(50);primaryKey"`
	UserID    string    `gorm:"type:varchar(128);not null;index:idx_conversation_user_processed,priority:1"`
	Title     string    `gorm:"type:varchar(256)"`
	Section   string    `gorm:"type:varchar(100)"`
	Processed bool      `gorm:"not null;default:false;index:idx_conversation_user_processed,priority:2"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Entries   []ConversationEntry `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	Artifacts []Artifact          `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationEntry is one row of the append-only log. (conversation_id,
// sequence) is unique so two writers can never claim the same slot.
type ConversationEntry struct {
	ID             string         `gorm:"type:varchar(64);primaryKey"`
	ConversationID string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_conversation_entry_sequence,priority:1"`
	Sequence       int            `gorm:"not null;uniqueIndex:idx_conversation_entry_sequence,priority:2"`
	Kind           string         `gorm:"type:varchar(32);not null"`
	Payload        datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
}

// TableName specifies the table name for ConversationEntry.
func (ConversationEntry) TableName() string {
	return "conversation_entries"
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() (*conversation.Conversation, error) {
	entries := make([]conversation.Entry, 0, len(c.Entries))
	for i := range c.Entries {
		entry, err := c.Entries[i].EtoD()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &conversation.Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Section:   c.Section,
		Entries:   entries,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// NewSchemaConversation creates a database entity from domain model
func NewSchemaConversation(c *conversation.Conversation) (*Conversation, error) {
	entity := &Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Section:   c.Section,
		Processed: c.ProcessingEvent() != nil,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, entry := range c.Entries {
		row, err := NewSchemaConversationEntry(c.ID, entry)
		if err != nil {
			return nil, err
		}
		entity.Entries = append(entity.Entries, *row)
	}
	return entity, nil
}

// EtoD decodes the payload into the variant named by Kind.
func (e *ConversationEntry) EtoD() (conversation.Entry, error) {
	entry := conversation.Entry{
		ID:        e.ID,
		Sequence:  e.Sequence,
		Kind:      conversation.EntryKind(e.Kind),
		CreatedAt: e.CreatedAt,
	}
	switch entry.Kind {
	case conversation.EntryKindProcessingEvent:
		var event conversation.ProcessingEvent
		if err := json.Unmarshal(e.Payload, &event); err != nil {
			return entry, fmt.Errorf("decode processing event %s: %w", e.ID, err)
		}
		entry.Event = &event
	case conversation.EntryKindMessage:
		var msg conversation.Message
		if err := json.Unmarshal(e.Payload, &msg); err != nil {
			return entry, fmt.Errorf("decode message %s: %w", e.ID, err)
		}
		entry.Message = &msg
	default:
		return entry, fmt.Errorf("unknown entry kind %q for %s", e.Kind, e.ID)
	}
	return entry, nil
}

// NewSchemaConversationEntry encodes the set variant of entry as the payload.
func NewSchemaConversationEntry(conversationID string, entry conversation.Entry) (*ConversationEntry, error) {
	var (
		payload []byte
		err     error
	)
	switch entry.Kind {
	case conversation.EntryKindProcessingEvent:
		if entry.Event == nil {
			return nil, fmt.Errorf("entry %s: processing event is nil", entry.ID)
		}
		payload, err = json.Marshal(entry.Event)
	case conversation.EntryKindMessage:
		if entry.Message == nil {
			return nil, fmt.Errorf("entry %s: message is nil", entry.ID)
		}
		payload, err = json.Marshal(entry.Message)
	default:
		return nil, fmt.Errorf("entry %s: unknown kind %q", entry.ID, entry.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &ConversationEntry{
		ID:             entry.ID,
		ConversationID: conversationID,
		Sequence:       entry.Sequence,
		Kind:           string(entry.Kind),
		Payload:        datatypes.JSON(payload),
		CreatedAt:      entry.CreatedAt,
	}, nil
}
