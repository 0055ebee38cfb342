package conversation

import "context"

// Repository persists conversations and their append-only log.
type Repository interface {
	// Create inserts the conversation together with any entries it already carries.
	Create(ctx context.Context, conv *Conversation) error
	FindByID(ctx context.Context, id string) (*Conversation, error)
	// AppendEntries atomically assigns the next sequence numbers to entries and
	// stores them; concurrent callers on the same conversation are serialized.
	AppendEntries(ctx context.Context, conversationID string, entries []Entry) (*Conversation, error)
	// ListProcessed returns the user's conversations containing a processing
	// event, newest first, with their log loaded.
	ListProcessed(ctx context.Context, filter HistoryFilter) ([]*Conversation, error)
}

// ChatMessage is one item of the context window sent to the chat service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload for a chat completion.
type ChatRequest struct {
	Message string
	Context []ChatMessage
	UserID  string
}

// ChatCompleter produces an assistant reply for a user message.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
