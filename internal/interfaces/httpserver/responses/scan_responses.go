package responses

import (
	"focusnote/scan-api/internal/domain/conversation"
	"focusnote/scan-api/internal/domain/scan"
)

// ProcessingResults groups the conversion details of a scan.
type ProcessingResults struct {
	ImageCount          int    `json:"image_count"`
	ProcessedTextLength int    `json:"processed_text_length"`
	FileType            string `json:"file_type"`
	ProcessingTime      string `json:"processing_time"`
}

// ScanResponse is returned by POST /v1/scans.
type ScanResponse struct {
	ConversationID    string            `json:"conversation_id"`
	Title             string            `json:"title"`
	Section           string            `json:"section"`
	InputArtifactIDs  []string          `json:"input_artifact_ids"`
	OutputArtifactID  string            `json:"output_artifact_id"`
	RecommendedTitle  string            `json:"recommended_title,omitempty"`
	ProcessingResults ProcessingResults `json:"processing_results"`
}

// NewScanResponse flattens a pipeline result for the client.
func NewScanResponse(result *scan.SubmitResult, images int) ScanResponse {
	return ScanResponse{
		ConversationID:   result.ConversationID,
		Title:            result.Title,
		Section:          result.Section,
		InputArtifactIDs: result.InputArtifactIDs,
		OutputArtifactID: result.OutputArtifactID,
		RecommendedTitle: result.RecommendedTitle,
		ProcessingResults: ProcessingResults{
			ImageCount:          images,
			ProcessedTextLength: result.ProcessedTextLength,
			FileType:            result.FileType,
			ProcessingTime:      result.ProcessingTime,
		},
	}
}

// AIResponse is returned by POST /v1/conversations/:id/ai-response.
type AIResponse struct {
	Conversation *conversation.Conversation `json:"conversation"`
	Reply        *conversation.Entry        `json:"reply,omitempty"`
	Delivery     conversation.Delivery      `json:"delivery"`
}

// NewAIResponse exposes the appended assistant turn next to the full log.
func NewAIResponse(reply *conversation.Reply) AIResponse {
	resp := AIResponse{Conversation: reply.Conversation, Delivery: reply.Delivery}
	if conv := reply.Conversation; conv != nil && len(conv.Entries) > 0 {
		last := conv.Entries[len(conv.Entries)-1]
		resp.Reply = &last
	}
	return resp
}
