package scan

import (
	"context"
	"os"
	"regexp"
)

// Image is one uploaded page photo.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Metadata is the free-form information supplied alongside the pages.
type Metadata struct {
	Title    string `json:"title,omitempty" validate:"max=256"`
	Category string `json:"category,omitempty" validate:"max=100"`
	Section  string `json:"section,omitempty" validate:"max=100"`
	Remarks  string `json:"remarks,omitempty" validate:"max=2000"`
}

// SubmitRequest is a scan submission as received from the client.
type SubmitRequest struct {
	Images   []Image
	Metadata Metadata
}

// ConversionResult is the conversion service's answer to a submission.
type ConversionResult struct {
	RecommendedTitle string `json:"recommended_title"`
	DownloadURL      string `json:"download_url"`
	Filename         string `json:"filename"`
	ProcessedText    string `json:"processed_text"`
	Message          string `json:"message"`
}

var processingTimePattern = regexp.MustCompile(`(\d+\.\d+) seconds`)

// ProcessingTime extracts the duration the conversion service reports in its
// status message, or "unknown".
func (r *ConversionResult) ProcessingTime() string {
	if r == nil {
		return "unknown"
	}
	if m := processingTimePattern.FindStringSubmatch(r.Message); len(m) == 2 {
		return m[1]
	}
	return "unknown"
}

// FetchedArtifact is a downloaded output file spooled to local disk. The
// caller owns the file and must call Cleanup.
type FetchedArtifact struct {
	Path   string
	Size   int64
	Sha256 string
}

// Bytes reads the spooled payload.
func (f *FetchedArtifact) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Cleanup removes the spooled file. Removing an already removed file is not
// an error.
func (f *FetchedArtifact) Cleanup() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Converter is the external OCR/AI conversion service.
type Converter interface {
	Submit(ctx context.Context, images []Image, metadata Metadata) (*ConversionResult, error)
	FetchArtifact(ctx context.Context, locator string) (*FetchedArtifact, error)
	ReleaseRemote(ctx context.Context, name string) error
}

// SubmitResult is returned to the caller of a successful scan.
type SubmitResult struct {
	ConversationID      string   `json:"conversation_id"`
	Title               string   `json:"title"`
	Section             string   `json:"section"`
	InputArtifactIDs    []string `json:"input_artifact_ids"`
	OutputArtifactID    string   `json:"output_artifact_id"`
	RecommendedTitle    string   `json:"recommended_title,omitempty"`
	ProcessedTextLength int      `json:"processed_text_length"`
	FileType            string   `json:"file_type"`
	ProcessingTime      string   `json:"processing_time"`
}
