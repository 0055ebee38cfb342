package converter

import (
	"context"
	"fmt"

	"focusnote/scan-api/internal/utils/platformerrors"
)

const maxErrorBody = 2048

// UpstreamError describes a failed call to the conversion or chat service.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Body != "":
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream call failed"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// external wraps an UpstreamError as the EXTERNAL platform error the
// handlers map to 502.
func external(ctx context.Context, message string, upstream *UpstreamError) error {
	fields := map[string]any{"operation": upstream.Op}
	if upstream.StatusCode > 0 {
		fields["upstream_status"] = upstream.StatusCode
	}
	if upstream.Body != "" {
		fields["upstream_body"] = upstream.Body
	}
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
		message, upstream, "converter-"+upstream.Op+"-failed", fields)
}

func truncate(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody] + "..."
}
