package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"focusnote/scan-api/internal/utils/platformerrors"
)

// Validator checks a submission before anything leaves the process.
type Validator struct {
	maxFiles     int
	maxFileBytes int64
	validate     *validator.Validate
}

// NewValidator returns a Validator enforcing the given ceilings.
func NewValidator(maxFiles int, maxFileBytes int64) *Validator {
	return &Validator{
		maxFiles:     maxFiles,
		maxFileBytes: maxFileBytes,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate rejects empty, oversized or non-image submissions and metadata
// that breaks the field limits.
func (v *Validator) Validate(ctx context.Context, req SubmitRequest) error {
	if len(req.Images) == 0 {
		return invalid(ctx, "at least one image is required")
	}
	if len(req.Images) > v.maxFiles {
		return invalid(ctx, fmt.Sprintf("too many images: %d supplied, at most %d allowed", len(req.Images), v.maxFiles))
	}

	for i, img := range req.Images {
		name := img.Filename
		if name == "" {
			name = fmt.Sprintf("image %d", i+1)
		}
		size := img.Size
		if size == 0 {
			size = int64(len(img.Data))
		}
		if size == 0 {
			return invalid(ctx, fmt.Sprintf("%s is empty", name))
		}
		if size > v.maxFileBytes {
			return invalid(ctx, fmt.Sprintf("%s exceeds the %d byte limit", name, v.maxFileBytes))
		}
		if !isImageType(img.ContentType) {
			return invalid(ctx, fmt.Sprintf("%s has content type %q, only images are accepted", name, img.ContentType))
		}
	}

	if err := v.validate.Struct(req.Metadata); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return invalid(ctx, fmt.Sprintf("%s must be at most %s characters", strings.ToLower(fe.Field()), fe.Param()))
		}
		return invalid(ctx, err.Error())
	}
	return nil
}

func isImageType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return strings.HasPrefix(ct, "image/") && len(ct) > len("image/")
}

func invalid(ctx context.Context, reason string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		reason, nil, "scan-invalid-input")
}
