package services

import (
	"errors"
	"fmt"

	"github.com/shelfwise/receiptscan/internal/models"
)

// Pipeline error taxonomy. Callers match with errors.Is, or errors.As
// for ValidationFailedError. Degraded parsing is never an error; it is
// reported through a low confidence score and recommendations.
var (
	// ErrInvalidImage means the input bytes could not be decoded as an image.
	ErrInvalidImage = errors.New("image could not be decoded")

	// ErrOcrFailure means the recognition engine failed or produced no text.
	ErrOcrFailure = errors.New("text recognition failed")

	// ErrOcrTimeout means recognition exceeded the caller's deadline.
	ErrOcrTimeout = errors.New("text recognition timed out")
)

// ValidationFailedError reports every quality gate an image failed. The
// caller decides whether to reject the upload or retry without
// validation.
type ValidationFailedError struct {
	Issues []models.ValidationIssue
}

func (e *ValidationFailedError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("image failed validation: %s", e.Issues[0].Kind)
	}
	return fmt.Sprintf("image failed validation with %d issues", len(e.Issues))
}
