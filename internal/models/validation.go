package models

// IssueKind identifies a single image quality problem.
type IssueKind string

const (
	IssueUnreadable       IssueKind = "unreadable"
	IssueResolutionTooLow IssueKind = "resolution-too-low"
	IssueTooDark          IssueKind = "too-dark"
	IssueLowContrast      IssueKind = "low-contrast"
	IssueBlurry           IssueKind = "blurry"
	IssueFileTooLarge     IssueKind = "file-too-large"
	IssueFileTooSmall     IssueKind = "file-too-small"
)

// ValidationIssue is a quality problem with a remediation hint.
type ValidationIssue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// ValidationResult reports every quality gate an image failed.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// ValidationConstraints configures the image quality gates. Brightness
// is mean luminance on a 0-255 scale, contrast is luminance standard
// deviation on the same scale, and sharpness is the fraction of pixels
// sitting on a strong luminance edge.
type ValidationConstraints struct {
	MinWidth         int     `json:"min_width"`
	MinHeight        int     `json:"min_height"`
	MinFileSizeBytes int64   `json:"min_file_size_bytes"`
	MaxFileSizeBytes int64   `json:"max_file_size_bytes"`
	MinBrightness    float64 `json:"min_brightness"`
	MinContrast      float64 `json:"min_contrast"`
	MinSharpness     float64 `json:"min_sharpness"`
}

// DefaultConstraints returns limits tuned for phone photos of receipts.
func DefaultConstraints() ValidationConstraints {
	return ValidationConstraints{
		MinWidth:         300,
		MinHeight:        300,
		MinFileSizeBytes: 10 * 1024,
		MaxFileSizeBytes: 20 * 1024 * 1024,
		MinBrightness:    40,
		MinContrast:      20,
		MinSharpness:     0.02,
	}
}
