package pipeline

import "fmt"

// ErrorType categorizes pipeline failures so callers can tell fatal
// configuration and document problems apart from page-local ones.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeConfig
	ErrorTypeDocument
	ErrorTypePageRead
	ErrorTypeDetectionTimeout
	ErrorTypeArtifactWrite
)

// String returns the wire name of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeDocument:
		return "DOCUMENT"
	case ErrorTypePageRead:
		return "PAGE_READ"
	case ErrorTypeDetectionTimeout:
		return "DETECTION_TIMEOUT"
	case ErrorTypeArtifactWrite:
		return "ARTIFACT_WRITE"
	default:
		return "UNKNOWN"
	}
}

// ProcessError is the pipeline's error with enough context to decide
// whether processing can continue.
type ProcessError struct {
	Type ErrorType `json:"type"`
	Path string    `json:"path,omitempty"`
	Page int       `json:"page,omitempty"`
	Err  error     `json:"-"`
}

func (e *ProcessError) Error() string {
	switch {
	case e.Page > 0 && e.Err != nil:
		return fmt.Sprintf("[%s] page %d: %v", e.Type, e.Page, e.Err)
	case e.Page > 0:
		return fmt.Sprintf("[%s] page %d", e.Type, e.Page)
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("[%s]", e.Type)
	}
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Fatal reports whether the error ends document processing. Page-local
// failures are tolerated: the page is reported and skipped.
func (e *ProcessError) Fatal() bool {
	return e.Type == ErrorTypeConfig || e.Type == ErrorTypeDocument
}

// NewConfigError wraps an invalid configuration.
func NewConfigError(err error) *ProcessError {
	return &ProcessError{Type: ErrorTypeConfig, Err: err}
}

// NewDocumentError wraps a document-level failure.
func NewDocumentError(path string, err error) *ProcessError {
	return &ProcessError{Type: ErrorTypeDocument, Path: path, Err: err}
}

// NewPageReadError wraps a failure loading one page.
func NewPageReadError(page int, err error) *ProcessError {
	return &ProcessError{Type: ErrorTypePageRead, Page: page, Err: err}
}

// NewDetectionTimeoutError marks a page whose visual detection ran out
// of time; caption results for the page are still used.
func NewDetectionTimeoutError(page int) *ProcessError {
	return &ProcessError{Type: ErrorTypeDetectionTimeout, Page: page}
}

// NewArtifactError wraps a failure writing an output artifact.
func NewArtifactError(path string, err error) *ProcessError {
	return &ProcessError{Type: ErrorTypeArtifactWrite, Path: path, Err: err}
}
