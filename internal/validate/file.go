package validate

import (
	"errors"
	"fmt"
	"strings"
)

// File validation errors
var (
	ErrInvalidMIMEType = errors.New("invalid MIME type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileEmpty       = errors.New("file is empty")
)

// Resume document MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOC  = "application/msword"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ResumeTypes maps accepted resume MIME types to their file extension.
var ResumeTypes = map[string]string{
	MIMEPDF:  ".pdf",
	MIMEDOC:  ".doc",
	MIMEDOCX: ".docx",
}

// ResumeFile validates a resume upload's declared type and size and
// returns the normalized MIME type with its extension.
func ResumeFile(mimeType string, sizeBytes, maxBytes int64) (string, string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	// Drop parameters such as "; charset=binary".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	ext, ok := ResumeTypes[mimeType]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidMIMEType, mimeType)
	}
	if sizeBytes <= 0 {
		return "", "", ErrFileEmpty
	}
	if maxBytes > 0 && sizeBytes > maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes, maximum is %d", ErrFileTooLarge, sizeBytes, maxBytes)
	}
	return mimeType, ext, nil
}
