// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"mime"
	"path/filepath"
	"strings"

	"cvforge/internal/errors"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedFormat is returned for any MIME type other than PDF or DOCX.
var ErrUnsupportedFormat = errors.NewValidationError(errors.ErrCodeUnsupportedFormat, "unsupported document format", nil)

// Extract returns the text of a PDF or DOCX document. Empty text from a
// supported document is a success; an unsupported type never is.
func Extract(data []byte, mimeType string) (string, error) {
	switch normalizeMIME(mimeType) {
	case MIMEPDF:
		return extractPDF(data)
	case MIMEDOCX:
		return extractDOCX(data)
	}
	return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
		"unsupported document format", nil).WithContext("mime_type", mimeType)
}

// DetectMIME maps a file name to the MIME type Extract understands, or ""
// when the extension is not supported.
func DetectMIME(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	}
	return ""
}

// Supported reports whether mimeType can be extracted.
func Supported(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case MIMEPDF, MIMEDOCX:
		return true
	}
	return false
}

func normalizeMIME(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

func extractionFailed(format string, cause error) error {
	return errors.NewIOError(errors.ErrCodeExtractionFailed, "cannot read "+format+" document", cause).
		WithContext("format", format)
}
