// Package extraction turns an uploaded resume or manually entered fields into plain text.
package extraction

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported upload format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ManualFields are the resume sections a user can type in directly.
type ManualFields struct {
	Summary    string `json:"summary"`
	Skills     string `json:"skills"`
	Experience string `json:"experience"`
}

// FormatFromFilename returns the upload format implied by the file extension.
func FormatFromFilename(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", &UnsupportedFormatError{Filename: filename}
	}
}

// FromUpload extracts text from an uploaded file, dispatching on its extension.
func FromUpload(filename string, data []byte) (string, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatPDF:
		return FromPDF(data)
	case FormatDOCX:
		return FromDOCX(data)
	default:
		return "", &UnsupportedFormatError{Filename: filename}
	}
}

// FromManual lays the manual fields out in the fixed three-section format.
// Field contents are not validated.
func FromManual(fields ManualFields) string {
	return fmt.Sprintf("Professional Summary:\n%s\n\nSkills:\n%s\n\nExperience:\n%s",
		fields.Summary, fields.Skills, fields.Experience)
}
