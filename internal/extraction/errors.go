package extraction

import "fmt"

// DocumentParseError represents an uploaded document that could not be read
type DocumentParseError struct {
	Format Format
	Cause  error
}

func (e *DocumentParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse %s document: %v", e.Format, e.Cause)
	}
	return fmt.Sprintf("failed to parse %s document", e.Format)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Cause
}

// UnsupportedFormatError represents an upload whose extension is neither .pdf nor .docx
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported resume format: %q (expected .pdf or .docx)", e.Filename)
}
