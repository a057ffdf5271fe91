package rendering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// HTMLFilename is the cleaned HTML artifact, overwritten on every render
	HTMLFilename = "enhanced_resume_cleaned.html"
	// PDFFilename is the PDF artifact, also the download filename
	PDFFilename = "enhanced_resume.pdf"
)

// Output is the result of rendering one enhanced resume
type Output struct {
	HTML     string
	HTMLPath string
	PDFPath  string
	PDF      []byte
}

// Renderer writes the HTML and PDF artifacts to fixed paths in one directory.
// Renders are serialized because every render targets the same two files.
type Renderer struct {
	outputDir string
	converter Converter
	mu        sync.Mutex
}

// NewRenderer creates a new Renderer writing into outputDir
func NewRenderer(outputDir string, converter Converter) *Renderer {
	if outputDir == "" {
		outputDir = "."
	}
	return &Renderer{outputDir: outputDir, converter: converter}
}

// OutputDir returns the directory the artifacts are written to
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// Render builds the cleaned HTML for text, persists it, converts it to PDF
// and returns the PDF bytes. No PDF is returned if conversion fails.
func (r *Renderer) Render(ctx context.Context, text string) (*Output, error) {
	raw, err := RenderHTML(text)
	if err != nil {
		return nil, err
	}
	cleaned, err := CleanHTML(raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return nil, &RenderError{Message: fmt.Sprintf("failed to create output directory: %s", r.outputDir), Cause: err}
	}

	htmlPath := filepath.Join(r.outputDir, HTMLFilename)
	pdfPath := filepath.Join(r.outputDir, PDFFilename)

	if err := os.WriteFile(htmlPath, []byte(cleaned), 0644); err != nil {
		return nil, &RenderError{Message: fmt.Sprintf("failed to write HTML: %s", htmlPath), Cause: err}
	}

	// A PDF left over from an earlier render must not be mistaken for this one.
	if err := os.Remove(pdfPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &RenderError{Message: fmt.Sprintf("failed to remove stale PDF: %s", pdfPath), Cause: err}
	}

	if err := r.converter.Convert(ctx, htmlPath, pdfPath); err != nil {
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}
		return nil, &RenderError{Message: "PDF conversion failed", Cause: err}
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, &RenderError{Message: fmt.Sprintf("failed to read PDF: %s", pdfPath), Cause: err}
	}

	return &Output{
		HTML:     cleaned,
		HTMLPath: htmlPath,
		PDFPath:  pdfPath,
		PDF:      pdf,
	}, nil
}
