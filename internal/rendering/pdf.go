package rendering

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	// EngineChrome converts with headless Chrome through the DevTools protocol
	EngineChrome = "chrome"
	// EngineWkhtmltopdf converts with the wkhtmltopdf binary
	EngineWkhtmltopdf = "wkhtmltopdf"

	// DefaultConversionTimeout bounds a single HTML to PDF conversion
	DefaultConversionTimeout = 60 * time.Second
)

// Converter turns an HTML file on disk into a PDF file on disk.
type Converter interface {
	Convert(ctx context.Context, htmlPath, pdfPath string) error
}

// NewConverter returns the converter for engine. execPath optionally points
// at the browser or wkhtmltopdf binary.
func NewConverter(engine, execPath string, timeout time.Duration) (Converter, error) {
	switch strings.ToLower(engine) {
	case "", EngineChrome:
		return &ChromeConverter{ExecPath: execPath, Timeout: timeout}, nil
	case EngineWkhtmltopdf:
		return &WkhtmltopdfConverter{BinaryPath: execPath, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported PDF engine: %q (expected %q or %q)", engine, EngineChrome, EngineWkhtmltopdf)
	}
}

// ChromeConverter prints HTML to PDF in a headless Chrome instance.
// Requires Chrome/Chromium to be installed on the system.
type ChromeConverter struct {
	ExecPath string
	Timeout  time.Duration
}

// Convert loads htmlPath in a fresh browser and writes the printed PDF to pdfPath.
func (c *ChromeConverter) Convert(ctx context.Context, htmlPath, pdfPath string) error {
	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		return &RenderError{Message: "failed to resolve HTML path", Cause: err}
	}
	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeoutOrDefault(c.Timeout))
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return &RenderError{Message: "headless chrome conversion failed", Cause: err}
	}

	if err := os.WriteFile(pdfPath, pdf, 0644); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to write PDF: %s", pdfPath), Cause: err}
	}
	return nil
}

// WkhtmltopdfConverter shells out to wkhtmltopdf.
type WkhtmltopdfConverter struct {
	BinaryPath string
	Timeout    time.Duration
}

// Convert runs wkhtmltopdf on htmlPath. A missing binary, a non-zero exit or
// a missing output file is a RenderError.
func (c *WkhtmltopdfConverter) Convert(ctx context.Context, htmlPath, pdfPath string) error {
	binary := c.BinaryPath
	if binary == "" {
		binary = EngineWkhtmltopdf
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		return &RenderError{
			Message: fmt.Sprintf("%s not found. Install wkhtmltopdf or set PDF_ENGINE_PATH", binary),
			Cause:   err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(c.Timeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, resolved, "--quiet", "--encoding", "utf-8", "--enable-local-file-access", htmlPath, pdfPath)

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		msg := "wkhtmltopdf exited with an error"
		if out := strings.TrimSpace(output.String()); out != "" {
			msg = fmt.Sprintf("%s: %s", msg, out)
		}
		return &RenderError{Message: msg, Cause: err}
	}

	if _, err := os.Stat(pdfPath); err != nil {
		return &RenderError{Message: "wkhtmltopdf did not produce a PDF", Cause: err}
	}
	return nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultConversionTimeout
	}
	return d
}
