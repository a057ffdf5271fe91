// Package jobpost loads a job description from a job board posting URL.
package jobpost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds the HTTP request for a posting
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every request
	DefaultUserAgent = "Mozilla/5.0 (compatible; ResumeEnhancer/1.0)"
	// MaxPageBytes caps how much of a posting page is read
	MaxPageBytes = 5 << 20
	// MinContentLength is the shortest extracted text accepted without
	// falling back to a headless browser.
	MinContentLength = 500
)

// Posting is the text of a fetched job posting
type Posting struct {
	URL      string
	Platform Platform
	Text     string
	Rendered bool // true when the text came from the headless browser
}

// FetchError represents a posting that could not be retrieved
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to fetch job posting %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to fetch job posting %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// PageRenderer returns the HTML of a page after its scripts have run
type PageRenderer interface {
	RenderPage(ctx context.Context, pageURL string) (string, error)
}

// Fetcher retrieves postings over HTTP
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	// Browser, when set, renders pages whose static HTML yields too little text
	Browser PageRenderer
	Logger  *zap.Logger
}

// NewFetcher creates a Fetcher with the default timeout and user agent
func NewFetcher(browser PageRenderer, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: DefaultTimeout},
		UserAgent: DefaultUserAgent,
		Browser:   browser,
		Logger:    logger,
	}
}

// Fetch downloads the posting at pageURL and extracts its description text
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Posting, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &FetchError{URL: pageURL, Message: "invalid URL", Cause: err}
	}

	platform := DetectPlatform(parsed)
	html, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(html, platform)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Message: "failed to parse page", Cause: err}
	}

	posting := &Posting{URL: pageURL, Platform: platform, Text: text}
	if len(strings.TrimSpace(text)) >= MinContentLength || f.Browser == nil {
		f.Logger.Debug("fetched job posting", zap.String("url", pageURL), zap.String("platform", string(platform)), zap.Int("chars", len(text)))
		return posting, nil
	}

	f.Logger.Debug("posting text too short, rendering in browser", zap.String("url", pageURL), zap.Int("chars", len(text)))
	rendered, err := f.Browser.RenderPage(ctx, pageURL)
	if err != nil {
		// The static text is still usable when it is not empty
		if strings.TrimSpace(text) != "" {
			f.Logger.Warn("browser rendering failed, using static text", zap.Error(err))
			return posting, nil
		}
		return nil, &FetchError{URL: pageURL, Message: "browser rendering failed", Cause: err}
	}

	renderedText, err := ExtractText(rendered, platform)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Message: "failed to parse rendered page", Cause: err}
	}
	if len(renderedText) > len(text) {
		posting.Text = renderedText
		posting.Rendered = true
	}
	return posting, nil
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: pageURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}

// ExtractText strips navigation and application-form noise from a posting
// page and returns the text of the first matching description container,
// one non-blank line per output line. The body is used when nothing matches.
func ExtractText(html string, platform Platform) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, iframe, .cookie-banner, .cookie-consent").Remove()
	doc.Find(strings.Join(noiseSelectors(platform), ", ")).Remove()

	content := doc.Find("body")
	for _, selector := range contentSelectors(platform) {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	return compactLines(content.Text()), nil
}

func compactLines(text string) string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
