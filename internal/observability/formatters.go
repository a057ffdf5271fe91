// Package observability provides structured logging and formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		line = truncate(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// PrintAnalysisSummary outputs the missing keywords and, when the report
// carried one, the ATS match score.
func (p *Printer) PrintAnalysisSummary(keywords []string, score float64, hasScore bool) {
	var sb strings.Builder

	if hasScore {
		sb.WriteString(fmt.Sprintf("ATS Match Score: %.0f%%\n\n", score))
	} else {
		sb.WriteString("ATS Match Score: not reported\n\n")
	}

	if len(keywords) == 0 {
		sb.WriteString("No missing keywords found")
	} else {
		sb.WriteString(fmt.Sprintf("Missing keywords: %d\n", len(keywords)))
		count := min(len(keywords), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", keywords[i]))
		}
		if len(keywords) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(keywords)-maxItemsToShow))
		}
	}

	p.printBox("GAP ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintConfirmations outputs every missing keyword with the experience the
// user confirmed for it, in keyword order.
func (p *Printer) PrintConfirmations(keywords []string, confirmed map[string]string) {
	if len(keywords) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Confirmed: %d of %d\n\n", len(confirmed), len(keywords)))
	for _, kw := range keywords {
		if desc, ok := confirmed[kw]; ok {
			sb.WriteString(fmt.Sprintf("✓ %s: %s\n", kw, desc))
		} else {
			sb.WriteString(fmt.Sprintf("✗ %s\n", kw))
		}
	}

	p.printBox("CONFIRMED EXPERIENCE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifacts outputs where the rendered files were written.
func (p *Printer) PrintArtifacts(htmlPath, pdfPath string, pdfBytes int) {
	content := fmt.Sprintf("HTML: %s\nPDF:  %s (%d bytes)", htmlPath, pdfPath, pdfBytes)
	p.printBox("ENHANCED RESUME", content)
}
