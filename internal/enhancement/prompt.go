// Package enhancement builds the resume rewriting prompt from an analyzed
// resume and the experience the user confirmed for missing keywords.
package enhancement

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-enhancer/internal/prompts"
)

// AdditionalExperienceHeader introduces the confirmed-experience block
// appended to the resume text.
const AdditionalExperienceHeader = "Additional Experience:"

// BuildEnhancementPrompt returns the rewriting prompt. Confirmed descriptions
// are appended to the resume in keyword order; the full keyword list,
// confirmed or not, is passed to the model to be bolded.
func BuildEnhancementPrompt(resumeText string, keywords []string, confirmed map[string]string) string {
	template := prompts.MustGet("enhancement.json", "resume-enhancement")
	return prompts.Format(template, map[string]string{
		"ResumeText": EnrichResume(resumeText, keywords, confirmed),
		"Keywords":   strings.Join(keywords, ", "),
	})
}

// EnrichResume appends the Additional Experience block to resumeText. The
// resume is returned unchanged when nothing is confirmed.
func EnrichResume(resumeText string, keywords []string, confirmed map[string]string) string {
	lines := ConfirmedLines(keywords, confirmed)
	if len(lines) == 0 {
		return resumeText
	}
	return resumeText + "\n\n" + AdditionalExperienceHeader + "\n" + strings.Join(lines, "\n")
}

// ConfirmedLines formats one "- **keyword**: description" line per confirmed
// keyword, following the order of keywords. A keyword listed more than once
// produces a single line.
func ConfirmedLines(keywords []string, confirmed map[string]string) []string {
	lines := make([]string, 0, len(confirmed))
	seen := make(map[string]bool, len(confirmed))
	for _, kw := range keywords {
		desc, ok := confirmed[kw]
		if !ok || seen[kw] {
			continue
		}
		seen[kw] = true
		lines = append(lines, fmt.Sprintf("- **%s**: %s", kw, desc))
	}
	return lines
}
