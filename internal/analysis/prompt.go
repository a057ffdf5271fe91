// Package analysis builds the gap-analysis prompt and reads the missing keywords
// back out of the model's free-text report.
package analysis

import "github.com/jonathan/resume-enhancer/internal/prompts"

// Section headings requested from the model, in order. The keyword parser
// depends on the first two.
const (
	HeadingMissingKeywords = "Missing Technical/Domain-Specific Keywords"
	HeadingSuggestions     = "Actionable Suggestions"
	HeadingATSScore        = "ATS Match Score"
)

// BuildAnalysisPrompt embeds the resume and job description verbatim into the
// gap-analysis instruction template.
func BuildAnalysisPrompt(resumeText, jobDescription string) string {
	template := prompts.MustGet("analysis.json", "gap-analysis")
	return prompts.Format(template, map[string]string{
		"ResumeText":     resumeText,
		"JobDescription": jobDescription,
	})
}
