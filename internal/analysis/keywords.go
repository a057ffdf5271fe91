package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

// missingKeywordsSection captures everything after the "Missing ... Keywords"
// heading up to the next "<digit>. Actionable" heading, or to end of text.
// Matching is case-insensitive, non-greedy and spans newlines.
var missingKeywordsSection = regexp.MustCompile(`(?is)Missing.*?Keywords.*?:?\s*(.*?)(?:\n\s*\d\.\s*Actionable|\z)`)

// ExtractMissingKeywords returns the bullet entries of the missing keywords
// section in order of appearance. A report without that section yields an
// empty slice. Entries are not deduplicated, case-folded or stripped of
// markdown emphasis.
func ExtractMissingKeywords(report string) []string {
	keywords := []string{}

	match := missingKeywordsSection.FindStringSubmatch(report)
	if match == nil {
		return keywords
	}

	for _, line := range splitLines(match[1]) {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if !strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "•") {
			continue
		}
		keywords = append(keywords, strings.TrimLeftFunc(line, isBulletPrefix))
	}

	return keywords
}

func isBulletPrefix(r rune) bool {
	return r == '-' || r == '•' || unicode.IsSpace(r)
}

// splitLines splits on \n, \r\n and \r.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
