package analysis

import (
	"regexp"
	"strconv"
)

var atsScorePattern = regexp.MustCompile(`(?is)ATS\s+Match\s+Score.*?(\d{1,3}(?:\.\d+)?)\s*%`)

// ExtractATSScore returns the percentage reported under the ATS Match Score
// heading. The report is free text, so a missing or out-of-range value
// reports false rather than an error.
func ExtractATSScore(report string) (float64, bool) {
	m := atsScorePattern.FindStringSubmatch(report)
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil || score > 100 {
		return 0, false
	}
	return score, true
}
