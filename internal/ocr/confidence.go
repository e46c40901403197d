package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
	rePermit  = regexp.MustCompile(`dozvol[aeu]|boravak|poslodav`)
	reClauses = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
)

func hasDatePattern(s string) bool   { return reDate.MatchString(s) }
func hasPermitPattern(s string) bool { return rePermit.MatchString(s) }
func hasClausePattern(s string) bool { return reClauses.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// boost if we see common permit artifacts (dates, permit vocabulary,
	// numbered clauses)
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasDatePattern(txtL) {
		score += 0.2
	}
	if hasPermitPattern(txtL) {
		score += 0.25
	}
	if hasClausePattern(txtL) {
		score += 0.15
	}
	if len(txt) > 400 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
