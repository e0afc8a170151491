package recon

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// canonicalSpec prepares a specification string for comparison:
// case-insensitive, whitespace-normalized. Display strings are untouched.
func canonicalSpec(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// LoadingDelta returns the absolute difference between two loading
// percentages rounded to two decimals, or nil when either side is missing.
func LoadingDelta(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := math.Round(math.Abs(*a-*b)*100) / 100
	return &d
}

// FormatDelta renders a delta magnitude without trailing zeros ("6.2").
func FormatDelta(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// Evaluate compares a matched pair's pole specification and loading fields
// against the tolerance. It returns the issues found plus the number of
// loading comparisons skipped because one side had no value; insufficient
// data is not an error, but the caller surfaces it as "incomplete".
func Evaluate(pair ComparisonPair, thresholdPct float64) ([]Issue, int) {
	if !pair.Matched() {
		return nil, 0
	}

	var issues []Issue
	incomplete := 0

	if canonicalSpec(pair.Survey.Spec) != canonicalSpec(pair.Analysis.Spec) {
		issues = append(issues, Issue{
			Kind:     IssueSpecMismatch,
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("survey %q vs analysis %q", pair.Survey.Spec, pair.Analysis.Spec),
		})
	}

	if d := LoadingDelta(pair.Survey.ExistingLoading, pair.Analysis.ExistingLoading); d == nil {
		incomplete++
	} else if *d > thresholdPct {
		issues = append(issues, Issue{
			Kind:     IssueLoadingDeltaExisting,
			Severity: SeverityError,
			Detail:   FormatDelta(*d),
		})
	}

	if d := LoadingDelta(pair.Survey.FinalLoading, pair.Analysis.FinalLoading); d == nil {
		incomplete++
	} else if *d > thresholdPct {
		issues = append(issues, Issue{
			Kind:     IssueLoadingDeltaFinal,
			Severity: SeverityError,
			Detail:   FormatDelta(*d),
		})
	}

	return issues, incomplete
}
