package recon

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultThreshold is the loading-delta tolerance in percentage points.
const DefaultThreshold = 5.0

// Engine runs one comparison over two in-memory record sets. Each run owns
// its inputs and produces an immutable result, so concurrent runs need no
// coordination.
type Engine struct {
	threshold float64
}

// NewEngine validates the tolerance up front; an invalid threshold is the
// only configuration that aborts before processing starts.
func NewEngine(thresholdPct float64) (*Engine, error) {
	if math.IsNaN(thresholdPct) || math.IsInf(thresholdPct, 0) {
		return nil, eris.Errorf("recon: threshold must be a finite number, got %v", thresholdPct)
	}
	if thresholdPct < 0 {
		return nil, eris.Errorf("recon: threshold must not be negative, got %v", thresholdPct)
	}
	return &Engine{threshold: thresholdPct}, nil
}

// Threshold returns the tolerance the engine was built with.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Run executes the full reconciliation: normalize both sides, match,
// evaluate discrepancies on matched pairs, and aggregate. Per-record
// problems never abort the batch.
func (e *Engine) Run(survey, analysis []RawRecord) ReconciliationResult {
	surveyRecs, skippedSurvey := NormalizeAll(SourceSurvey, survey)
	analysisRecs, skippedAnalysis := NormalizeAll(SourceAnalysis, analysis)

	pairs, dups := Match(surveyRecs, analysisRecs)

	incomplete := 0
	for i := range pairs {
		issues, inc := Evaluate(pairs[i], e.threshold)
		pairs[i].Issues = append(pairs[i].Issues, issues...)
		incomplete += inc
	}

	result := Build(pairs, dups, e.threshold, skippedSurvey, skippedAnalysis, incomplete)

	zap.L().Info("reconciliation complete",
		zap.Int("pairs", result.Summary.TotalPairs),
		zap.Int("matched", result.Summary.Matched),
		zap.Int("duplicates", result.Summary.Duplicates),
		zap.Int("pairs_with_issues", result.Summary.PairsWithIssues),
		zap.Float64("threshold", e.threshold),
	)

	return result
}
