// Package recon implements the record-reconciliation engine that pairs
// field-survey pole records with engineering-analysis pole records and
// computes per-field discrepancies against a configurable tolerance.
package recon

// Source identifies which export a record came from.
type Source string

const (
	SourceSurvey   Source = "survey"   // field-collected inventory (Katapult)
	SourceAnalysis Source = "analysis" // engineering analysis project (SPIDAcalc)
)

// MatchKeyKind names one identifier-matching strategy.
type MatchKeyKind string

const (
	KeyNormalizedID MatchKeyKind = "normalized_id"
	KeyNumericID    MatchKeyKind = "numeric_id"
	KeySecondaryID  MatchKeyKind = "secondary_id"
)

// keyOrder is the fixed strategy priority used by the matcher. Earlier
// strategies always win, even when a later one would also resolve a
// singleton match.
var keyOrder = [...]MatchKeyKind{KeyNormalizedID, KeyNumericID, KeySecondaryID}

// RawRecord is a source row or node reduced to the fields the engine cares
// about. Parsers produce these; Normalize turns them into PoleRecords.
type RawRecord struct {
	ID              string   `json:"id"`
	SecondaryID     string   `json:"secondary_id,omitempty"`
	Spec            string   `json:"spec,omitempty"`
	ExistingLoading *float64 `json:"existing_loading,omitempty"` // as found in the source; may be 0-1 scale
	FinalLoading    *float64 `json:"final_loading,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Order           int      `json:"order"` // position in the source file, for stable output
	PassesFinal     *bool    `json:"passes_final,omitempty"`
}

// PoleRecord is the canonical representation of one pole from one source.
// Loading percentages are always on the 0-100 scale after normalization.
type PoleRecord struct {
	Source          Source   `json:"source"`
	RawID           string   `json:"raw_id"`
	NormalizedID    string   `json:"normalized_id"`
	NumericID       string   `json:"numeric_id,omitempty"`
	SecondaryID     string   `json:"secondary_id,omitempty"`
	Spec            string   `json:"spec,omitempty"`
	ExistingLoading *float64 `json:"existing_loading,omitempty"`
	FinalLoading    *float64 `json:"final_loading,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Order           int      `json:"order"`
	PassesFinal     *bool    `json:"passes_final,omitempty"`
}

// IssueKind categorizes one discrepancy found during reconciliation.
type IssueKind string

const (
	IssueSpecMismatch         IssueKind = "spec_mismatch"
	IssueLoadingDeltaExisting IssueKind = "loading_delta_existing"
	IssueLoadingDeltaFinal    IssueKind = "loading_delta_final"
	IssueMissingInSurvey      IssueKind = "missing_in_survey"
	IssueMissingInAnalysis    IssueKind = "missing_in_analysis"
	IssueDuplicate            IssueKind = "duplicate"
)

// Severity ranks how urgently an engineer should review an issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one reviewable discrepancy attached to a comparison pair.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Detail   string    `json:"detail"`
}

// ComparisonPair is one reconciled unit. Matched pairs carry both records
// and the strategy that paired them; unmatched pairs carry exactly one.
type ComparisonPair struct {
	Survey    *PoleRecord  `json:"survey,omitempty"`
	Analysis  *PoleRecord  `json:"analysis,omitempty"`
	MatchedBy MatchKeyKind `json:"matched_by,omitempty"`
	Issues    []Issue      `json:"issues"`
}

// Matched reports whether both sides are present.
func (p ComparisonPair) Matched() bool {
	return p.Survey != nil && p.Analysis != nil
}

// HasIssues reports whether any issue was recorded for the pair.
func (p ComparisonPair) HasIssues() bool {
	return len(p.Issues) > 0
}

// DuplicateIDs lists raw identifiers that shared a match key with another
// record on the same side and were never disambiguated by a later strategy.
type DuplicateIDs struct {
	Survey   []string `json:"survey"`
	Analysis []string `json:"analysis"`
}

// Summary holds the aggregate counts attached to a reconciliation result.
type Summary struct {
	TotalPairs        int               `json:"total_pairs"`
	Matched           int               `json:"matched"`
	MissingInSurvey   int               `json:"missing_in_survey"`
	MissingInAnalysis int               `json:"missing_in_analysis"`
	Duplicates        int               `json:"duplicates"`
	SkippedSurvey     int               `json:"skipped_survey"`
	SkippedAnalysis   int               `json:"skipped_analysis"`
	Incomplete        int               `json:"incomplete"` // loading comparisons skipped for lack of data
	PairsWithIssues   int               `json:"pairs_with_issues"`
	IssuesByKind      map[IssueKind]int `json:"issues_by_kind"`
}

// ReconciliationResult is the immutable output of one comparison run.
type ReconciliationResult struct {
	Pairs      []ComparisonPair `json:"pairs"`
	Duplicates DuplicateIDs     `json:"duplicates"`
	Summary    Summary          `json:"summary"`
	Threshold  float64          `json:"threshold"`
}
