// Package export flattens a reconciliation result into the report rows the
// rendering collaborators consume: JSON for the API, CSV downloads, and the
// delivery XLSX workbook.
package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cps-delivery/delivery-cli/internal/recon"
)

// Row is one rendered comparison line, shaped like the delivery spreadsheet
// the engineers review. Column names follow the legacy report so existing
// downstream tooling keeps working.
type Row struct {
	SCID            string   `csv:"SCID #" json:"scid_number"`
	SpidaPoleNumber string   `csv:"SPIDA Pole Number" json:"spida_pole_number"`
	KatPoleNumber   string   `csv:"Katapult Pole Number" json:"katapult_pole_number"`
	SpidaPoleSpec   string   `csv:"SPIDA Pole Spec" json:"spida_pole_spec"`
	KatPoleSpec     string   `csv:"Katapult Pole Spec" json:"katapult_pole_spec"`
	SpidaExisting   *float64 `csv:"SPIDA Existing Loading %" json:"spida_existing_loading"`
	KatExisting     *float64 `csv:"Katapult Existing Loading %" json:"katapult_existing_loading"`
	SpidaFinal      *float64 `csv:"SPIDA Final Loading %" json:"spida_final_loading"`
	KatFinal        *float64 `csv:"Katapult Final Loading %" json:"katapult_final_loading"`
	ExistingDelta   *float64 `csv:"Existing Delta" json:"existing_delta"`
	FinalDelta      *float64 `csv:"Final Delta" json:"final_delta"`
	Status          string   `csv:"Status" json:"status"`
	Issues          string   `csv:"Issues" json:"issues"`
	MatchedBy       string   `csv:"Matched By" json:"matched_by,omitempty"`
	HasIssue        bool     `csv:"-" json:"has_issue"`
}

// Statuses a row can carry.
const (
	StatusMatched           = "matched"
	StatusMissingInSpida    = "missing_in_spida"
	StatusMissingInKatapult = "missing_in_katapult"
)

// Rows flattens a reconciliation result into ordered report rows: analysis
// (SPIDA) file order first, like the legacy report, then survey-only rows.
func Rows(res recon.ReconciliationResult) []Row {
	pairs := make([]recon.ComparisonPair, len(res.Pairs))
	copy(pairs, res.Pairs)

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairSortKey(pairs[i]) < pairSortKey(pairs[j])
	})

	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, rowFromPair(p))
	}
	return rows
}

// pairSortKey orders pairs with an analysis side by analysis-file position
// and parks survey-only pairs after them in survey-file position.
func pairSortKey(p recon.ComparisonPair) int {
	if p.Analysis != nil {
		return p.Analysis.Order
	}
	return 1<<30 + p.Survey.Order
}

func rowFromPair(p recon.ComparisonPair) Row {
	row := Row{
		Status:    StatusMatched,
		MatchedBy: string(p.MatchedBy),
		Issues:    joinIssueKinds(p.Issues),
		HasIssue:  p.HasIssues(),
	}

	if p.Survey != nil {
		row.KatPoleNumber = p.Survey.RawID
		row.KatPoleSpec = p.Survey.Spec
		row.KatExisting = p.Survey.ExistingLoading
		row.KatFinal = p.Survey.FinalLoading
	}
	if p.Analysis != nil {
		row.SCID = strconv.Itoa(p.Analysis.Order + 1)
		row.SpidaPoleNumber = p.Analysis.RawID
		row.SpidaPoleSpec = p.Analysis.Spec
		row.SpidaExisting = p.Analysis.ExistingLoading
		row.SpidaFinal = p.Analysis.FinalLoading
	}

	switch {
	case p.Survey == nil:
		row.Status = StatusMissingInKatapult
	case p.Analysis == nil:
		row.Status = StatusMissingInSpida
	default:
		row.ExistingDelta = recon.LoadingDelta(p.Survey.ExistingLoading, p.Analysis.ExistingLoading)
		row.FinalDelta = recon.LoadingDelta(p.Survey.FinalLoading, p.Analysis.FinalLoading)
	}

	return row
}

func joinIssueKinds(issues []recon.Issue) string {
	if len(issues) == 0 {
		return ""
	}
	kinds := make([]string, len(issues))
	for i, is := range issues {
		kinds[i] = string(is.Kind)
	}
	return strings.Join(kinds, "; ")
}

// IssuesOnly filters rows down to those an engineer must review. The
// filter lives here, not in the engine: it is an export concern.
func IssuesOnly(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.HasIssue {
			out = append(out, r)
		}
	}
	return out
}
