package recon

// Build aggregates matcher and evaluator output into the final result.
// Pure aggregation: it never fails, and empty input yields all-zero counts.
func Build(pairs []ComparisonPair, dups DuplicateIDs, thresholdPct float64, skippedSurvey, skippedAnalysis, incomplete int) ReconciliationResult {
	summary := Summary{
		TotalPairs:      len(pairs),
		SkippedSurvey:   skippedSurvey,
		SkippedAnalysis: skippedAnalysis,
		Incomplete:      incomplete,
		Duplicates:      len(dups.Survey) + len(dups.Analysis),
		IssuesByKind:    make(map[IssueKind]int),
	}

	for _, p := range pairs {
		if p.Matched() {
			summary.Matched++
		}
		if p.HasIssues() {
			summary.PairsWithIssues++
		}
		for _, is := range p.Issues {
			summary.IssuesByKind[is.Kind]++
			switch is.Kind {
			case IssueMissingInSurvey:
				summary.MissingInSurvey++
			case IssueMissingInAnalysis:
				summary.MissingInAnalysis++
			}
		}
	}

	// Records parked on the duplicates lists never joined a pair, so their
	// DUPLICATE issues are counted here.
	summary.IssuesByKind[IssueDuplicate] += len(dups.Survey) + len(dups.Analysis)
	if summary.IssuesByKind[IssueDuplicate] == 0 {
		delete(summary.IssuesByKind, IssueDuplicate)
	}

	return ReconciliationResult{
		Pairs:      pairs,
		Duplicates: dups,
		Summary:    summary,
		Threshold:  thresholdPct,
	}
}
