package recon

import (
	"fmt"

	"go.uber.org/zap"
)

// matchState is the bookkeeping arena threaded through the strategy passes.
// Records are never moved or mutated; pairing is tracked by index.
type matchState struct {
	survey   []PoleRecord
	analysis []PoleRecord

	consumedSurvey   []bool
	consumedAnalysis []bool

	// dup flags stick until a narrower key disambiguates the record.
	dupSurvey   map[int]MatchKeyKind
	dupAnalysis map[int]MatchKeyKind

	pairs []ComparisonPair
}

func newMatchState(survey, analysis []PoleRecord) *matchState {
	return &matchState{
		survey:           survey,
		analysis:         analysis,
		consumedSurvey:   make([]bool, len(survey)),
		consumedAnalysis: make([]bool, len(analysis)),
		dupSurvey:        make(map[int]MatchKeyKind),
		dupAnalysis:      make(map[int]MatchKeyKind),
	}
}

// Match pairs survey records with analysis records using the fixed strategy
// order [normalizedId, numericId, secondaryId]. The first strategy that
// yields a single candidate on both sides wins; ties are never scored or
// guessed. Records sharing a key with another record on their own side are
// flagged as duplicates and stay eligible for a later, narrower strategy.
// Match never fails on data content: every anomaly becomes an Issue or a
// duplicates entry, preserving partial results.
func Match(survey, analysis []PoleRecord) ([]ComparisonPair, DuplicateIDs) {
	st := newMatchState(survey, analysis)

	for _, kind := range keyOrder {
		st.runPass(kind)
	}

	return st.finish()
}

// runPass executes one strategy pass over all still-unmatched records.
func (st *matchState) runPass(kind MatchKeyKind) {
	surveyIdx := buildIndex(st.survey, st.consumedSurvey, kind)
	analysisIdx := buildIndex(st.analysis, st.consumedAnalysis, kind)

	for i := range st.survey {
		if st.consumedSurvey[i] {
			continue
		}
		key := DeriveKeys(st.survey[i]).Value(kind)
		if key == "" {
			continue
		}

		candA := live(analysisIdx[key], st.consumedAnalysis)
		if len(candA) == 0 {
			continue
		}
		candS := live(surveyIdx[key], st.consumedSurvey)

		if len(candS) == 1 && len(candA) == 1 {
			st.pair(i, candA[0], kind)
			continue
		}

		// Ambiguous key: flag every record on the crowded side(s) and
		// leave them unmatched for this strategy.
		if len(candS) > 1 {
			for _, j := range candS {
				st.dupSurvey[j] = kind
			}
		}
		if len(candA) > 1 {
			for _, j := range candA {
				st.dupAnalysis[j] = kind
			}
		}
	}
}

// pair consumes both records. A narrower key resolving a previously
// ambiguous record keeps the earlier DUPLICATE flag visible on the pair.
func (st *matchState) pair(si, ai int, kind MatchKeyKind) {
	st.consumedSurvey[si] = true
	st.consumedAnalysis[ai] = true

	p := ComparisonPair{
		Survey:    &st.survey[si],
		Analysis:  &st.analysis[ai],
		MatchedBy: kind,
	}

	if byKind, ok := st.dupSurvey[si]; ok {
		delete(st.dupSurvey, si)
		p.Issues = append(p.Issues, duplicateIssue(st.survey[si], byKind))
	}
	if byKind, ok := st.dupAnalysis[ai]; ok {
		delete(st.dupAnalysis, ai)
		p.Issues = append(p.Issues, duplicateIssue(st.analysis[ai], byKind))
	}

	st.pairs = append(st.pairs, p)

	zap.L().Debug("paired records",
		zap.String("survey", st.survey[si].RawID),
		zap.String("analysis", st.analysis[ai].RawID),
		zap.String("matched_by", string(kind)),
	)
}

// finish emits unmatched records as one-sided pairs and collects the
// duplicates lists. Output order is survey-file order for everything that
// has a survey side, then analysis-file order for analysis-only pairs.
func (st *matchState) finish() ([]ComparisonPair, DuplicateIDs) {
	pairs := st.pairs
	var dups DuplicateIDs

	for i := range st.survey {
		if st.consumedSurvey[i] {
			continue
		}
		if _, ok := st.dupSurvey[i]; ok {
			dups.Survey = append(dups.Survey, st.survey[i].RawID)
			continue
		}
		pairs = append(pairs, ComparisonPair{
			Survey: &st.survey[i],
			Issues: []Issue{{
				Kind:     IssueMissingInAnalysis,
				Severity: SeverityError,
				Detail:   fmt.Sprintf("no analysis record matches survey pole %q", st.survey[i].RawID),
			}},
		})
	}

	for i := range st.analysis {
		if st.consumedAnalysis[i] {
			continue
		}
		if _, ok := st.dupAnalysis[i]; ok {
			dups.Analysis = append(dups.Analysis, st.analysis[i].RawID)
			continue
		}
		pairs = append(pairs, ComparisonPair{
			Analysis: &st.analysis[i],
			Issues: []Issue{{
				Kind:     IssueMissingInSurvey,
				Severity: SeverityError,
				Detail:   fmt.Sprintf("no survey record matches analysis pole %q", st.analysis[i].RawID),
			}},
		})
	}

	return pairs, dups
}

func duplicateIssue(rec PoleRecord, kind MatchKeyKind) Issue {
	return Issue{
		Kind:     IssueDuplicate,
		Severity: SeverityWarning,
		Detail:   fmt.Sprintf("%s pole %q shared its %s with another record before a narrower key resolved it", rec.Source, rec.RawID, kind),
	}
}

// buildIndex maps a strategy's key values to the indexes of unconsumed
// records holding them. Built fresh each pass so consumed records drop out.
func buildIndex(records []PoleRecord, consumed []bool, kind MatchKeyKind) map[string][]int {
	idx := make(map[string][]int)
	for i := range records {
		if consumed[i] {
			continue
		}
		key := DeriveKeys(records[i]).Value(kind)
		if key == "" {
			continue
		}
		idx[key] = append(idx[key], i)
	}
	return idx
}

// live filters an index bucket down to records not yet consumed during the
// current pass.
func live(bucket []int, consumed []bool) []int {
	out := bucket[:0:0]
	for _, i := range bucket {
		if !consumed[i] {
			out = append(out, i)
		}
	}
	return out
}
