package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, src Source, raw RawRecord) PoleRecord {
	t.Helper()
	rec, err := Normalize(src, raw)
	require.NoError(t, err)
	return rec
}

func TestMatch_ExactNormalizedID(t *testing.T) {
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "410620"})}
	analysis := []PoleRecord{mustNormalize(t, SourceAnalysis, RawRecord{ID: "410620"})}

	pairs, dups := Match(survey, analysis)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Matched())
	assert.Equal(t, KeyNormalizedID, pairs[0].MatchedBy)
	assert.Empty(t, dups.Survey)
	assert.Empty(t, dups.Analysis)
}

func TestMatch_NumericFallback(t *testing.T) {
	// Survey prefixes station codes, analysis exports the bare number.
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "P-410620"})}
	analysis := []PoleRecord{mustNormalize(t, SourceAnalysis, RawRecord{ID: "410620"})}

	pairs, _ := Match(survey, analysis)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Matched())
	assert.Equal(t, KeyNumericID, pairs[0].MatchedBy)
}

func TestMatch_SecondaryIDFallback(t *testing.T) {
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "pole-a", SecondaryID: "LOC42"})}
	analysis := []PoleRecord{mustNormalize(t, SourceAnalysis, RawRecord{ID: "pole-b", SecondaryID: "LOC42"})}

	pairs, _ := Match(survey, analysis)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Matched())
	assert.Equal(t, KeySecondaryID, pairs[0].MatchedBy)
}

func TestMatch_EarlierStrategyWins(t *testing.T) {
	// Both normalized and numeric keys would match; normalized must win.
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "410620", SecondaryID: "LOC1"})}
	analysis := []PoleRecord{mustNormalize(t, SourceAnalysis, RawRecord{ID: "410620", SecondaryID: "LOC1"})}

	pairs, _ := Match(survey, analysis)
	require.Len(t, pairs, 1)
	assert.Equal(t, KeyNormalizedID, pairs[0].MatchedBy)
}

func TestMatch_DuplicatesNotAutoPaired(t *testing.T) {
	// Scenario: two analysis records share an ID, survey has one record with
	// the same ID. No auto-pick: both analysis records are duplicates, the
	// survey record is missing in analysis.
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "410621"})}
	analysis := []PoleRecord{
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "410621", Order: 0}),
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "410621", Order: 1}),
	}

	pairs, dups := Match(survey, analysis)
	require.Len(t, pairs, 1)
	assert.False(t, pairs[0].Matched())
	require.Len(t, pairs[0].Issues, 1)
	assert.Equal(t, IssueMissingInAnalysis, pairs[0].Issues[0].Kind)
	assert.Equal(t, []string{"410621", "410621"}, dups.Analysis)
	assert.Empty(t, dups.Survey)
}

func TestMatch_NarrowerKeyDisambiguates(t *testing.T) {
	// Two survey records share a numeric ID but carry distinct normalized
	// IDs; each pairs exactly with its analysis counterpart on the first
	// strategy and no duplicate survives.
	survey := []PoleRecord{
		mustNormalize(t, SourceSurvey, RawRecord{ID: "A-100"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "B-100"}),
	}
	analysis := []PoleRecord{
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "A-100"}),
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "B-100"}),
	}

	pairs, dups := Match(survey, analysis)
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.True(t, p.Matched())
		assert.Equal(t, KeyNormalizedID, p.MatchedBy)
	}
	assert.Empty(t, dups.Survey)
	assert.Empty(t, dups.Analysis)
}

func TestMatch_UnmatchedBothSides(t *testing.T) {
	survey := []PoleRecord{mustNormalize(t, SourceSurvey, RawRecord{ID: "only-in-survey-1"})}
	analysis := []PoleRecord{mustNormalize(t, SourceAnalysis, RawRecord{ID: "only-in-analysis-2"})}

	pairs, _ := Match(survey, analysis)
	require.Len(t, pairs, 2)

	assert.Equal(t, IssueMissingInAnalysis, pairs[0].Issues[0].Kind)
	assert.Nil(t, pairs[0].Analysis)
	assert.Equal(t, IssueMissingInSurvey, pairs[1].Issues[0].Kind)
	assert.Nil(t, pairs[1].Survey)
}

func TestMatch_Completeness(t *testing.T) {
	// Every input record lands in exactly one pair or one duplicates list.
	survey := []PoleRecord{
		mustNormalize(t, SourceSurvey, RawRecord{ID: "410620"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "dup-1"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "dup-1"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "solo"}),
	}
	analysis := []PoleRecord{
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "410620"}),
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "dup-1"}),
	}

	pairs, dups := Match(survey, analysis)

	placed := 0
	for _, p := range pairs {
		if p.Survey != nil {
			placed++
		}
		if p.Analysis != nil {
			placed++
		}
	}
	placed += len(dups.Survey) + len(dups.Analysis)
	assert.Equal(t, len(survey)+len(analysis), placed)
}

func TestMatch_Deterministic(t *testing.T) {
	survey := []PoleRecord{
		mustNormalize(t, SourceSurvey, RawRecord{ID: "P-410620"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "146-455194"}),
		mustNormalize(t, SourceSurvey, RawRecord{ID: "999"}),
	}
	analysis := []PoleRecord{
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "410620"}),
		mustNormalize(t, SourceAnalysis, RawRecord{ID: "455194"}),
	}

	first, firstDups := Match(survey, analysis)
	second, secondDups := Match(survey, analysis)
	assert.Equal(t, first, second)
	assert.Equal(t, firstDups, secondDups)
}

func TestMatch_EmptyInputs(t *testing.T) {
	pairs, dups := Match(nil, nil)
	assert.Empty(t, pairs)
	assert.Empty(t, dups.Survey)
	assert.Empty(t, dups.Analysis)
}
