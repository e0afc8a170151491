package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_RejectsInvalidThreshold(t *testing.T) {
	_, err := NewEngine(-1)
	assert.Error(t, err)

	nan := 0.0
	_, err = NewEngine(nan / nan)
	assert.Error(t, err)
}

func TestNewEngine_AcceptsZero(t *testing.T) {
	e, err := NewEngine(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.Threshold())
}

func TestEngine_EmptyInputs(t *testing.T) {
	e, err := NewEngine(DefaultThreshold)
	require.NoError(t, err)

	res := e.Run(nil, nil)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Duplicates.Survey)
	assert.Empty(t, res.Duplicates.Analysis)
	assert.Zero(t, res.Summary.TotalPairs)
	assert.Zero(t, res.Summary.Matched)
	assert.Zero(t, res.Summary.PairsWithIssues)
	assert.Equal(t, DefaultThreshold, res.Threshold)
}

func TestEngine_NumericFallbackScenario(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	res := e.Run(
		[]RawRecord{{ID: "P-410620", Spec: "40-2 Southern Pine", ExistingLoading: fptr(65.0), FinalLoading: fptr(70.0)}},
		[]RawRecord{{ID: "410620", Spec: "40-2 Southern Pine", ExistingLoading: fptr(66.0), FinalLoading: fptr(70.0)}},
	)

	require.Len(t, res.Pairs, 1)
	assert.Equal(t, KeyNumericID, res.Pairs[0].MatchedBy)
	assert.Empty(t, res.Pairs[0].Issues)
	assert.Equal(t, 1, res.Summary.Matched)
}

func TestEngine_DuplicateScenario(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	res := e.Run(
		[]RawRecord{{ID: "410621"}},
		[]RawRecord{{ID: "410621", Order: 0}, {ID: "410621", Order: 1}},
	)

	assert.Equal(t, []string{"410621", "410621"}, res.Duplicates.Analysis)
	assert.Equal(t, 2, res.Summary.Duplicates)
	assert.Equal(t, 2, res.Summary.IssuesByKind[IssueDuplicate])
	assert.Equal(t, 1, res.Summary.IssuesByKind[IssueMissingInAnalysis])
}

func TestEngine_LoadingDeltaScenario(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	res := e.Run(
		[]RawRecord{{ID: "410620", Spec: "s", ExistingLoading: fptr(65.0), FinalLoading: fptr(80.0)}},
		[]RawRecord{{ID: "410620", Spec: "s", ExistingLoading: fptr(71.2), FinalLoading: fptr(80.0)}},
	)

	require.Len(t, res.Pairs, 1)
	require.Len(t, res.Pairs[0].Issues, 1)
	assert.Equal(t, IssueLoadingDeltaExisting, res.Pairs[0].Issues[0].Kind)
	assert.Equal(t, "6.2", res.Pairs[0].Issues[0].Detail)
	assert.Equal(t, 1, res.Summary.PairsWithIssues)
}

func TestEngine_FractionalLoadingRescaled(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	// 0.653 on the survey side and 65.3 on the analysis side are the same
	// measurement on different scales; no delta issue must be raised.
	res := e.Run(
		[]RawRecord{{ID: "1", Spec: "s", ExistingLoading: fptr(0.653)}},
		[]RawRecord{{ID: "1", Spec: "s", ExistingLoading: fptr(65.3)}},
	)

	require.Len(t, res.Pairs, 1)
	assert.Empty(t, res.Pairs[0].Issues)
}

func TestEngine_SkippedRecordsTallied(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	res := e.Run(
		[]RawRecord{{ID: ""}, {ID: "410620", Spec: "s"}},
		[]RawRecord{{ID: "410620", Spec: "s"}},
	)

	assert.Equal(t, 1, res.Summary.SkippedSurvey)
	assert.Equal(t, 0, res.Summary.SkippedAnalysis)
	assert.Equal(t, 1, res.Summary.Matched)
}

func TestEngine_Idempotent(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	survey := []RawRecord{
		{ID: "P-410620", Spec: "40-2", ExistingLoading: fptr(65)},
		{ID: "146-455194", Spec: "45-3"},
		{ID: "dup"}, {ID: "dup"},
	}
	analysis := []RawRecord{
		{ID: "410620", Spec: "40-2", ExistingLoading: fptr(72)},
		{ID: "455194", Spec: "45-3"},
		{ID: "lonely"},
	}

	first := e.Run(survey, analysis)
	second := e.Run(survey, analysis)
	assert.Equal(t, first, second)
}

func TestEngine_IncompleteLoadingCounted(t *testing.T) {
	e, err := NewEngine(5.0)
	require.NoError(t, err)

	res := e.Run(
		[]RawRecord{{ID: "1", Spec: "s", ExistingLoading: fptr(50)}},
		[]RawRecord{{ID: "1", Spec: "s"}},
	)

	assert.Equal(t, 2, res.Summary.Incomplete)
	assert.Empty(t, res.Pairs[0].Issues)
}
