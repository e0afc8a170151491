package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spidaFixture = `{
	"label": "Job-2043",
	"date": "2024-03-18",
	"engineer": "R. Alvarez",
	"address": {"city": "San Antonio"},
	"clientData": {"generalLocation": "District 4"},
	"leads": [{
		"locations": [{
			"label": "145-PL461207",
			"id": "L-1",
			"designs": [
				{
					"label": "Measured Design",
					"analysis": [{
						"results": [
							{"component": "Pole", "analysisType": "STRESS", "unit": "PERCENT", "actual": 65.3, "passes": true},
							{"component": "Guy", "analysisType": "STRESS", "actual": 91.0}
						]
					}]
				},
				{
					"label": "Recommended Design",
					"structure": {"pole": {"clientItem": {"classOfPole": "2", "species": "SOUTHERN PINE", "height": {"unit": "METRE", "value": 12.192}}}},
					"analysis": [{
						"results": [
							{"component": "Pole", "analysisType": "STRESS", "actual": 71.2, "passes": false}
						]
					}]
				}
			]
		}]
	}]
}`

func TestReadSpidaProject_ObjectRoot(t *testing.T) {
	path := writeTempJSON(t, spidaFixture)

	p, err := ReadSpidaProject(path)
	require.NoError(t, err)
	assert.Equal(t, "Job-2043", p.Label)
	assert.Equal(t, "San Antonio", p.Address.City)
	require.Len(t, p.Leads, 1)
}

func TestReadSpidaProject_ArrayRoot(t *testing.T) {
	path := writeTempJSON(t, `[{"locations": [{"label": "410620", "designs": []}]}]`)

	p, err := ReadSpidaProject(path)
	require.NoError(t, err)
	require.Len(t, p.Leads, 1)
	require.Len(t, p.Leads[0].Locations, 1)
	assert.Equal(t, "410620", p.Leads[0].Locations[0].Label)
}

func TestExtractAnalysisRecords_Fixture(t *testing.T) {
	path := writeTempJSON(t, spidaFixture)
	p, err := ReadSpidaProject(path)
	require.NoError(t, err)

	recs := ExtractAnalysisRecords(p)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "145-PL461207", rec.ID)
	assert.Equal(t, "L-1", rec.SecondaryID)
	// 12.192 m is a 40 ft pole.
	assert.Equal(t, "40-2 Southern Pine", rec.Spec)
	require.NotNil(t, rec.ExistingLoading)
	assert.InDelta(t, 65.3, *rec.ExistingLoading, 1e-9)
	require.NotNil(t, rec.FinalLoading)
	assert.InDelta(t, 71.2, *rec.FinalLoading, 1e-9)
	require.NotNil(t, rec.PassesFinal)
	assert.False(t, *rec.PassesFinal)
}

func TestExtractAnalysisRecords_SkipsUnlabeledLocations(t *testing.T) {
	p := &SpidaProject{Leads: []SpidaLead{{Locations: []SpidaLocation{
		{Label: ""},
		{Label: "410620"},
	}}}}

	recs := ExtractAnalysisRecords(p)
	require.Len(t, recs, 1)
	assert.Equal(t, "410620", recs[0].ID)
}

func TestExtractAnalysisRecords_NoQualifyingStressIsNil(t *testing.T) {
	path := writeTempJSON(t, `{
		"leads": [{"locations": [{
			"label": "410620",
			"designs": [{"label": "Measured Design", "analysis": []}]
		}]}]
	}`)
	p, err := ReadSpidaProject(path)
	require.NoError(t, err)

	recs := ExtractAnalysisRecords(p)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].ExistingLoading)
	assert.Nil(t, recs[0].FinalLoading)
}

func TestPickDesigns_LabelPriority(t *testing.T) {
	designs := []SpidaDesign{
		{Label: "Recommended Design"},
		{Label: "Measured Design"},
	}
	measured, recommended := pickDesigns(designs)
	assert.Equal(t, "Measured Design", measured.Label)
	assert.Equal(t, "Recommended Design", recommended.Label)
}

func TestPickDesigns_PositionalFallback(t *testing.T) {
	designs := []SpidaDesign{
		{Label: "Design A"},
		{Label: "Design B"},
	}
	measured, recommended := pickDesigns(designs)
	assert.Equal(t, "Design A", measured.Label)
	assert.Equal(t, "Design B", recommended.Label)
}

func TestPickDesigns_SingleDesignServesBoth(t *testing.T) {
	designs := []SpidaDesign{{Label: "Measured Design"}}
	measured, recommended := pickDesigns(designs)
	require.NotNil(t, measured)
	require.NotNil(t, recommended)
	assert.Equal(t, measured, recommended)
}

func TestDecodeAnalysisCases_WrappedShape(t *testing.T) {
	cases := decodeAnalysisCases([]byte(`{"results": [{"results": [{"component": "Pole", "analysisType": "STRESS", "actual": 50}]}]}`))
	require.Len(t, cases, 1)
	require.Len(t, cases[0].Results, 1)
}
