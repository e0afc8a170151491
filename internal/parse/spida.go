package parse

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/recon"
)

const metersToFeet = 3.28084

// SpidaProject is the subset of a SPIDAcalc project export the tool reads.
type SpidaProject struct {
	Label      string           `json:"label"`
	Date       string           `json:"date"`
	Engineer   string           `json:"engineer"`
	Address    SpidaAddress     `json:"address"`
	ClientData *SpidaClientData `json:"clientData"`
	Leads      []SpidaLead      `json:"leads"`
}

// SpidaAddress is the project-level address block.
type SpidaAddress struct {
	City string `json:"city"`
}

// SpidaClientData carries client catalog data referenced by designs.
type SpidaClientData struct {
	GeneralLocation string           `json:"generalLocation"`
	Poles           []SpidaPoleClass `json:"poles"`
}

// SpidaPoleClass is one catalog pole definition.
type SpidaPoleClass struct {
	ClassOfPole string `json:"classOfPole"`
	Species     string `json:"species"`
}

// SpidaLead groups the locations of one lead.
type SpidaLead struct {
	Locations []SpidaLocation `json:"locations"`
}

// SpidaLocation is one pole site with its candidate designs.
type SpidaLocation struct {
	Label                string            `json:"label"`
	ID                   any               `json:"id"`
	GeographicCoordinate *GeoPoint         `json:"geographicCoordinate"`
	Attachments          []json.RawMessage `json:"attachments"`
	Designs              []SpidaDesign     `json:"designs"`
}

// GeoPoint is a GeoJSON-style point, coordinates ordered [longitude, latitude].
type GeoPoint struct {
	Coordinates []float64 `json:"coordinates"`
}

// SpidaDesign is one design variant (measured, recommended, ...) at a
// location. Analysis is kept raw because exports disagree on its shape.
type SpidaDesign struct {
	Label      string           `json:"label"`
	Structure  *SpidaStructure  `json:"structure"`
	ClientData *SpidaClientData `json:"clientData"`
	Analysis   json.RawMessage  `json:"analysis"`
}

// SpidaStructure holds the modeled pole of a design.
type SpidaStructure struct {
	Pole *SpidaStructurePole `json:"pole"`
}

// SpidaStructurePole references the client catalog item for the pole.
type SpidaStructurePole struct {
	ClientItem *SpidaPoleItem `json:"clientItem"`
}

// SpidaPoleItem is the catalog entry: class, species, height in meters.
type SpidaPoleItem struct {
	ClassOfPole string        `json:"classOfPole"`
	Species     string        `json:"species"`
	Height      *SpidaMeasure `json:"height"`
}

// SpidaMeasure is a unit-tagged scalar.
type SpidaMeasure struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

type spidaAnalysisCase struct {
	Results []spidaAnalysisResult `json:"results"`
}

type spidaAnalysisResult struct {
	Component    string   `json:"component"`
	AnalysisType string   `json:"analysisType"`
	Unit         string   `json:"unit"`
	Actual       *float64 `json:"actual"`
	Passes       *bool    `json:"passes"`
	Summary      *struct {
		LoadingPercent *float64 `json:"loadingPercent"`
	} `json:"summary"`
}

// ReadSpidaProject parses a SPIDAcalc project export. Some exports ship the
// leads array as the document root; both shapes are accepted.
func ReadSpidaProject(path string) (*SpidaProject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "spida: read json")
	}

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	if strings.HasPrefix(trimmed, "[") {
		var leads []SpidaLead
		if err := json.Unmarshal(data, &leads); err != nil {
			return nil, eris.Wrap(err, "spida: parse json (lead array root)")
		}
		return &SpidaProject{Leads: leads}, nil
	}

	var project SpidaProject
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, eris.Wrap(err, "spida: parse json")
	}
	return &project, nil
}

// ExtractAnalysisRecords walks leads, locations and designs, producing one
// engine record per location. Existing loading comes from the measured
// design, final loading and the pole spec from the recommended design.
func ExtractAnalysisRecords(p *SpidaProject) []recon.RawRecord {
	var records []recon.RawRecord

	for _, lead := range p.Leads {
		for _, loc := range lead.Locations {
			if loc.Label == "" {
				zap.L().Warn("skipping location without label")
				continue
			}

			measured, recommended := pickDesigns(loc.Designs)

			spec := "Unknown"
			if recommended != nil {
				spec = poleSpec(recommended)
			}

			var existing, final *float64
			var passes *bool
			if measured != nil {
				existing, _ = maxStressLoading(measured)
			}
			if recommended != nil {
				final, passes = maxStressLoading(recommended)
			}

			records = append(records, recon.RawRecord{
				ID:              loc.Label,
				SecondaryID:     locationNumber(loc),
				Spec:            spec,
				ExistingLoading: existing,
				FinalLoading:    final,
				Order:           len(records),
				PassesFinal:     passes,
			})
		}
	}

	return records
}

// pickDesigns selects the measured and recommended designs by label, with
// positional fallbacks matching how engineers order their files.
func pickDesigns(designs []SpidaDesign) (measured, recommended *SpidaDesign) {
	for i := range designs {
		label := strings.ToLower(designs[i].Label)
		if measured == nil && strings.HasPrefix(label, "measured") {
			measured = &designs[i]
		}
		if recommended == nil && strings.Contains(label, "recommended") {
			recommended = &designs[i]
		}
	}

	if measured == nil && len(designs) > 0 {
		measured = &designs[0]
	}
	if recommended == nil && len(designs) > 1 {
		recommended = &designs[1]
	}
	if recommended == nil {
		recommended = measured
	}
	return measured, recommended
}

// poleSpec formats "[height-ft]-[class] [species]" from the design's pole
// catalog item, falling back to the client catalog for species.
func poleSpec(design *SpidaDesign) string {
	if design.Structure == nil || design.Structure.Pole == nil {
		return "Unknown"
	}
	item := design.Structure.Pole.ClientItem
	if item == nil {
		return "Unknown"
	}

	class := item.ClassOfPole

	heightFt := 0
	if item.Height != nil && item.Height.Value > 0 {
		heightFt = int(math.Round(item.Height.Value * metersToFeet))
	}

	species := item.Species
	if species == "" && design.ClientData != nil {
		for _, p := range design.ClientData.Poles {
			if p.ClassOfPole == class && p.Species != "" {
				species = p.Species
				break
			}
		}
	}
	species = CleanSpecies(species)

	return formatSpec(heightFt, class, species)
}

func formatSpec(heightFt int, class, species string) string {
	var base string
	switch {
	case heightFt > 0 && class != "":
		base = strconv.Itoa(heightFt) + "-" + class
	case heightFt > 0:
		base = strconv.Itoa(heightFt)
	case class != "":
		base = class
	}

	switch {
	case base != "" && species != "":
		return base + " " + species
	case base != "":
		return base
	case species != "":
		return species
	}
	return "Unknown"
}

// maxStressLoading returns the highest Pole STRESS percentage across the
// design's analysis cases, or nil when no qualifying result exists.
// The passes flag comes from the governing (maximum) result.
func maxStressLoading(design *SpidaDesign) (*float64, *bool) {
	cases := decodeAnalysisCases(design.Analysis)

	var maxPct *float64
	var passes *bool

	for _, ac := range cases {
		for _, res := range ac.Results {
			if res.Component != "Pole" || !strings.EqualFold(res.AnalysisType, "STRESS") {
				continue
			}
			pct := res.Actual
			if pct == nil && res.Summary != nil {
				pct = res.Summary.LoadingPercent
			}
			if pct == nil {
				continue
			}
			if maxPct == nil || *pct > *maxPct {
				v := *pct
				maxPct = &v
				passes = res.Passes
			}
		}
	}

	return maxPct, passes
}

// decodeAnalysisCases accepts both analysis shapes seen in the wild: a
// plain case array, or an object wrapping the cases under "results".
func decodeAnalysisCases(raw json.RawMessage) []spidaAnalysisCase {
	if len(raw) == 0 {
		return nil
	}

	var cases []spidaAnalysisCase
	if err := json.Unmarshal(raw, &cases); err == nil {
		return cases
	}

	var wrapped struct {
		Results []spidaAnalysisCase `json:"results"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Results
	}

	zap.L().Warn("unrecognized analysis shape in design")
	return nil
}

// locationNumber renders the location's id as the secondary identifier;
// empty when the export does not carry one.
func locationNumber(loc SpidaLocation) string {
	switch v := loc.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
