// Package coversheet builds the project cover-sheet summary from a
// SPIDAcalc export: job metadata, one line per pole with its governing
// loading percentages, and a reverse-geocoded project address.
package coversheet

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/parse"
	"github.com/cps-delivery/delivery-cli/pkg/nominatim"
)

// DefaultClient is the client name stamped on every cover sheet.
const DefaultClient = "Charter/Spectrum"

// PoleSummary is one pole row on the cover sheet.
type PoleSummary struct {
	SCID            int      `json:"scid"`
	StationID       string   `json:"station_id"`
	Address         string   `json:"address,omitempty"`
	ExistingLoading *float64 `json:"existing_loading,omitempty"`
	FinalLoading    *float64 `json:"final_loading,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// ProjectMeta is the assembled cover sheet.
type ProjectMeta struct {
	JobNumber string        `json:"job_number"`
	Client    string        `json:"client"`
	Date      string        `json:"date"`
	Location  string        `json:"location"`
	City      string        `json:"city"`
	Engineer  string        `json:"engineer"`
	Comments  string        `json:"comments"`
	Poles     []PoleSummary `json:"poles"`
}

// stationIDRe pulls the PL digits out of a "145-PL461207" style label.
var stationIDRe = regexp.MustCompile(`\d+-PL(\d+)`)

// Extract assembles the cover sheet from a parsed project. The geocoder is
// optional; when present the first pole's coordinates become the project
// address. Geocoding failures degrade to a placeholder, never an error.
func Extract(ctx context.Context, p *parse.SpidaProject, geocoder nominatim.Client) *ProjectMeta {
	meta := &ProjectMeta{
		JobNumber: p.Label,
		Client:    DefaultClient,
		Date:      formatDate(p.Date),
		Engineer:  p.Engineer,
		City:      p.Address.City,
	}
	if p.ClientData != nil {
		meta.Location = p.ClientData.GeneralLocation
	}

	totalPLAs := 0
	uniquePoles := map[string]struct{}{}
	projectAddress := ""

	for _, lead := range p.Leads {
		for _, loc := range lead.Locations {
			uniquePoles[loc.Label] = struct{}{}
			totalPLAs += len(loc.Attachments)

			if projectAddress == "" && geocoder != nil && loc.GeographicCoordinate != nil {
				projectAddress = lookupAddress(ctx, geocoder, loc.GeographicCoordinate)
			}

			existing, final := designLoadings(loc.Designs)

			row := PoleSummary{
				SCID:            len(meta.Poles) + 1,
				StationID:       stationID(loc.Label),
				ExistingLoading: existing,
				FinalLoading:    final,
			}
			if len(meta.Poles) == 0 {
				row.Address = projectAddress
			}
			meta.Poles = append(meta.Poles, row)
		}
	}

	meta.Comments = fmt.Sprintf("%d PLAs on %d poles", totalPLAs, len(uniquePoles))
	if projectAddress != "" {
		meta.Location = projectAddress
	}

	return meta
}

// stationID strips the SCID prefix from a pole label, keeping only the PL
// digits. Labels without the pattern pass through unchanged.
func stationID(label string) string {
	if m := stationIDRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return label
}

// formatDate renders ISO-like dates as MM/DD/YYYY and passes anything else
// through untouched.
func formatDate(s string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("01/02/2006")
		}
	}
	return s
}

func lookupAddress(ctx context.Context, geocoder nominatim.Client, pt *parse.GeoPoint) string {
	if len(pt.Coordinates) != 2 {
		return ""
	}
	// GeoJSON convention: [longitude, latitude].
	lon, lat := pt.Coordinates[0], pt.Coordinates[1]

	addr, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		zap.L().Warn("reverse geocode failed", zap.Error(err))
		return "Address lookup failed"
	}
	return addr
}

// stressResult is the slice of an analysis result the cover sheet needs.
// The cover sheet, unlike the comparison engine, accepts stress results
// from any component as long as the unit is a percentage.
type stressResult struct {
	AnalysisType string   `json:"analysisType"`
	Unit         string   `json:"unit"`
	Actual       *float64 `json:"actual"`
}

type stressCase struct {
	Results []stressResult `json:"results"`
}

// designLoadings walks a location's designs and returns the governing
// existing and final stress percentages. Labeled designs win; unlabeled
// ones fill existing first, then final, in file order.
func designLoadings(designs []parse.SpidaDesign) (existing, final *float64) {
	for _, d := range designs {
		pct := maxStressPercent(d.Analysis)
		if pct == nil {
			continue
		}

		label := strings.ToLower(d.Label)
		switch {
		case strings.Contains(label, "measured") || strings.Contains(label, "existing"):
			existing = pct
		case strings.Contains(label, "recommended") || strings.Contains(label, "final") || strings.Contains(label, "proposed"):
			final = pct
		case existing == nil:
			existing = pct
		default:
			final = pct
		}
	}
	return existing, final
}

// maxStressPercent returns the highest percent-unit STRESS value in a
// design's analysis block, nil when none qualifies.
func maxStressPercent(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var cases []stressCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		var wrapped struct {
			Results []stressCase `json:"results"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		cases = wrapped.Results
	}

	var max *float64
	for _, c := range cases {
		for _, r := range c.Results {
			if !strings.EqualFold(r.AnalysisType, "STRESS") || !strings.EqualFold(r.Unit, "PERCENT") {
				continue
			}
			if r.Actual == nil {
				continue
			}
			if max == nil || *r.Actual > *max {
				v := *r.Actual
				max = &v
			}
		}
	}
	return max
}
