package parse

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cps-delivery/delivery-cli/internal/recon"
)

// allowedNodeTypes lists the Katapult node categories included in a
// comparison; anchors, references and note nodes are skipped.
var allowedNodeTypes = map[string]bool{
	"pole":              true,
	"power":             true,
	"power transformer": true,
	"joint":             true,
	"joint transformer": true,
}

// Ordered alias lists for the Katapult columns we read. The export schema
// is not stable across jobs, so each lookup tries several spellings.
var (
	poleIDOptions = []string{
		"pole_tag", "Pole Tag", "PoleTag",
		"pole_id", "Pole ID", "PoleID",
		"pole_number", "Pole Number", "PoleNumber",
		"tag", "id",
	}
	scidOptions     = []string{"scid", "scid_number", "SCID Number"}
	dlocOptions     = []string{"DLOC_number", "DLOC Number", "dlocnum", "dloc"}
	plNumberOptions = []string{"PL_number", "PL Number", "PLNumber", "pl_num"}
	nodeTypeOptions = []string{"node_type", "Node Type"}
	notesOptions    = []string{"notes", "note", "comments"}

	heightOptions = []string{
		"pole_height", "Pole Height", "height", "pole height",
		"height_ft", "height_feet", "pole_length", "length",
	}
	classOptions = []string{
		"pole_class", "Pole Class", "class", "pole class",
		"class_number", "class_no", "strength_class",
	}
	speciesOptions = []string{
		"pole_species", "Pole Species", "species", "wood_species",
		"species_type", "wood_type", "wood", "timber_type", "material",
		"birthmark_brand::pole_species",
	}
	existingLoadingOptions = []string{
		"existing_capacity_%", "Existing Capacity %",
		"existing_capacity", "existing_capacity_percent",
	}
	finalLoadingOptions = []string{
		"final_passing_capacity_%", "Final Passing Capacity %",
		"final_passing_capacity", "final_passing_capacity_percent",
	}
)

var (
	leadingDigitsRe = regexp.MustCompile(`\d+`)
	firstWordRe     = regexp.MustCompile(`\w+`)
	speciesAbbrevRe = regexp.MustCompile(`(?i)\b(SPC?|SP)\b`)

	titleCaser = cases.Title(language.AmericanEnglish)
)

// ReadKatapultXLSX reads the first sheet of a Katapult spreadsheet export
// and returns one map per data row, keyed by the header row.
func ReadKatapultXLSX(path string) ([]map[string]any, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "katapult: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("katapult: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		headers[i] = strings.TrimSpace(cell.String())
	}

	var rows []map[string]any
	for _, row := range sheet.Rows[1:] {
		m := make(map[string]any, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			s := strings.TrimSpace(cell.String())
			if s == "" {
				continue
			}
			m[headers[i]] = s
			empty = false
		}
		if !empty {
			rows = append(rows, m)
		}
	}

	zap.L().Debug("read katapult xlsx", zap.String("path", path), zap.Int("rows", len(rows)))
	return rows, nil
}

// ReadKatapultJSON reads a Katapult API/GraphQL export. Pole nodes usually
// live under a top-level "nodes" object keyed by node ID with the fields in
// an "attributes" map; both that shape and a plain node array are accepted.
func ReadKatapultJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "katapult: read json")
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, eris.Wrap(err, "katapult: parse json")
	}

	var nodes []any
	switch doc := root.(type) {
	case map[string]any:
		inner, ok := doc["nodes"]
		if !ok {
			inner = doc
		}
		switch n := inner.(type) {
		case map[string]any:
			// Keyed by node ID; iterate in sorted order so record positions
			// are stable across runs.
			ids := make([]string, 0, len(n))
			for id := range n {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				nodes = append(nodes, n[id])
			}
		case []any:
			nodes = n
		}
	case []any:
		nodes = doc
	default:
		return nil, eris.New("katapult: unsupported json root, expected object or array")
	}

	rows := make([]map[string]any, 0, len(nodes))
	for _, node := range nodes {
		obj, ok := node.(map[string]any)
		if !ok {
			continue
		}
		attrs := obj
		if inner, ok := obj["attributes"].(map[string]any); ok {
			attrs = inner
		}
		rows = append(rows, flattenAttributes(attrs))
	}

	zap.L().Debug("read katapult json", zap.String("path", path), zap.Int("nodes", len(rows)))
	return rows, nil
}

// flattenAttributes copies an attributes map, unwrapping the single-entry
// {"-Imported": "value"} style wrappers Katapult nests under each field.
func flattenAttributes(attrs map[string]any) map[string]any {
	row := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if inner, ok := v.(map[string]any); ok && len(inner) == 1 {
			for _, only := range inner {
				row[k] = only
			}
			continue
		}
		row[k] = v
	}
	return row
}

// ExtractSurveyRecords turns raw Katapult rows into engine input. Rows
// without any identifier are passed through so the engine can tally them
// as skipped; within-file duplicates are left for the matcher to flag.
func ExtractSurveyRecords(rows []map[string]any) []recon.RawRecord {
	records := make([]recon.RawRecord, 0, len(rows))

	for i, row := range rows {
		if nt := FieldString(row, nodeTypeOptions...); nt != "" && !allowedNodeTypes[strings.ToLower(nt)] {
			continue
		}

		scid := FieldString(row, scidOptions...)
		dloc := FieldString(row, dlocOptions...)

		// Prefer the SCID-DLOC composite, then the tag columns, then a bare
		// DLOC number.
		id := ""
		switch {
		case scid != "" && dloc != "":
			id = fmt.Sprintf("%s-%s", scid, dloc)
		default:
			id = FieldString(row, poleIDOptions...)
			if id == "" {
				id = dloc
			}
		}

		records = append(records, recon.RawRecord{
			ID:              id,
			SecondaryID:     FieldString(row, plNumberOptions...),
			Spec:            buildPoleSpec(row),
			ExistingLoading: FieldFloat(row, existingLoadingOptions...),
			FinalLoading:    FieldFloat(row, finalLoadingOptions...),
			Notes:           FieldString(row, notesOptions...),
			Order:           i,
		})
	}

	return records
}

// buildPoleSpec assembles "[height]-[class] [species]" from whichever
// components the row carries; "Unknown" when none are present.
func buildPoleSpec(row map[string]any) string {
	height := ""
	if raw := FieldString(row, heightOptions...); raw != "" {
		if m := leadingDigitsRe.FindString(raw); m != "" {
			height = m
		} else {
			height = raw
		}
	}

	class := ""
	if raw := FieldString(row, classOptions...); raw != "" {
		if m := firstWordRe.FindString(raw); m != "" {
			class = m
		} else {
			class = raw
		}
	}

	species := CleanSpecies(FieldString(row, speciesOptions...))

	parts := make([]string, 0, 2)
	switch {
	case height != "" && class != "":
		parts = append(parts, height+"-"+class)
	case height != "":
		parts = append(parts, height)
	case class != "":
		parts = append(parts, class)
	}
	if species != "" {
		parts = append(parts, species)
	}

	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

// CleanSpecies expands the field crews' shorthand (SP/SPC mean Southern
// Pine around here) and title-cases the rest.
func CleanSpecies(species string) string {
	species = strings.TrimSpace(species)
	if species == "" {
		return ""
	}

	upper := strings.ToUpper(species)
	if upper == "SP" || upper == "SPC" {
		return "Southern Pine"
	}

	species = titleCaser.String(species)
	return speciesAbbrevRe.ReplaceAllString(species, "Southern Pine")
}
