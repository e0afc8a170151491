package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cps-delivery/delivery-cli/internal/parse"
	"github.com/cps-delivery/delivery-cli/internal/recon"
)

// loadSurveyRecords reads a Katapult export, dispatching on extension.
// XLSX exports carry one pole per row; JSON exports carry a nodes map.
func loadSurveyRecords(path string) ([]recon.RawRecord, error) {
	var (
		rows []map[string]any
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = parse.ReadKatapultXLSX(path)
	case ".json":
		rows, err = parse.ReadKatapultJSON(path)
	default:
		return nil, eris.Errorf("unsupported katapult file type %q (want .xlsx or .json)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return parse.ExtractSurveyRecords(rows), nil
}

// loadAnalysis reads a SPIDAcalc project and its flattened records.
func loadAnalysis(path string) (*parse.SpidaProject, []recon.RawRecord, error) {
	project, err := parse.ReadSpidaProject(path)
	if err != nil {
		return nil, nil, err
	}
	return project, parse.ExtractAnalysisRecords(project), nil
}

// loadComparisonInputs parses both source files concurrently.
func loadComparisonInputs(ctx context.Context, katapultPath, spidaPath string) (survey, analysis []recon.RawRecord, err error) {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := loadSurveyRecords(katapultPath)
		if err != nil {
			return eris.Wrap(err, "load katapult file")
		}
		survey = recs
		return nil
	})

	g.Go(func() error {
		_, recs, err := loadAnalysis(spidaPath)
		if err != nil {
			return eris.Wrap(err, "load spida file")
		}
		analysis = recs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return survey, analysis, nil
}
