package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/export"
	"github.com/cps-delivery/delivery-cli/internal/recon"
)

var (
	compareKatapult   string
	compareSpida      string
	compareThreshold  float64
	compareOutput     string
	compareFormat     string
	compareIssuesOnly bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Reconcile a Katapult export against a SPIDAcalc project",
	Long: `Pairs poles from a Katapult export (.xlsx or .json) with poles from a
SPIDAcalc project (.json), then flags spec mismatches, loading deltas over
the tolerance, missing poles, and duplicate identifiers.

Examples:
  # Print a summary to stdout
  delivery-cli compare --katapult job.xlsx --spida job.json

  # Write the full report, only rows needing review
  delivery-cli compare --katapult job.xlsx --spida job.json \
      --output report.csv --issues-only`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		threshold := compareThreshold
		if threshold < 0 {
			threshold = cfg.Compare.ThresholdPct
		}

		engine, err := recon.NewEngine(threshold)
		if err != nil {
			return err
		}

		survey, analysis, err := loadComparisonInputs(ctx, compareKatapult, compareSpida)
		if err != nil {
			return err
		}

		result := engine.Run(survey, analysis)

		rows := export.Rows(result)
		if compareIssuesOnly {
			rows = export.IssuesOnly(rows)
		}

		printSummary(cmd, result)

		if compareOutput == "" {
			return nil
		}
		if err := writeReport(compareOutput, compareFormat, rows, result); err != nil {
			return err
		}
		zap.L().Info("report written",
			zap.String("path", compareOutput),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func printSummary(cmd *cobra.Command, result recon.ReconciliationResult) {
	s := result.Summary
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Poles compared:      %d\n", s.TotalPairs)
	fmt.Fprintf(out, "Matched:             %d\n", s.Matched)
	fmt.Fprintf(out, "Missing in SPIDA:    %d\n", s.MissingInAnalysis)
	fmt.Fprintf(out, "Missing in Katapult: %d\n", s.MissingInSurvey)
	fmt.Fprintf(out, "Duplicates:          %d\n", s.Duplicates)
	fmt.Fprintf(out, "Rows needing review: %d\n", s.PairsWithIssues)
	if s.SkippedSurvey+s.SkippedAnalysis > 0 {
		fmt.Fprintf(out, "Skipped records:     %d\n", s.SkippedSurvey+s.SkippedAnalysis)
	}
	if s.Incomplete > 0 {
		fmt.Fprintf(out, "Incomplete checks:   %d\n", s.Incomplete)
	}
}

// writeReport renders rows in the requested format. When no format is
// given the output extension decides, defaulting to CSV.
func writeReport(path, format string, rows []export.Row, result recon.ReconciliationResult) error {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			format = "xlsx"
		case ".json":
			format = "json"
		default:
			format = "csv"
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create report file")
	}
	defer f.Close()

	switch format {
	case "csv":
		return export.WriteCSV(f, rows)
	case "xlsx":
		return export.WriteXLSX(f, rows)
	case "json":
		payload := struct {
			Results    []export.Row       `json:"results"`
			Duplicates recon.DuplicateIDs `json:"duplicates"`
			Summary    recon.Summary      `json:"summary"`
			Threshold  float64            `json:"threshold"`
		}{rows, result.Duplicates, result.Summary, result.Threshold}

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return eris.Wrap(err, "encode json report")
		}
		return nil
	default:
		return eris.Errorf("unknown report format %q (want csv, xlsx, or json)", format)
	}
}

func init() {
	compareCmd.Flags().StringVar(&compareKatapult, "katapult", "", "path to Katapult export, .xlsx or .json (required)")
	compareCmd.Flags().StringVar(&compareSpida, "spida", "", "path to SPIDAcalc project .json (required)")
	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", -1, "loading delta tolerance in percentage points (default from config)")
	compareCmd.Flags().StringVar(&compareOutput, "output", "", "write the full report to this path")
	compareCmd.Flags().StringVar(&compareFormat, "format", "", "report format: csv, xlsx, or json (default by extension)")
	compareCmd.Flags().BoolVar(&compareIssuesOnly, "issues-only", false, "report only rows with issues")
	_ = compareCmd.MarkFlagRequired("katapult")
	_ = compareCmd.MarkFlagRequired("spida")
	rootCmd.AddCommand(compareCmd)
}
