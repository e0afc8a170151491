package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/coversheet"
	"github.com/cps-delivery/delivery-cli/internal/parse"
	"github.com/cps-delivery/delivery-cli/pkg/nominatim"
)

var (
	coverSpida     string
	coverOutput    string
	coverNoGeocode bool
)

var coverCmd = &cobra.Command{
	Use:   "cover",
	Short: "Build a project cover sheet from a SPIDAcalc project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		project, err := parse.ReadSpidaProject(coverSpida)
		if err != nil {
			return err
		}

		meta := coversheet.Extract(ctx, project, coverGeocoder())

		out := cmd.OutOrStdout()
		if coverOutput != "" {
			f, err := os.Create(coverOutput)
			if err != nil {
				return eris.Wrap(err, "create cover sheet file")
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(meta); err != nil {
			return eris.Wrap(err, "encode cover sheet")
		}

		zap.L().Info("cover sheet built",
			zap.String("job", meta.JobNumber),
			zap.Int("poles", len(meta.Poles)),
		)
		return nil
	},
}

// coverGeocoder builds the reverse-geocoding client from config; nil when
// geocoding is switched off.
func coverGeocoder() nominatim.Client {
	if coverNoGeocode || cfg.Nominatim.Disabled {
		return nil
	}
	return nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
	)
}

func init() {
	coverCmd.Flags().StringVar(&coverSpida, "spida", "", "path to SPIDAcalc project .json (required)")
	coverCmd.Flags().StringVar(&coverOutput, "output", "", "write the cover sheet JSON to this path (default stdout)")
	coverCmd.Flags().BoolVar(&coverNoGeocode, "no-geocode", false, "skip the project address lookup")
	_ = coverCmd.MarkFlagRequired("spida")
	rootCmd.AddCommand(coverCmd)
}
