package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/config"
	"github.com/cps-delivery/delivery-cli/pkg/nominatim"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for pole comparison and cover sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		var geocoder nominatim.Client
		if !cfg.Nominatim.Disabled {
			geocoder = nominatim.NewClient(
				nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
				nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
			)
		}

		api := newAPI(cfg, geocoder)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// api carries the server's collaborators into the handlers.
type api struct {
	uploadDir   string
	maxUpload   int64 // bytes
	allowedExts map[string]bool
	threshold   float64
	geocoder    nominatim.Client
}

func newAPI(cfg *config.Config, geocoder nominatim.Client) *api {
	dir := cfg.Server.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}

	allowed := make(map[string]bool, len(cfg.Server.AllowedExtensions))
	for _, ext := range cfg.Server.AllowedExtensions {
		allowed[ext] = true
	}

	return &api{
		uploadDir:   dir,
		maxUpload:   cfg.Server.MaxUploadMB << 20,
		allowedExts: allowed,
		threshold:   cfg.Compare.ThresholdPct,
		geocoder:    geocoder,
	}
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/pole-comparison", a.handlePoleComparison)
		r.Post("/export-csv", a.handleExportCSV)
		r.Post("/cover-sheet", a.handleCoverSheet)
	})
	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
