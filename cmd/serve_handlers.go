package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cps-delivery/delivery-cli/internal/coversheet"
	"github.com/cps-delivery/delivery-cli/internal/export"
	"github.com/cps-delivery/delivery-cli/internal/parse"
	"github.com/cps-delivery/delivery-cli/internal/recon"
)

// verification reports identifier problems the way the report reviewers
// read them: per side, by raw pole number.
type verification struct {
	MissingInSpida       []string          `json:"missing_in_spida"`
	MissingInKatapult    []string          `json:"missing_in_katapult"`
	DuplicatesInSpida    []string          `json:"duplicates_in_spida"`
	DuplicatesInKatapult []string          `json:"duplicates_in_katapult"`
	FormattingIssues     []formattingIssue `json:"formatting_issues"`
}

type formattingIssue struct {
	PoleID string `json:"poleId"`
	Issue  string `json:"issue"`
}

type comparisonSummary struct {
	TotalPoles      int     `json:"total_poles"`
	PolesWithIssues int     `json:"poles_with_issues"`
	Threshold       float64 `json:"threshold"`
}

type comparisonResponse struct {
	Results      []export.Row      `json:"results"`
	Issues       []export.Row      `json:"issues"`
	Verification verification      `json:"verification"`
	Summary      comparisonSummary `json:"summary"`
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handlePoleComparison(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	katapultPath, cleanupK, err := a.saveUpload(r, "katapult_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanupK()

	spidaPath, cleanupS, err := a.saveUpload(r, "spida_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanupS()

	threshold := a.threshold
	if raw := r.FormValue("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
	}

	engine, err := recon.NewEngine(threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	survey, analysis, err := loadComparisonInputs(r.Context(), katapultPath, spidaPath)
	if err != nil {
		zap.L().Error("comparison inputs failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := engine.Run(survey, analysis)
	rows := export.Rows(result)

	writeJSON(w, http.StatusOK, comparisonResponse{
		Results:      rows,
		Issues:       export.IssuesOnly(rows),
		Verification: buildVerification(result),
		Summary: comparisonSummary{
			TotalPoles:      len(rows),
			PolesWithIssues: result.Summary.PairsWithIssues,
			Threshold:       threshold,
		},
	})
}

// exportCSVPayload is the posted report body: rows previously returned by
// the comparison endpoint, re-submitted for download.
type exportCSVPayload struct {
	Results    []export.Row `json:"results"`
	ExportType string       `json:"export_type"`
}

func (a *api) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var payload exportCSVPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rows := payload.Results
	kind := "all"
	if strings.EqualFold(payload.ExportType, "issues") {
		rows = export.IssuesOnly(rows)
		kind = "issues"
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=pole_comparison_%s.csv", kind))
	if err := export.WriteCSV(w, rows); err != nil {
		zap.L().Error("csv export failed", zap.Error(err))
	}
}

func (a *api) handleCoverSheet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	spidaPath, cleanup, err := a.saveUpload(r, "spida_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	if strings.ToLower(filepath.Ext(spidaPath)) != ".json" {
		writeError(w, http.StatusBadRequest, "spida_file must be .json")
		return
	}

	project, err := parse.ReadSpidaProject(spidaPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := coversheet.Extract(r.Context(), project, a.geocoder)
	writeJSON(w, http.StatusOK, meta)
}

// saveUpload persists one multipart file under a random name, preserving
// only the extension. The caller removes the file via the cleanup func.
func (a *api) saveUpload(r *http.Request, field string) (string, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, eris.Errorf("%s is required", field)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !a.allowedExts[ext] {
		return "", nil, eris.Errorf("%s: file type %q not allowed", field, ext)
	}

	path := filepath.Join(a.uploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", nil, eris.Wrap(err, "persist upload")
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(file); err != nil {
		os.Remove(path)
		return "", nil, eris.Wrap(err, "persist upload")
	}

	return path, func() { os.Remove(path) }, nil
}

// buildVerification folds the reconciliation result into the per-side view
// the review UI expects. A matched pair whose raw identifiers differ is a
// formatting issue, not a data issue.
func buildVerification(result recon.ReconciliationResult) verification {
	v := verification{
		MissingInSpida:       []string{},
		MissingInKatapult:    []string{},
		DuplicatesInSpida:    result.Duplicates.Analysis,
		DuplicatesInKatapult: result.Duplicates.Survey,
		FormattingIssues:     []formattingIssue{},
	}
	if v.DuplicatesInSpida == nil {
		v.DuplicatesInSpida = []string{}
	}
	if v.DuplicatesInKatapult == nil {
		v.DuplicatesInKatapult = []string{}
	}

	for _, p := range result.Pairs {
		switch {
		case p.Analysis == nil:
			v.MissingInSpida = append(v.MissingInSpida, p.Survey.RawID)
		case p.Survey == nil:
			v.MissingInKatapult = append(v.MissingInKatapult, p.Analysis.RawID)
		case p.MatchedBy != recon.KeyNormalizedID && p.Survey.RawID != p.Analysis.RawID:
			v.FormattingIssues = append(v.FormattingIssues, formattingIssue{
				PoleID: p.Survey.RawID,
				Issue: fmt.Sprintf("Format mismatch: Katapult %q vs SPIDA %q (matched by %s)",
					p.Survey.RawID, p.Analysis.RawID, p.MatchedBy),
			})
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
