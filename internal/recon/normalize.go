package recon

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	idWhitespaceRe = regexp.MustCompile(`\s+`)
	idSpecialRe    = regexp.MustCompile(`[^a-z0-9-]`)
)

// MalformedRecordError reports a single source row that could not be
// normalized. It is recoverable: the row is skipped and tallied, the batch
// continues.
type MalformedRecordError struct {
	Source Source
	Order  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("recon: malformed %s record at position %d: %s", e.Source, e.Order, e.Reason)
}

// NormalizeID standardizes a pole identifier for matching: trimmed,
// lowercased, all whitespace removed, and every character outside
// [a-z0-9-] dropped. Hyphens stay; they are significant in station codes.
// The raw identifier is never mutated, only the derived key.
func NormalizeID(id string) string {
	n := strings.ToLower(strings.TrimSpace(id))
	n = idWhitespaceRe.ReplaceAllString(n, "")
	return idSpecialRe.ReplaceAllString(n, "")
}

// rescaleLoading applies the fractional-scale rule: sources sometimes export
// percentages on a 0-1 scale, so a non-null value in (0, 1] is treated as a
// fraction and scaled to 0-100. A genuinely tiny percentage (0.8% on an
// unloaded pole) is indistinguishable from a fraction and gets rescaled too;
// that ambiguity is inherent to the rule.
func rescaleLoading(v *float64) *float64 {
	if v == nil {
		return nil
	}
	val := *v
	if val > 0 && val <= 1.0 {
		val *= 100
	}
	return &val
}

// Normalize converts a raw source record into a canonical PoleRecord.
// It fails with *MalformedRecordError when no identifier can be derived.
func Normalize(src Source, raw RawRecord) (PoleRecord, error) {
	normalized := NormalizeID(raw.ID)
	numeric := ExtractNumericID(raw.ID)
	if normalized == "" && numeric == "" {
		return PoleRecord{}, &MalformedRecordError{
			Source: src,
			Order:  raw.Order,
			Reason: "empty identifier and no numeric fallback",
		}
	}

	return PoleRecord{
		Source:          src,
		RawID:           strings.TrimSpace(raw.ID),
		NormalizedID:    normalized,
		NumericID:       numeric,
		SecondaryID:     NormalizeID(raw.SecondaryID),
		Spec:            strings.TrimSpace(raw.Spec),
		ExistingLoading: rescaleLoading(raw.ExistingLoading),
		FinalLoading:    rescaleLoading(raw.FinalLoading),
		Notes:           raw.Notes,
		Order:           raw.Order,
		PassesFinal:     raw.PassesFinal,
	}, nil
}

// NormalizeAll converts a batch of raw records, dropping rows that fail
// with a logged reason. The skipped count surfaces in the result summary.
func NormalizeAll(src Source, raws []RawRecord) ([]PoleRecord, int) {
	records := make([]PoleRecord, 0, len(raws))
	skipped := 0

	for _, raw := range raws {
		rec, err := Normalize(src, raw)
		if err != nil {
			skipped++
			zap.L().Warn("skipping malformed record",
				zap.String("source", string(src)),
				zap.Int("position", raw.Order),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}

	return records, skipped
}
