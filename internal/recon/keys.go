package recon

import "regexp"

// The two exporting systems do not share a naming convention: one prefixes
// station codes ("145-PL461207"), the other exports the bare number. The
// extraction order below recovers matches across those conventions.
var (
	plDigitsRe       = regexp.MustCompile(`(?i)PL\s*-?\s*(\d+)`)
	trailingDigitsRe = regexp.MustCompile(`-\s*(\d+)\s*$`)
	digitRe          = regexp.MustCompile(`\d`)
)

// MatchKey holds the candidate equality keys for one record, in strategy
// priority order: normalized ID, numeric ID, secondary ID. Empty values
// mean the strategy is not applicable to the record.
type MatchKey struct {
	NormalizedID string
	NumericID    string
	SecondaryID  string
}

// Value returns the key for one strategy, or "" when absent.
func (k MatchKey) Value(kind MatchKeyKind) string {
	switch kind {
	case KeyNormalizedID:
		return k.NormalizedID
	case KeyNumericID:
		return k.NumericID
	case KeySecondaryID:
		return k.SecondaryID
	}
	return ""
}

// ExtractNumericID pulls the most specific digit run out of a pole ID:
//  1. digits following a "PL" marker ("145-PL461207" -> "461207")
//  2. digits after the last hyphen ("146-455194" -> "455194")
//  3. all digits in the string, as a last resort
//
// Returns "" when the ID carries no digits at all.
func ExtractNumericID(id string) string {
	if id == "" {
		return ""
	}

	if m := plDigitsRe.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	if m := trailingDigitsRe.FindStringSubmatch(id); m != nil {
		return m[1]
	}

	digits := digitRe.FindAllString(id, -1)
	if len(digits) == 0 {
		return ""
	}
	out := ""
	for _, d := range digits {
		out += d
	}
	return out
}

// DeriveKeys assembles the match keys for a normalized record. Pure and
// total: it never fails, absent strategies come back empty.
func DeriveKeys(rec PoleRecord) MatchKey {
	return MatchKey{
		NormalizedID: rec.NormalizedID,
		NumericID:    rec.NumericID,
		SecondaryID:  rec.SecondaryID,
	}
}
