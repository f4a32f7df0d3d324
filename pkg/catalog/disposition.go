package catalog

import "strings"

var (
	confirmedLabels = map[string]struct{}{
		"CONFIRMED":        {},
		"CP":               {},
		"PLANET":           {},
		"CONFIRMED PLANET": {},
		"KP":               {},
	}
	rejectedLabels = map[string]struct{}{
		"FALSE POSITIVE": {},
		"FP":             {},
		"RETRACTED":      {},
	}
)

// NormalizeDisposition upper-cases and trims a raw disposition label.
func NormalizeDisposition(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsConfirmed classifies a disposition label. Exact confirmed labels win, exact
// rejected labels lose, then any label containing CONFIRMED is accepted.
// Candidates (CANDIDATE, PC) and everything else are not confirmed.
func IsConfirmed(disposition string) bool {
	s := NormalizeDisposition(disposition)
	if _, ok := confirmedLabels[s]; ok {
		return true
	}
	if _, ok := rejectedLabels[s]; ok {
		return false
	}
	return strings.Contains(s, "CONFIRMED")
}
