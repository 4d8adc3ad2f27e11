package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusSeparators = strings.NewReplacer("-", "_", " ", "_")

// CanonicalStatusToken upper-cases a raw status string and unifies separators,
// so "offer received", "offer-received" and "OFFER_RECEIVED" compare equal.
func CanonicalStatusToken(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// Casers keep internal state, so one is created per call.
	upper := cases.Upper(language.Und).String(trimmed)
	return statusSeparators.Replace(upper)
}
