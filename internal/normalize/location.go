package normalize

import (
	"regexp"
	"strings"
)

const maxFreeTextLocation = 40

// Location tokens that show up in observation fields, in match precedence
// order. These mirror how the paddock dashboard buckets animals.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPIQUETE\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\bPROJETO\s*([A-Z0-9]+)\b`),
	regexp.MustCompile(`(?i)\bCONFINA\w*\b`),
	regexp.MustCompile(`(?i)\bLOTE\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\bGUARITA\b`),
	regexp.MustCompile(`(?i)\bCABANHA\b`),
	regexp.MustCompile(`(?i)\bPISTA\s*(\d+)\b`),
}

var locationNames = []string{"PIQUETE", "PROJETO", "CONFINAMENTO", "LOTE", "GUARITA", "CABANHA", "PISTA"}

var piqueteLabelRe = regexp.MustCompile(`^PIQUETE\s*(\d+)$`)
var spacesRe = regexp.MustCompile(`\s+`)

// ExtractLocationFromFreeText pulls a known location token out of an
// observation/comment field. When nothing matches, the raw text is kept,
// truncated, so manual notes still group somewhere visible.
func ExtractLocationFromFreeText(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}

	for i, re := range locationPatterns {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return locationNames[i] + " " + strings.ToUpper(m[1])
		}
		return locationNames[i]
	}

	out := strings.ToUpper(spacesRe.ReplaceAllString(t, " "))
	if runes := []rune(out); len(runes) > maxFreeTextLocation {
		out = string(runes[:maxFreeTextLocation])
	}
	return out
}

// NormalizeGroupingKey merges equivalent location labels into one aggregation
// bucket. "PIQUETE 3" and "PROJETO 3" are the same physical enclosure; the
// dashboard groups them under "PROJETO 3" and the reports must agree with it.
func NormalizeGroupingKey(label string) string {
	l := strings.ToUpper(spacesRe.ReplaceAllString(strings.TrimSpace(label), " "))
	if l == "" {
		return "SEM LOCALIZAÇÃO"
	}
	if m := piqueteLabelRe.FindStringSubmatch(l); m != nil {
		return "PROJETO " + m[1]
	}
	return l
}
