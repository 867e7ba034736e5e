package obstacle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// The obstacle database frequently posts limits only in the human-readable
// text ("Verbot für Fahrzeuge über 2,10 m Breite"). These families recover
// them; comma is accepted as the decimal separator.
var (
	widthPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:breite|width)\D*([0-9]+(?:[.,][0-9]+)?)\s*m\b`),
		regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*m\s*(?:breite|width)`),
		regexp.MustCompile(`(?i)(?:über|over|width)\s*([0-9]+(?:[.,][0-9]+)?)\s*m\b`),
	}
	weightPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:gewicht|weight|last)\D*([0-9]+(?:[.,][0-9]+)?)\s*t\b`),
	}
)

// Enrich fills missing numeric limits by mining the obstacle's description
// strings. Limits already present (below the sentinel) are left untouched.
func Enrich(o *Obstacle) {
	if o == nil {
		return
	}
	text := strings.Join([]string{o.Title, o.Description, o.Reason, o.Subtitle}, " ")
	if strings.TrimSpace(text) == "" {
		return
	}
	if o.Props == nil {
		o.Props = geojson.Properties{}
	}
	if o.MaxWidthM >= NotLimiting {
		if v, ok := firstMatch(widthPatterns, text); ok {
			o.MaxWidthM = v
			o.Props["max_width_m"] = v
		}
	}
	if o.MaxWeightT >= NotLimiting {
		if v, ok := firstMatch(weightPatterns, text); ok {
			o.MaxWeightT = v
			o.Props["max_weight_t"] = v
		}
	}
}

func firstMatch(patterns []*regexp.Regexp, text string) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", ".")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 900 {
			continue
		}
		return v, true
	}
	return 0, false
}

// MotorwayOnly keeps obstacles attributable to the motorway network: a
// non-empty external_id or a source tag containing "autobahn".
func MotorwayOnly(list []*Obstacle) []*Obstacle {
	out := make([]*Obstacle, 0, len(list))
	for _, o := range list {
		if o.ExternalID != "" ||
			strings.Contains(strings.ToLower(o.SourceSystem), "autobahn") ||
			strings.Contains(strings.ToLower(o.Source), "autobahn") {
			out = append(out, o)
		}
	}
	return out
}
