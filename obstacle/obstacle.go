// Package obstacle normalises the road-work features returned by the obstacle
// service into one canonical schema and provides the dedup/merge/prioritise
// pipeline the planner consumes. Upstream features arrive with inconsistent
// property names, sentinel zeros and free-text limits; nothing downstream of
// this package touches raw properties.
package obstacle

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// NotLimiting is the canonical sentinel for an unknown limit. An upstream
// value of 0 (or anything above 900) means "no posted limit", not "limit 0".
const NotLimiting = 999.0

// Obstacle is one active road work or restriction in canonical form.
type Obstacle struct {
	ID       string
	Geometry orb.Geometry

	MaxWidthM  float64
	MaxWeightT float64

	Title       string
	Description string
	Reason      string
	Subtitle    string

	ExternalID   string
	Source       string
	SourceSystem string

	ValidFrom string
	ValidTo   string

	// Props keeps the raw feature properties for proxy passthrough.
	Props geojson.Properties
}

var widthAliases = []string{"max_width_m", "max_width", "maxwidth", "width_limit_m"}

var weightAliases = []string{"max_weight_t", "max_weight", "maxweight", "weight_limit_t"}

// FromFeature pins the canonical schema onto a raw feature. The returned
// obstacle always has a stable ID and both limits resolved (possibly to the
// NotLimiting sentinel); free-text enrichment runs as part of normalisation.
func FromFeature(f *geojson.Feature) *Obstacle {
	if f == nil || f.Geometry == nil {
		return nil
	}
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}

	o := &Obstacle{
		Geometry:     f.Geometry,
		MaxWidthM:    canonicalLimit(props, widthAliases),
		MaxWeightT:   canonicalLimit(props, weightAliases),
		Title:        propString(props, "title"),
		Description:  propString(props, "description"),
		Reason:       propString(props, "reason"),
		Subtitle:     propString(props, "subtitle"),
		ExternalID:   propString(props, "external_id"),
		Source:       propString(props, "source"),
		SourceSystem: propString(props, "source_system"),
		ValidFrom:    propString(props, "valid_from"),
		ValidTo:      propString(props, "valid_to"),
		Props:        props,
	}
	o.ID = StableID(f)
	Enrich(o)
	return o
}

// StableID derives an identity that holds across tiles within one planning
// call: the first non-empty of roadwork_id, external_id, restriction_id, id,
// else the 3-decimal bbox signature of the geometry.
func StableID(f *geojson.Feature) string {
	for _, key := range []string{"roadwork_id", "external_id", "restriction_id", "id"} {
		if v := propString(f.Properties, key); v != "" {
			return v
		}
	}
	if f.ID != nil {
		if s := fmt.Sprintf("%v", f.ID); s != "" && s != "<nil>" {
			return s
		}
	}
	b := f.Geometry.Bound()
	return fmt.Sprintf("bbox:%.3f,%.3f,%.3f,%.3f", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Blocks reports whether this obstacle's posted limits are below the given
// vehicle dimensions.
func (o *Obstacle) Blocks(vehicleWidthM, vehicleWeightT float64) bool {
	return o.MaxWidthM < vehicleWidthM || o.MaxWeightT < vehicleWeightT
}

// Limiting reports whether the obstacle carries any real limit at all.
func (o *Obstacle) Limiting() bool {
	return o.MaxWidthM < NotLimiting || o.MaxWeightT < NotLimiting
}

func canonicalLimit(props geojson.Properties, aliases []string) float64 {
	for _, key := range aliases {
		v, ok := props[key]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		if f > 0 && f <= 900 {
			return f
		}
	}
	return NotLimiting
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func propString(props geojson.Properties, key string) string {
	if props == nil {
		return ""
	}
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}
