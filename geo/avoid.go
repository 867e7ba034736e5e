package geo

import (
	"github.com/paulmach/orb"
)

// MinAvoidBufferKm is the floor on avoid-polygon buffering (30 m). Exclusion
// rectangles tighter than this sit inside road-geometry noise and the router
// routes straight through them.
const MinAvoidBufferKm = 0.03

// AvoidPolygon wraps a buffered obstacle geometry in an axis-aligned closed
// rectangle suitable as a router exclusion zone. kmBuffer is clamped to
// MinAvoidBufferKm. If the geometry has no usable extent the raw bound padded
// by kmBuffer*1.5 in degree terms is used instead; nil is returned only when
// there is no geometry at all.
func AvoidPolygon(g orb.Geometry, kmBuffer float64) orb.Polygon {
	if g == nil {
		return nil
	}
	if kmBuffer < MinAvoidBufferKm {
		kmBuffer = MinAvoidBufferKm
	}

	b := g.Bound()
	if !validBound(b) {
		return nil
	}
	if badLatitude(b) {
		// degenerate or polar geometry: uniform degree expansion instead of
		// the cos-latitude conversion
		d := kmBuffer * 1.5 / kmPerDegLat
		b = orb.Bound{
			Min: orb.Point{b.Min[0] - d, b.Min[1] - d},
			Max: orb.Point{b.Max[0] + d, b.Max[1] + d},
		}
		return BoundPolygon(b)
	}
	return BoundPolygon(PadBound(b, kmBuffer))
}

func validBound(b orb.Bound) bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] &&
		b.Min[0] >= -180 && b.Max[0] <= 180 &&
		b.Min[1] >= -90 && b.Max[1] <= 90
}

func badLatitude(b orb.Bound) bool {
	return b.Min[1] < -85 || b.Max[1] > 85
}
