package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether two geometries share any point. It is the single
// boolean predicate the planner needs: bound overlap as a fast reject, then
// ring containment and segment crossing on the decomposed parts.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	pa := decompose(a)
	pb := decompose(b)

	for _, sa := range pa.segments {
		for _, sb := range pb.segments {
			if segmentsCross(sa[0], sa[1], sb[0], sb[1]) {
				return true
			}
		}
	}
	for _, p := range pa.points {
		if pb.containsPoint(p) {
			return true
		}
	}
	for _, p := range pb.points {
		if pa.containsPoint(p) {
			return true
		}
	}
	return false
}

type parts struct {
	points   []orb.Point
	segments [][2]orb.Point
	polygons []orb.Polygon
}

func (p parts) containsPoint(pt orb.Point) bool {
	for _, poly := range p.polygons {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	return false
}

func decompose(g orb.Geometry) parts {
	var p parts
	switch v := g.(type) {
	case orb.Point:
		p.points = append(p.points, v)
	case orb.MultiPoint:
		p.points = append(p.points, v...)
	case orb.LineString:
		p.addLine(v)
	case orb.MultiLineString:
		for _, ls := range v {
			p.addLine(ls)
		}
	case orb.Ring:
		p.addPolygon(orb.Polygon{v})
	case orb.Polygon:
		p.addPolygon(v)
	case orb.MultiPolygon:
		for _, poly := range v {
			p.addPolygon(poly)
		}
	case orb.Bound:
		p.addPolygon(BoundPolygon(v))
	case orb.Collection:
		for _, member := range v {
			sub := decompose(member)
			p.points = append(p.points, sub.points...)
			p.segments = append(p.segments, sub.segments...)
			p.polygons = append(p.polygons, sub.polygons...)
		}
	}
	return p
}

func (p *parts) addLine(ls orb.LineString) {
	p.points = append(p.points, ls...)
	for i := 1; i < len(ls); i++ {
		p.segments = append(p.segments, [2]orb.Point{ls[i-1], ls[i]})
	}
}

func (p *parts) addPolygon(poly orb.Polygon) {
	p.polygons = append(p.polygons, poly)
	for _, ring := range poly {
		p.points = append(p.points, ring...)
		for i := 1; i < len(ring); i++ {
			p.segments = append(p.segments, [2]orb.Point{ring[i-1], ring[i]})
		}
	}
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsCross(a1, a2, b1, b2 orb.Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	return false
}

// GeometryNearLine reports whether any part of g comes within km of the route
// line. This is the buffered-route intersection test without materialising the
// buffer polygon.
func GeometryNearLine(g orb.Geometry, line orb.LineString, km float64) bool {
	if g == nil || len(line) == 0 {
		return false
	}
	if !PadBound(line.Bound(), km).Intersects(g.Bound()) {
		return false
	}

	p := decompose(g)
	midLat := (line.Bound().Min[1] + line.Bound().Max[1]) / 2

	// route line inside an obstacle polygon counts as distance zero
	for _, pt := range line {
		if p.containsPoint(pt) {
			return true
		}
	}
	for i := 1; i < len(line); i++ {
		for _, s := range p.segments {
			if segmentsCross(line[i-1], line[i], s[0], s[1]) {
				return true
			}
		}
	}

	// otherwise the minimum is attained at a vertex of one side against a
	// segment of the other
	for _, pt := range p.points {
		if pointToLineKm(pt, line, midLat) <= km {
			return true
		}
	}
	for _, pt := range line {
		for _, s := range p.segments {
			if pointToSegmentKm(pt, s[0], s[1], midLat) <= km {
				return true
			}
		}
		for _, op := range p.points {
			if pointDistKm(pt, op, midLat) <= km {
				return true
			}
		}
	}
	return false
}

func pointToLineKm(pt orb.Point, line orb.LineString, midLat float64) float64 {
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := pointToSegmentKm(pt, line[i-1], line[i], midLat); d < best {
			best = d
		}
	}
	if len(line) == 1 {
		best = pointDistKm(pt, line[0], midLat)
	}
	return best
}

// local equirectangular projection; accurate enough at the 20 m scale the
// planner uses for route buffers
func toKmPlane(p orb.Point, midLat float64) (float64, float64) {
	return p[0] * kmPerDegLon * math.Cos(midLat*math.Pi/180), p[1] * kmPerDegLat
}

func pointDistKm(a, b orb.Point, midLat float64) float64 {
	ax, ay := toKmPlane(a, midLat)
	bx, by := toKmPlane(b, midLat)
	return math.Hypot(ax-bx, ay-by)
}

func pointToSegmentKm(p, a, b orb.Point, midLat float64) float64 {
	px, py := toKmPlane(p, midLat)
	ax, ay := toKmPlane(a, midLat)
	bx, by := toKmPlane(b, midLat)

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}
