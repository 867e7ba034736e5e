package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"go.viam.com/test"
)

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return BoundPolygon(orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}})
}

func TestIntersects(t *testing.T) {
	a := square(0, 0, 2, 2)

	test.That(t, Intersects(a, square(1, 1, 3, 3)), test.ShouldBeTrue)
	test.That(t, Intersects(a, square(3, 3, 4, 4)), test.ShouldBeFalse)
	// containment without ring crossing
	test.That(t, Intersects(a, square(0.5, 0.5, 1.5, 1.5)), test.ShouldBeTrue)

	test.That(t, Intersects(orb.Point{1, 1}, a), test.ShouldBeTrue)
	test.That(t, Intersects(orb.Point{5, 5}, a), test.ShouldBeFalse)

	crossing := orb.LineString{{-1, 1}, {3, 1}}
	outside := orb.LineString{{-1, 5}, {3, 5}}
	test.That(t, Intersects(crossing, a), test.ShouldBeTrue)
	test.That(t, Intersects(outside, a), test.ShouldBeFalse)

	test.That(t, Intersects(nil, a), test.ShouldBeFalse)
	test.That(t, Intersects(a, nil), test.ShouldBeFalse)
}

func TestIntersectsMultiPolygon(t *testing.T) {
	mp := orb.MultiPolygon{square(0, 0, 1, 1), square(5, 5, 6, 6)}
	test.That(t, Intersects(mp, orb.Point{5.5, 5.5}), test.ShouldBeTrue)
	test.That(t, Intersects(mp, orb.Point{3, 3}), test.ShouldBeFalse)
}

func TestGeometryNearLine(t *testing.T) {
	line := orb.LineString{{7.0, 51.0}, {7.2, 51.0}}

	// ~0.001 deg of latitude is about 110 m
	near := orb.Point{7.1, 51.0001} // ~11 m off the line
	far := orb.Point{7.1, 51.01}    // ~1.1 km off the line

	test.That(t, GeometryNearLine(near, line, 0.02), test.ShouldBeTrue)
	test.That(t, GeometryNearLine(far, line, 0.02), test.ShouldBeFalse)
	test.That(t, GeometryNearLine(far, line, 2.0), test.ShouldBeTrue)

	// crossing line is distance zero
	crossing := orb.LineString{{7.1, 50.9}, {7.1, 51.1}}
	test.That(t, GeometryNearLine(crossing, line, 0.001), test.ShouldBeTrue)

	// route running through a polygon obstacle
	poly := square(7.05, 50.95, 7.15, 51.05)
	test.That(t, GeometryNearLine(poly, line, 0.001), test.ShouldBeTrue)

	test.That(t, GeometryNearLine(nil, line, 1), test.ShouldBeFalse)
	test.That(t, GeometryNearLine(near, orb.LineString{}, 1), test.ShouldBeFalse)
}

func TestAvoidPolygon(t *testing.T) {
	pt := orb.Point{7.0, 51.0}

	// zero buffer clamps to the 30 m minimum
	poly := AvoidPolygon(pt, 0)
	test.That(t, poly, test.ShouldNotBeNil)
	b := poly.Bound()
	heightKm := Haversine(orb.Point{7.0, b.Min[1]}, orb.Point{7.0, b.Max[1]})
	test.That(t, heightKm, test.ShouldBeBetween, 0.055, 0.065)

	// wider buffers grow the rectangle
	wide := AvoidPolygon(pt, 1.0).Bound()
	test.That(t, wide.Min[1], test.ShouldBeLessThan, b.Min[1])
	test.That(t, wide.Max[1], test.ShouldBeGreaterThan, b.Max[1])

	// closed 5-vertex rectangle
	test.That(t, len(poly[0]), test.ShouldEqual, 5)
	test.That(t, poly[0][0], test.ShouldResemble, poly[0][4])

	test.That(t, AvoidPolygon(nil, 1), test.ShouldBeNil)
}

func TestAvoidPolygonLineObstacle(t *testing.T) {
	line := orb.LineString{{7.0, 51.0}, {7.02, 51.0}}
	poly := AvoidPolygon(line, 0.06)
	test.That(t, poly, test.ShouldNotBeNil)
	test.That(t, Intersects(line, poly), test.ShouldBeTrue)
	// the buffered box must strictly contain the line's own bbox
	test.That(t, poly.Bound().Min[0], test.ShouldBeLessThan, 7.0)
	test.That(t, poly.Bound().Max[0], test.ShouldBeGreaterThan, 7.02)
}
