package planner

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.viam.com/test"

	"github.com/schwerlast/routeplan/obstacle"
	"github.com/schwerlast/routeplan/valhalla"
)

func lineResult(distanceKm float64, points ...orb.Point) *valhalla.RouteResult {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString(points)))
	return &valhalla.RouteResult{FC: fc, DistanceKm: distanceKm}
}

func TestComputeRouteStats(t *testing.T) {
	res := lineResult(30, orb.Point{7.0, 51.0}, orb.Point{7.3, 51.0})

	onRoute := &obstacle.Obstacle{
		ID: "narrow", Geometry: orb.Point{7.1, 51.0},
		MaxWidthM: 2.5, MaxWeightT: obstacle.NotLimiting,
		Title: "Engstelle",
	}
	wideEnough := &obstacle.Obstacle{
		ID: "open", Geometry: orb.Point{7.2, 51.0},
		MaxWidthM: obstacle.NotLimiting, MaxWeightT: obstacle.NotLimiting,
	}
	offRoute := &obstacle.Obstacle{
		ID: "far", Geometry: orb.Point{7.1, 51.5},
		MaxWidthM: 2.0, MaxWeightT: obstacle.NotLimiting,
	}

	obstacles := []*obstacle.Obstacle{onRoute, wideEnough, offRoute, nil}
	c := computeRouteStats(res, obstacles, routeBufferKm, 3, 40, map[string]bool{"narrow": true})

	// both on-route obstacles count as hits, only the narrow one blocks
	test.That(t, c.roadworksHits, test.ShouldEqual, 2)
	test.That(t, c.blocking, test.ShouldHaveLength, 1)
	test.That(t, c.roadworksHits, test.ShouldBeGreaterThanOrEqualTo, len(c.blocking))
	test.That(t, c.blocking[0].Title, test.ShouldEqual, "Engstelle")
	test.That(t, c.blocking[0].Limits.Width, test.ShouldEqual, 2.5)
	test.That(t, c.blocking[0].AlreadyAvoided, test.ShouldBeTrue)
	test.That(t, c.blocking[0].Coords[0], test.ShouldAlmostEqual, 7.1)

	// an obstacle whose limits the vehicle satisfies never produces a warning
	small := computeRouteStats(res, []*obstacle.Obstacle{wideEnough}, routeBufferKm, 3, 40, nil)
	test.That(t, small.blocking, test.ShouldHaveLength, 0)
	test.That(t, small.roadworksHits, test.ShouldEqual, 1)
}

func TestPickBetterCandidate(t *testing.T) {
	clean := &candidate{distanceKm: 100}
	cleanShort := &candidate{distanceKm: 80}
	oneBlock := &candidate{distanceKm: 50, blocking: make([]BlockingWarning, 1), roadworksHits: 1}
	twoBlocks := &candidate{distanceKm: 40, blocking: make([]BlockingWarning, 2), roadworksHits: 2}
	oneBlockManyHits := &candidate{distanceKm: 45, blocking: make([]BlockingWarning, 1), roadworksHits: 5}

	// clean beats blocked regardless of distance
	test.That(t, pickBetterCandidate(oneBlock, clean), test.ShouldEqual, clean)
	test.That(t, pickBetterCandidate(clean, oneBlock), test.ShouldEqual, clean)
	// fewer blocking warnings win
	test.That(t, pickBetterCandidate(twoBlocks, oneBlock), test.ShouldEqual, oneBlock)
	// fewer roadworks hits break blocking ties
	test.That(t, pickBetterCandidate(oneBlockManyHits, oneBlock), test.ShouldEqual, oneBlock)
	// shorter distance breaks full ties
	test.That(t, pickBetterCandidate(clean, cleanShort), test.ShouldEqual, cleanShort)
	// equal candidates keep a
	other := &candidate{distanceKm: 100}
	test.That(t, pickBetterCandidate(clean, other), test.ShouldEqual, clean)

	// idempotent
	test.That(t, pickBetterCandidate(clean, clean), test.ShouldEqual, clean)
	// nil handling
	test.That(t, pickBetterCandidate(nil, clean), test.ShouldEqual, clean)
	test.That(t, pickBetterCandidate(clean, nil), test.ShouldEqual, clean)

	// transitivity across the ordering chain
	best := pickBetterCandidate(pickBetterCandidate(twoBlocks, oneBlock), cleanShort)
	direct := pickBetterCandidate(twoBlocks, pickBetterCandidate(oneBlock, cleanShort))
	test.That(t, best, test.ShouldEqual, cleanShort)
	test.That(t, direct, test.ShouldEqual, cleanShort)
}
