package planner

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/schwerlast/routeplan/geo"
	"github.com/schwerlast/routeplan/obstacle"
	"github.com/schwerlast/routeplan/valhalla"
)

// routeBufferKm is the corridor around a candidate route inside which an
// obstacle counts as "on the route" (20 m).
const routeBufferKm = 0.02

// candidate is one scored route from the engine.
type candidate struct {
	fc         *geojson.FeatureCollection
	line       orb.LineString
	distanceKm float64

	roadworksHits int
	blocking      []BlockingWarning
	violators     []*obstacle.Obstacle
}

func routeLine(fc *geojson.FeatureCollection) orb.LineString {
	var line orb.LineString
	for _, f := range fc.Features {
		if ls, ok := f.Geometry.(orb.LineString); ok {
			line = append(line, ls...)
		}
	}
	return line
}

// computeRouteStats scores a routing result against the obstacle set: every
// obstacle within bufferKm of the route is a roadworks hit, and those whose
// limits the vehicle violates become blocking warnings. avoidedIDs marks
// warnings the planner has already excluded (so the caller can see the engine
// routed through an exclusion anyway).
func computeRouteStats(
	res *valhalla.RouteResult,
	obstacles []*obstacle.Obstacle,
	bufferKm float64,
	vehicleWidthM, vehicleWeightT float64,
	avoidedIDs map[string]bool,
) *candidate {
	c := &candidate{
		fc:         res.FC,
		line:       routeLine(res.FC),
		distanceKm: res.DistanceKm,
	}
	for _, o := range obstacles {
		if o == nil || !geo.GeometryNearLine(o.Geometry, c.line, bufferKm) {
			continue
		}
		c.roadworksHits++
		if !o.Blocks(vehicleWidthM, vehicleWeightT) {
			continue
		}
		centroid := geo.Centroid(o.Geometry)
		c.violators = append(c.violators, o)
		c.blocking = append(c.blocking, BlockingWarning{
			Title:          o.Title,
			Description:    o.Description,
			Limits:         Limits{Width: o.MaxWidthM, Weight: o.MaxWeightT},
			Coords:         [2]float64{centroid[0], centroid[1]},
			AlreadyAvoided: avoidedIDs[o.ID],
		})
	}
	return c
}

// pickBetterCandidate compares two candidates lexicographically: clean beats
// dirty, then fewer blocking warnings, then fewer roadworks hits, then
// strictly shorter distance. Ties keep a. The ordering is transitive and
// pick(a, a) == a.
func pickBetterCandidate(a, b *candidate) *candidate {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	aClean := len(a.blocking) == 0
	bClean := len(b.blocking) == 0
	if aClean != bClean {
		if bClean {
			return b
		}
		return a
	}
	if len(b.blocking) != len(a.blocking) {
		if len(b.blocking) < len(a.blocking) {
			return b
		}
		return a
	}
	if b.roadworksHits != a.roadworksHits {
		if b.roadworksHits < a.roadworksHits {
			return b
		}
		return a
	}
	if a.distanceKm > 0 && b.distanceKm > 0 && b.distanceKm < a.distanceKm {
		return b
	}
	return a
}
