package planner

import (
	"context"
	"math"

	"github.com/paulmach/orb"

	"github.com/schwerlast/routeplan/geo"
	"github.com/schwerlast/routeplan/roadworks"
)

// Precheck gives a cheap pre-planning verdict without touching the routing
// engine: one wide-corridor obstacle fetch and an intersection/limit check.
// BLOCKED is reserved for a violating obstacle sitting on the direct
// start-end line itself; corridor-only violations are WARN because a detour
// may still exist.
func (p *Planner) Precheck(ctx context.Context, req *PlanRequest) *PrecheckResult {
	// corridor half-width in km; the 200 floor is km
	corridorKm := math.Max(200, req.Roadworks.BufferM/1000) * 1.2

	bound := geo.SafeBBox(req.start, req.end, corridorKm)
	result := p.obstacles.Fetch(ctx, roadworks.Query{
		TS:            req.TS,
		TZ:            req.TZ,
		BBox:          [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		BufferM:       req.Roadworks.BufferM,
		OnlyMotorways: req.onlyMotorways,
	})

	corridor := geo.CorridorPolygon(req.start, req.end, corridorKm)
	direct := orb.LineString{req.start, req.end}

	out := &PrecheckResult{Status: StatusClean, Blocking: []BlockingWarning{}}
	directHit := false
	for _, o := range result.Obstacles {
		if !geo.Intersects(o.Geometry, corridor) {
			continue
		}
		out.Intersects++
		if !o.Blocks(req.Vehicle.WidthM, req.Vehicle.WeightT) {
			continue
		}
		centroid := geo.Centroid(o.Geometry)
		out.Blocking = append(out.Blocking, BlockingWarning{
			Title:       o.Title,
			Description: o.Description,
			Limits:      Limits{Width: o.MaxWidthM, Weight: o.MaxWeightT},
			Coords:      [2]float64{centroid[0], centroid[1]},
		})
		if geo.GeometryNearLine(o.Geometry, direct, req.avoidBufferKm) {
			directHit = true
		}
	}
	out.BlockingCount = len(out.Blocking)
	switch {
	case directHit:
		out.Status = StatusBlocked
	case out.BlockingCount > 0:
		out.Status = StatusWarn
	}
	return out
}
