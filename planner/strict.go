package planner

import (
	"context"
	"math"

	"github.com/schwerlast/routeplan/geo"
	"github.com/schwerlast/routeplan/obstacle"
	"github.com/schwerlast/routeplan/roadworks"
	"github.com/schwerlast/routeplan/valhalla"
)

// STRICT tuning for short trips: one corridor bbox per expansion step,
// growing until a clean route appears or the steps run out.
var strictStepsKm = []int{200, 400, 800, 1400, 2200}

const (
	strictPriorityCap   = 1600
	strictMaxIterations = 7
	strictMaxAvoids     = 60
	strictNewPerIter    = 7
)

// planStrict handles trips under 220 km: per bbox step, fetch obstacles once
// and run the router iteration loop against the accreted avoid list.
func (p *Planner) planStrict(ctx context.Context, s *planState) {
	s.logPhase("STRICT", "enter", "", map[string]interface{}{
		"distance_km": math.Round(s.req.distanceKm),
	})

	maxAvoids := minInt(strictMaxAvoids, s.req.maxAvoidsGlobal)

	for _, stepKm := range strictStepsKm {
		if !s.canCall(roadworks.DefaultTimeout) {
			s.logPhase("bbox_step", "stopped", "time budget insufficient for obstacle fetch", map[string]interface{}{
				"bbox_km": stepKm,
			})
			break
		}
		bound := geo.SafeBBox(s.req.start, s.req.end, float64(stepKm))
		result := p.obstacles.Fetch(ctx, roadworks.Query{
			TS:            s.req.TS,
			TZ:            s.req.TZ,
			BBox:          [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
			BufferM:       s.req.Roadworks.BufferM,
			OnlyMotorways: s.req.onlyMotorways,
		})

		if result.Meta.Error != "" {
			// a failed fetch must not erase known violators from the
			// previous step; routing against an empty set would report a
			// spurious clean
			s.logPhase("bbox_step", "degraded", result.Meta.Error, map[string]interface{}{
				"bbox_km": stepKm,
				"kept":    len(s.obstacles),
			})
			continue
		}

		corridorKm := math.Min(90, math.Max(s.req.corridorKm, float64(stepKm)*0.04))
		s.obstacles = obstacle.Prioritize(result.Obstacles, s.req.start, s.req.end, corridorKm, strictPriorityCap)
		step := stepKm
		s.bboxKmUsed = &step
		s.logPhase("bbox_step", "ok", "", map[string]interface{}{
			"bbox_km":     stepKm,
			"corridor_km": corridorKm,
			"fetched":     len(result.Obstacles),
			"used":        len(s.obstacles),
		})

		if p.strictIterate(ctx, s, maxAvoids) {
			return
		}
	}

	// nothing routable across all steps: try once more ignoring obstacles
	if s.best == nil && s.canCall(valhalla.DefaultTimeout) {
		params := s.routeParams(s.req.alternates, false)
		params.AvoidPolygons = nil
		res, err := p.router.Route(ctx, params)
		if err != nil {
			s.err = err.Error()
			s.logPhase("fallback", "error", err.Error(), nil)
			return
		}
		s.iterations++
		s.fallback = true
		s.best = s.score(res)
		s.keepAlternates(res.Alternates)
		s.logPhase("fallback", "ok", "", map[string]interface{}{"blocking": len(s.best.blocking)})
	}
}

// strictIterate runs the router loop for one bbox step. It reports true when
// a clean candidate was found and the step loop should stop.
func (p *Planner) strictIterate(ctx context.Context, s *planState, maxAvoids int) bool {
	for iter := 0; iter < strictMaxIterations; iter++ {
		if !s.canCall(valhalla.DefaultTimeout) {
			s.logPhase("iterate", "stopped", "time budget insufficient for router call", nil)
			return false
		}

		alternates := s.req.alternates
		escape := false
		if len(s.avoids) > 0 {
			alternates = 3
			escape = true
		}
		res, err := p.router.Route(ctx, s.routeParams(alternates, escape))
		if err != nil {
			if s.best == nil && s.err == "" {
				s.err = err.Error()
			}
			s.logPhase("iterate", "error", err.Error(), nil)
			return false
		}
		s.iterations++
		cand := s.score(res)
		s.best = pickBetterCandidate(s.best, cand)
		s.keepAlternates(res.Alternates)
		s.logPhase("iterate", "ok", "", map[string]interface{}{
			"avoids":   len(s.avoids),
			"blocking": len(cand.blocking),
			"hits":     cand.roadworksHits,
		})

		if len(s.best.blocking) == 0 {
			return true
		}
		if s.addAvoids(cand, strictNewPerIter, maxAvoids) == 0 {
			s.logPhase("iterate", "stopped", "no new avoid polygons addable", nil)
			return false
		}
	}
	return false
}
