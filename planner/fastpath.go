package planner

import (
	"context"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/schwerlast/routeplan/geo"
	"github.com/schwerlast/routeplan/obstacle"
	"github.com/schwerlast/routeplan/roadworks"
	"github.com/schwerlast/routeplan/valhalla"
)

// FAST_PATH tuning for long trips: obstacles are fetched along a probe route
// instead of one giant corridor bbox.
const (
	fastChunkKm     = 260.0
	fastOverlapKm   = 45.0
	fastMaxTiles    = 4
	fastMergeCap    = 1800
	fastPriorityCap = 1400

	fastMaxIterations = 8
	fastMaxAvoids     = 50
	fastNewPerIter    = 8
)

// planFastPath handles trips of at least 220 km great-circle distance: probe
// route, tiled obstacle retrieval along it, then the convergence loop.
func (p *Planner) planFastPath(ctx context.Context, s *planState) {
	s.logPhase("FAST_PATH", "enter", "", map[string]interface{}{
		"distance_km": math.Round(s.req.distanceKm),
	})

	if !s.canCall(valhalla.DefaultTimeout) {
		s.logPhase("probe", "skipped", "time budget insufficient for router call", nil)
		return
	}
	probe, err := p.router.Route(ctx, s.routeParams(s.req.alternates, false))
	if err != nil {
		s.err = err.Error()
		s.logPhase("probe", "error", err.Error(), nil)
		return
	}
	s.iterations++
	s.logPhase("probe", "ok", "", map[string]interface{}{"distance_km": probe.DistanceKm})

	p.fetchTiledObstacles(ctx, s, routeLine(probe.FC))

	s.best = s.score(probe)
	s.keepAlternates(probe.Alternates)
	if len(s.best.blocking) == 0 {
		s.logPhase("score", "clean", "", map[string]interface{}{"hits": s.best.roadworksHits})
		return
	}
	s.logPhase("score", "blocked", "", map[string]interface{}{
		"blocking": len(s.best.blocking),
		"hits":     s.best.roadworksHits,
	})

	maxAvoids := minInt(fastMaxAvoids, s.req.maxAvoidsGlobal)
	for iter := 0; iter < fastMaxIterations; iter++ {
		if !s.canCall(valhalla.DefaultTimeout) {
			s.logPhase("iterate", "stopped", "time budget insufficient for router call", nil)
			break
		}
		if s.addAvoids(s.best, fastNewPerIter, maxAvoids) == 0 {
			s.logPhase("iterate", "stopped", "no new avoid polygons addable", nil)
			break
		}
		res, err := p.router.Route(ctx, s.routeParams(3, true))
		if err != nil {
			s.logPhase("iterate", "error", err.Error(), nil)
			break
		}
		s.iterations++
		cand := s.score(res)
		s.best = pickBetterCandidate(s.best, cand)
		s.keepAlternates(res.Alternates)
		s.logPhase("iterate", "ok", "", map[string]interface{}{
			"iteration": iter + 1,
			"avoids":    len(s.avoids),
			"blocking":  len(cand.blocking),
		})
		if len(s.best.blocking) == 0 {
			break
		}
	}
}

// fetchTiledObstacles chunks the probe route into overlapping bboxes,
// subsamples at most fastMaxTiles of them and fetches all tiles in parallel.
func (p *Planner) fetchTiledObstacles(ctx context.Context, s *planState, line orb.LineString) {
	expandKm := math.Min(28, s.req.corridorKm)
	if expandKm < 10 {
		expandKm = 10
	}
	boxes := geo.ChunkPolylineToBBoxes(line, fastChunkKm, fastOverlapKm, expandKm)
	tiles := geo.SpreadPick(boxes, fastMaxTiles)

	if !s.canCall(roadworks.DefaultTimeout) {
		s.logPhase("tiles", "skipped", "time budget insufficient for obstacle fetch", nil)
		return
	}

	results := make([]roadworks.Result, len(tiles))
	var wg sync.WaitGroup
	for i, tile := range tiles {
		wg.Add(1)
		i, tile := i, tile
		goutils.PanicCapturingGo(func() {
			defer wg.Done()
			results[i] = p.obstacles.Fetch(ctx, roadworks.Query{
				TS:   s.req.TS,
				TZ:   s.req.TZ,
				BBox: [4]float64{tile.Min[0], tile.Min[1], tile.Max[0], tile.Max[1]},
				// tiles already hug the motorway probe; do not filter further
				OnlyMotorways: false,
				BufferM:       s.req.Roadworks.BufferM,
			})
		})
	}
	wg.Wait()

	batches := make([][]*obstacle.Obstacle, 0, len(results))
	var failures error
	fetched := 0
	for _, r := range results {
		batches = append(batches, r.Obstacles)
		fetched += len(r.Obstacles)
		if r.Meta.Error != "" {
			failures = multierr.Append(failures, errors.New(r.Meta.Error))
		}
	}
	merged := obstacle.Merge(batches, fastMergeCap)
	s.obstacles = obstacle.Prioritize(merged, s.req.start, s.req.end, s.req.corridorKm, fastPriorityCap)

	reason := ""
	if failures != nil {
		reason = failures.Error()
	}
	s.logPhase("tiles", "ok", reason, map[string]interface{}{
		"tiles":   len(tiles),
		"fetched": fetched,
		"used":    len(s.obstacles),
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
