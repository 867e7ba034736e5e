// Package planner is the time-budgeted orchestrator at the core of the
// service. It combines the obstacle service, the avoid-polygon geometry and
// the routing engine into an iterative loop that converges on a clean route,
// returns a best-effort route with warnings, or declares the corridor
// blocked. One Plan invocation exclusively owns its obstacle set, avoid set
// and candidate list; nothing persists between invocations.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/schwerlast/routeplan/geo"
	"github.com/schwerlast/routeplan/obstacle"
	"github.com/schwerlast/routeplan/roadworks"
	"github.com/schwerlast/routeplan/valhalla"
)

const (
	// totalBudget bounds one whole plan invocation; budgetSlack is the head
	// room a phase must leave after its own timeout before it may start an
	// external call.
	totalBudget = 55 * time.Second
	budgetSlack = 2500 * time.Millisecond

	// fastPathThresholdKm splits the two strategies by great-circle distance.
	fastPathThresholdKm = 220.0

	maxAlternatesKept = 2
)

// ObstacleSource fetches active obstacles for a bbox. The obstacle client's
// contract applies: failures surface in Result.Meta.Error, never as a panic
// or error value.
type ObstacleSource interface {
	Fetch(ctx context.Context, q roadworks.Query) roadworks.Result
}

// Router performs one truck-costing routing call.
type Router interface {
	Route(ctx context.Context, p valhalla.RouteParams) (*valhalla.RouteResult, error)
}

// Planner plans heavy-vehicle routes around active road works.
type Planner struct {
	obstacles ObstacleSource
	router    Router
	clock     clock.Clock
	logger    golog.Logger
}

// NewPlanner wires a planner from its two upstreams.
func NewPlanner(obstacles ObstacleSource, router Router, logger golog.Logger) *Planner {
	return &Planner{obstacles: obstacles, router: router, clock: clock.New(), logger: logger}
}

// NewPlannerWithClock is NewPlanner with an injected clock for budget tests.
func NewPlannerWithClock(obstacles ObstacleSource, router Router, c clock.Clock, logger golog.Logger) *Planner {
	return &Planner{obstacles: obstacles, router: router, clock: c, logger: logger}
}

// planState is the per-invocation working set.
type planState struct {
	req      *PlanRequest
	deadline time.Time
	clock    clock.Clock

	phases []PhaseEntry

	obstacles []*obstacle.Obstacle
	avoids    []orb.Polygon
	avoidIDs  map[string]bool

	best       *candidate
	alternates []valhalla.Alternate
	iterations int
	bboxKmUsed *int
	fallback   bool
	err        string
}

func (s *planState) timeLeft() time.Duration {
	return s.deadline.Sub(s.clock.Now())
}

// canCall guards every external call: the call's own timeout plus slack must
// still fit in the budget.
func (s *planState) canCall(timeout time.Duration) bool {
	return s.timeLeft() >= timeout+budgetSlack
}

func (s *planState) logPhase(name, result, reason string, fields map[string]interface{}) {
	entry := PhaseEntry{"phase": name, "result": result}
	if reason != "" {
		entry["reason"] = reason
	}
	for k, v := range fields {
		entry[k] = v
	}
	s.phases = append(s.phases, entry)
}

// addAvoids converts the narrowest not-yet-avoided violators of cand into
// avoid polygons, up to perIter new ones and the global cap. The avoid set is
// append-only within a plan call.
func (s *planState) addAvoids(cand *candidate, perIter, total int) int {
	if cand == nil {
		return 0
	}
	fresh := make([]*obstacle.Obstacle, 0, len(cand.violators))
	for _, o := range cand.violators {
		if !s.avoidIDs[o.ID] {
			fresh = append(fresh, o)
		}
	}
	// narrowest first: the tightest limit is the likeliest true blocker
	sort.SliceStable(fresh, func(i, j int) bool {
		if fresh[i].MaxWidthM != fresh[j].MaxWidthM {
			return fresh[i].MaxWidthM < fresh[j].MaxWidthM
		}
		return fresh[i].MaxWeightT < fresh[j].MaxWeightT
	})

	added := 0
	for _, o := range fresh {
		if added >= perIter || len(s.avoids) >= total {
			break
		}
		poly := geo.AvoidPolygon(o.Geometry, s.req.avoidBufferKm)
		if poly == nil {
			continue
		}
		s.avoids = append(s.avoids, poly)
		s.avoidIDs[o.ID] = true
		added++
	}
	return added
}

// keepAlternates folds new alternates into the kept set, at most
// maxAlternatesKept distinct by distance.
func (s *planState) keepAlternates(alts []valhalla.Alternate) {
	for _, alt := range alts {
		if alt.FC == nil {
			continue
		}
		distinct := true
		for _, kept := range s.alternates {
			if kept.DistanceKm == alt.DistanceKm {
				distinct = false
				break
			}
		}
		if distinct && len(s.alternates) < maxAlternatesKept {
			s.alternates = append(s.alternates, alt)
		}
	}
}

func (s *planState) routeParams(alternates int, escape bool) valhalla.RouteParams {
	avoids := s.avoids
	if len(avoids) > s.req.softMax {
		avoids = avoids[:s.req.softMax]
	}
	return valhalla.RouteParams{
		Start:         s.req.start,
		End:           s.req.end,
		WidthM:        s.req.Vehicle.WidthM,
		HeightM:       s.req.Vehicle.HeightM,
		WeightT:       s.req.Vehicle.WeightT,
		AxleLoadT:     s.req.Vehicle.AxleLoadT,
		Hazmat:        s.req.hazmat,
		AvoidPolygons: avoids,
		Alternates:    alternates,
		Language:      s.req.DirectionsLanguage,
		EscapeMode:    escape,
	}
}

func (s *planState) score(res *valhalla.RouteResult) *candidate {
	return computeRouteStats(
		res, s.obstacles, routeBufferKm,
		s.req.Vehicle.WidthM, s.req.Vehicle.WeightT, s.avoidIDs,
	)
}

// Plan runs one full planning invocation and always returns an envelope.
func (p *Planner) Plan(ctx context.Context, req *PlanRequest) *PlanEnvelope {
	s := &planState{
		req:      req,
		deadline: p.clock.Now().Add(totalBudget),
		clock:    p.clock,
		avoidIDs: map[string]bool{},
	}

	if req.distanceKm >= fastPathThresholdKm {
		p.planFastPath(ctx, s)
	} else {
		p.planStrict(ctx, s)
	}

	// one last escape attempt when warnings remain and the budget allows
	if s.best != nil && len(s.best.blocking) > 0 && len(s.avoids) > 0 && s.canCall(valhalla.DefaultTimeout) {
		res, err := p.router.Route(ctx, s.routeParams(3, true))
		if err != nil {
			s.logPhase("escape", "error", err.Error(), nil)
		} else {
			cand := s.score(res)
			s.best = pickBetterCandidate(s.best, cand)
			s.keepAlternates(res.Alternates)
			s.logPhase("escape", "done", "", map[string]interface{}{
				"blocking": len(s.best.blocking),
			})
		}
	}

	return p.envelope(s)
}

func (p *Planner) envelope(s *planState) *PlanEnvelope {
	env := &PlanEnvelope{
		GeoJSON:          geojson.NewFeatureCollection(),
		BlockingWarnings: []BlockingWarning{},
		GeoJSONAlts:      []*geojson.FeatureCollection{},
	}
	env.Meta = Meta{
		Source:        Source,
		Iterations:    s.iterations,
		AvoidsApplied: len(s.avoids),
		BBoxKmUsed:    s.bboxKmUsed,
		FallbackUsed:  s.fallback,
		Phases:        s.phases,
	}
	env.AvoidApplied.Total = len(s.avoids)

	switch {
	case s.best == nil:
		env.Meta.Status = StatusBlocked
		msg := s.err
		if msg == "" {
			msg = "no routable line found"
		}
		env.Meta.Error = &msg
	case len(s.best.blocking) > 0:
		env.Meta.Status = StatusWarn
		env.GeoJSON = s.best.fc
		env.BlockingWarnings = s.best.blocking
		msg := fmt.Sprintf("%d blocking obstacle(s) remain on the route; manual review advised", len(s.best.blocking))
		env.Meta.Error = &msg
	default:
		env.Meta.Status = StatusClean
		env.Meta.Clean = true
		env.GeoJSON = s.best.fc
	}

	for _, alt := range s.alternates {
		env.GeoJSONAlts = append(env.GeoJSONAlts, alt.FC)
	}
	if env.Meta.Phases == nil {
		env.Meta.Phases = []PhaseEntry{}
	}
	p.logger.Infow("plan finished",
		"status", env.Meta.Status,
		"iterations", env.Meta.Iterations,
		"avoids", env.AvoidApplied.Total,
	)
	return env
}
