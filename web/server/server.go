// Package server exposes the planner over HTTP: the plan endpoint, the two
// upstream proxies and the precheck verdict. Only malformed input produces a
// non-200 status; every planning outcome, including BLOCKED, is a 200
// envelope.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"goji.io"
	"goji.io/pat"

	"github.com/schwerlast/routeplan/planner"
	"github.com/schwerlast/routeplan/roadworks"
	"github.com/schwerlast/routeplan/valhalla"
)

// Server is the HTTP surface of the route planner.
type Server struct {
	planner   *planner.Planner
	obstacles planner.ObstacleSource
	router    planner.Router
	logger    golog.Logger
}

// New assembles the HTTP server from the planner and its upstreams.
func New(p *planner.Planner, obstacles planner.ObstacleSource, router planner.Router, logger golog.Logger) *Server {
	return &Server{planner: p, obstacles: obstacles, router: router, logger: logger}
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.Use(s.requestID)
	mux.HandleFunc(pat.Post("/route/plan"), s.handlePlan)
	mux.HandleFunc(pat.Post("/route/precheck"), s.handlePrecheck)
	mux.HandleFunc(pat.Post("/roadworks"), s.handleRoadworks)
	mux.HandleFunc(pat.Post("/route/valhalla"), s.handleValhalla)
	return cors.Default().Handler(mux)
}

// Serve runs the server until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Infow("listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func blockedEnvelope(msg string) *planner.PlanEnvelope {
	env := &planner.PlanEnvelope{
		GeoJSON:          geojson.NewFeatureCollection(),
		BlockingWarnings: []planner.BlockingWarning{},
		GeoJSONAlts:      []*geojson.FeatureCollection{},
	}
	env.Meta.Source = planner.Source
	env.Meta.Status = planner.StatusBlocked
	env.Meta.Error = &msg
	env.Meta.Phases = []planner.PhaseEntry{}
	return env
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planner.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, blockedEnvelope("malformed JSON: "+err.Error()))
		return
	}
	if err := req.Validate(time.Now()); err != nil {
		writeJSON(w, http.StatusBadRequest, blockedEnvelope(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, s.planner.Plan(r.Context(), &req))
}

func (s *Server) handlePrecheck(w http.ResponseWriter, r *http.Request) {
	var req planner.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON: " + err.Error()})
		return
	}
	if err := req.Validate(time.Now()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.planner.Precheck(r.Context(), &req))
}

// handleRoadworks proxies one obstacle fetch, re-emitting the normalised
// features together with the upstream meta.
func (s *Server) handleRoadworks(w http.ResponseWriter, r *http.Request) {
	var q roadworks.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON: " + err.Error()})
		return
	}
	result := s.obstacles.Fetch(r.Context(), q)

	features := make([]*geojson.Feature, 0, len(result.Obstacles))
	for _, o := range result.Obstacles {
		f := geojson.NewFeature(o.Geometry)
		f.Properties = o.Props
		features = append(features, f)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
		"meta":     result.Meta,
	})
}

type valhallaProxyRequest struct {
	Start         []float64       `json:"start"`
	End           []float64       `json:"end"`
	Vehicle       planner.Vehicle `json:"vehicle"`
	AvoidPolygons [][][]float64   `json:"avoid_polygons"`
	Alternates    int             `json:"alternates"`
	Language      string          `json:"language"`
	EscapeMode    bool            `json:"escape_mode"`
}

// handleValhalla proxies one routing call. Engine failures come back as a 200
// envelope naming the error, mirroring the consumed contract.
func (s *Server) handleValhalla(w http.ResponseWriter, r *http.Request) {
	var req valhallaProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON: " + err.Error()})
		return
	}
	if len(req.Start) != 2 || len(req.End) != 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end must be [lon, lat]"})
		return
	}

	params := valhalla.RouteParams{
		Start:      orb.Point{req.Start[0], req.Start[1]},
		End:        orb.Point{req.End[0], req.End[1]},
		WidthM:     req.Vehicle.WidthM,
		HeightM:    req.Vehicle.HeightM,
		WeightT:    req.Vehicle.WeightT,
		AxleLoadT:  req.Vehicle.AxleLoadT,
		Hazmat:     req.Vehicle.Hazmat == nil || *req.Vehicle.Hazmat,
		Alternates: req.Alternates,
		Language:   req.Language,
		EscapeMode: req.EscapeMode,
	}
	for _, ring := range req.AvoidPolygons {
		poly := make(orb.Ring, 0, len(ring))
		for _, pt := range ring {
			if len(pt) == 2 {
				poly = append(poly, orb.Point{pt[0], pt[1]})
			}
		}
		params.AvoidPolygons = append(params.AvoidPolygons, orb.Polygon{poly})
	}

	result, err := s.router.Route(r.Context(), params)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"error":                err.Error(),
			"status":               planner.StatusBlocked,
			"request_had_excludes": len(params.AvoidPolygons) > 0,
			"geojson":              geojson.NewFeatureCollection(),
		})
		return
	}
	alts := make([]*geojson.FeatureCollection, 0, len(result.Alternates))
	for _, alt := range result.Alternates {
		alts = append(alts, alt.FC)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"geojson":     result.FC,
		"distance_km": result.DistanceKm,
		"duration_s":  result.DurationS,
		"alternates":  alts,
	})
}
