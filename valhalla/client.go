// Package valhalla is the HTTP client for the turn-by-turn routing engine
// (Valhalla truck costing). The planner steers the engine purely through
// exclusion polygons; this package owns the request construction, the penalty
// escalation in escape mode, and the polyline6 leg decoding.
package valhalla

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds one routing call.
const DefaultTimeout = 14 * time.Second

// Baseline and escape-mode costing penalties. With exclusion polygons in play
// the high gate/service penalties make the engine take real detours instead
// of threading service roads around the excluded area.
const (
	maneuverPenaltyDefault = 5
	gatePenaltyDefault     = 300
	servicePenaltyDefault  = 0

	maneuverPenaltyEscape = 2000
	gatePenaltyEscape     = 10_000_000
	servicePenaltyEscape  = 10_000_000
)

// RouteParams describes one routing call.
type RouteParams struct {
	Start orb.Point
	End   orb.Point

	WidthM    float64
	HeightM   float64
	WeightT   float64
	AxleLoadT float64
	Hazmat    bool

	AvoidPolygons []orb.Polygon
	Alternates    int
	Language      string
	EscapeMode    bool
}

// Alternate is one decoded alternate route.
type Alternate struct {
	FC         *geojson.FeatureCollection
	DistanceKm float64
}

// RouteResult is one decoded routing response: the primary route as a
// FeatureCollection of per-leg LineStrings, plus decoded alternates.
type RouteResult struct {
	FC         *geojson.FeatureCollection
	Alternates []Alternate
	DistanceKm float64
	DurationS  float64
}

// Client talks to the routing engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the routing engine at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: DefaultTimeout}}
}

type location struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type truckOptions struct {
	Width                  float64 `json:"width"`
	Height                 float64 `json:"height"`
	Weight                 float64 `json:"weight"`
	AxleLoad               float64 `json:"axle_load"`
	Hazmat                 bool    `json:"hazmat"`
	UseHighways            float64 `json:"use_highways"`
	Shortest               bool    `json:"shortest"`
	CountryCrossingPenalty float64 `json:"country_crossing_penalty"`
	ManeuverPenalty        float64 `json:"maneuver_penalty"`
	GatePenalty            float64 `json:"gate_penalty"`
	ServicePenalty         float64 `json:"service_penalty"`
}

type costingOptions struct {
	Truck truckOptions `json:"truck"`
}

type directionsOptions struct {
	Language string `json:"language"`
	Units    string `json:"units"`
}

type routeRequest struct {
	Locations      []location     `json:"locations"`
	Costing        string         `json:"costing"`
	CostingOptions costingOptions `json:"costing_options"`
	// some backends read exclude_polygons, older ones avoid_polygons; send both
	ExcludePolygons [][][]float64 `json:"exclude_polygons,omitempty"`
	AvoidPolygons   [][][]float64 `json:"avoid_polygons,omitempty"`

	Alternates        int               `json:"alternates,omitempty"`
	DirectionsOptions directionsOptions `json:"directions_options"`
}

type tripSummary struct {
	Length float64 `json:"length"`
	Time   float64 `json:"time"`
}

type tripManeuver struct {
	Instruction string   `json:"instruction"`
	Length      float64  `json:"length"`
	Time        float64  `json:"time"`
	StreetNames []string `json:"street_names"`
}

type tripLeg struct {
	Shape     string         `json:"shape"`
	Summary   tripSummary    `json:"summary"`
	Maneuvers []tripManeuver `json:"maneuvers"`
}

type trip struct {
	Legs          []tripLeg   `json:"legs"`
	Summary       tripSummary `json:"summary"`
	Status        int         `json:"status"`
	StatusMessage string      `json:"status_message"`
}

type routeResponse struct {
	Trip       *trip `json:"trip"`
	Alternates []struct {
		Trip *trip `json:"trip"`
	} `json:"alternates"`
}

// BuildRequest assembles the engine request body for params. Exposed so the
// proxy endpoint and tests can inspect exactly what the planner sends.
func BuildRequest(p RouteParams) ([]byte, error) {
	opts := truckOptions{
		Width:                  p.WidthM,
		Height:                 p.HeightM,
		Weight:                 p.WeightT * 1000, // engine wants kg
		AxleLoad:               p.AxleLoadT * 1000,
		Hazmat:                 p.Hazmat,
		UseHighways:            1.0,
		Shortest:               false,
		CountryCrossingPenalty: 0,
		ManeuverPenalty:        maneuverPenaltyDefault,
		GatePenalty:            gatePenaltyDefault,
		ServicePenalty:         servicePenaltyDefault,
	}
	if p.EscapeMode || len(p.AvoidPolygons) > 0 {
		opts.ManeuverPenalty = maneuverPenaltyEscape
		opts.GatePenalty = gatePenaltyEscape
		opts.ServicePenalty = servicePenaltyEscape
	}

	lang := p.Language
	if lang == "" {
		lang = "de-DE"
	}
	req := routeRequest{
		Locations: []location{
			{Lon: p.Start[0], Lat: p.Start[1]},
			{Lon: p.End[0], Lat: p.End[1]},
		},
		Costing:           "truck",
		CostingOptions:    costingOptions{Truck: opts},
		Alternates:        p.Alternates,
		DirectionsOptions: directionsOptions{Language: lang, Units: "kilometers"},
	}
	if len(p.AvoidPolygons) > 0 {
		rings := polygonsToRings(p.AvoidPolygons)
		req.ExcludePolygons = rings
		req.AvoidPolygons = rings
	}
	return json.Marshal(req)
}

func polygonsToRings(polys []orb.Polygon) [][][]float64 {
	out := make([][][]float64, 0, len(polys))
	for _, poly := range polys {
		if len(poly) == 0 {
			continue
		}
		ring := make([][]float64, 0, len(poly[0]))
		for _, pt := range poly[0] {
			ring = append(ring, []float64{pt[0], pt[1]})
		}
		out = append(out, ring)
	}
	return out
}

// Route performs one routing call. A non-OK response or a tripless body is an
// error; the planner maps the first failed call to BLOCKED.
func (c *Client) Route(ctx context.Context, p RouteParams) (*RouteResult, error) {
	body, err := BuildRequest(p)
	if err != nil {
		return nil, errors.Wrap(err, "build route request")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/route", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "new route request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "routing engine call")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("routing engine status %d: %s", resp.StatusCode, string(text))
	}

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode routing response")
	}
	if decoded.Trip == nil || len(decoded.Trip.Legs) == 0 {
		msg := "no route in response"
		if decoded.Trip != nil && decoded.Trip.StatusMessage != "" {
			msg = decoded.Trip.StatusMessage
		}
		return nil, errors.New(msg)
	}

	result := &RouteResult{FC: tripToFeatureCollection(decoded.Trip)}
	result.DistanceKm = decoded.Trip.Summary.Length
	result.DurationS = decoded.Trip.Summary.Time
	for _, alt := range decoded.Alternates {
		if alt.Trip != nil && len(alt.Trip.Legs) > 0 {
			result.Alternates = append(result.Alternates, Alternate{
				FC:         tripToFeatureCollection(alt.Trip),
				DistanceKm: alt.Trip.Summary.Length,
			})
		}
	}
	return result, nil
}

func tripToFeatureCollection(t *trip) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, leg := range t.Legs {
		line := DecodeShape(leg.Shape)
		f := geojson.NewFeature(line)
		f.Properties["leg_index"] = i
		f.Properties["summary"] = map[string]interface{}{
			"distance_km": leg.Summary.Length,
			"duration_s":  leg.Summary.Time,
		}

		maneuvers := make([]interface{}, 0, len(leg.Maneuvers))
		streets := make([]string, 0, len(leg.Maneuvers))
		seen := map[string]bool{}
		for _, m := range leg.Maneuvers {
			maneuvers = append(maneuvers, map[string]interface{}{
				"instruction": m.Instruction,
				"distance_km": m.Length,
				"duration_s":  m.Time,
				"street_names": append([]string{}, m.StreetNames...),
			})
			for _, s := range m.StreetNames {
				if !seen[s] {
					seen[s] = true
					streets = append(streets, s)
				}
			}
		}
		f.Properties["maneuvers"] = maneuvers
		f.Properties["streets_sequence"] = streets
		fc.Append(f)
	}
	return fc
}
