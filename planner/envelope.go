package planner

import (
	"github.com/paulmach/orb/geojson"
)

// Source identifies this planner version in every envelope.
const Source = "route/plan-v3"

// Terminal outcome classes.
const (
	StatusClean   = "CLEAN"
	StatusWarn    = "WARN"
	StatusBlocked = "BLOCKED"
)

// Limits are the posted limits of a blocking obstacle.
type Limits struct {
	Width  float64 `json:"width"`
	Weight float64 `json:"weight"`
}

// BlockingWarning is one obstacle on the final route whose limits the vehicle
// violates.
type BlockingWarning struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Limits         Limits     `json:"limits"`
	Coords         [2]float64 `json:"coords"`
	AlreadyAvoided bool       `json:"already_avoided"`
}

// PhaseEntry is one line of the phase telemetry log. Besides "phase",
// "result" and optionally "reason" it carries step-specific fields.
type PhaseEntry map[string]interface{}

// Meta is the envelope's telemetry block.
type Meta struct {
	Source        string       `json:"source"`
	Status        string       `json:"status"`
	Clean         bool         `json:"clean"`
	Error         *string      `json:"error"`
	Iterations    int          `json:"iterations"`
	AvoidsApplied int          `json:"avoids_applied"`
	BBoxKmUsed    *int         `json:"bbox_km_used"`
	FallbackUsed  bool         `json:"fallback_used"`
	Phases        []PhaseEntry `json:"phases"`
}

// AvoidApplied summarises the exclusion polygons sent to the router.
type AvoidApplied struct {
	Total int `json:"total"`
}

// PlanEnvelope is the full response of POST /route/plan. It is always emitted
// with HTTP 200 once the input validated; BLOCKED carries an empty geojson.
type PlanEnvelope struct {
	Meta             Meta                         `json:"meta"`
	AvoidApplied     AvoidApplied                 `json:"avoid_applied"`
	GeoJSON          *geojson.FeatureCollection   `json:"geojson"`
	BlockingWarnings []BlockingWarning            `json:"blocking_warnings"`
	GeoJSONAlts      []*geojson.FeatureCollection `json:"geojson_alts"`
}

// PrecheckResult is the response of POST /route/precheck.
type PrecheckResult struct {
	Status        string            `json:"status"`
	Intersects    int               `json:"intersects"`
	BlockingCount int               `json:"blocking_count"`
	Blocking      []BlockingWarning `json:"blocking"`
}
