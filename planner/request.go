package planner

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/schwerlast/routeplan/geo"
)

// Defaults for a 40 t semitrailer, the vehicle this service plans for when the
// caller sends nothing.
const (
	DefaultVehicleWidthM    = 2.55
	DefaultVehicleHeightM   = 4.0
	DefaultVehicleWeightT   = 40.0
	DefaultVehicleAxleLoadT = 10.0

	defaultCorridorWidthM   = 2000.0
	defaultRoadworksBufferM = 60.0
	defaultTZ               = "Europe/Berlin"
	defaultLanguage         = "de-DE"
	defaultAvoidTargetMax   = 30
	defaultValhallaSoftMax  = 80
)

// Vehicle carries the dimensions the planner treats as hard upper bounds.
type Vehicle struct {
	WidthM    float64 `json:"width_m"`
	HeightM   float64 `json:"height_m"`
	WeightT   float64 `json:"weight_t"`
	AxleLoadT float64 `json:"axleload_t"`
	Hazmat    *bool   `json:"hazmat"`
}

// PlanRequest is the JSON body of POST /route/plan.
type PlanRequest struct {
	Start   []float64 `json:"start"`
	End     []float64 `json:"end"`
	Vehicle Vehicle   `json:"vehicle"`
	TS      string    `json:"ts"`
	TZ      string    `json:"tz"`

	Corridor struct {
		WidthM float64 `json:"width_m"`
	} `json:"corridor"`
	Roadworks struct {
		BufferM       float64 `json:"buffer_m"`
		OnlyMotorways *bool   `json:"only_motorways"`
	} `json:"roadworks"`

	Alternates         *int   `json:"alternates"`
	DirectionsLanguage string `json:"directions_language"`
	AvoidTargetMax     *int   `json:"avoid_target_max"`
	ValhallaSoftMax    *int   `json:"valhalla_soft_max"`
	// accepted for contract compatibility; obstacle geometries carry no
	// carriageway direction yet, so it has no effect on planning
	RespectDirection *bool `json:"respect_direction"`

	// resolved by Validate
	start, end      orb.Point
	distanceKm      float64
	hazmat          bool
	onlyMotorways   bool
	alternates      int
	avoidBufferKm   float64
	corridorKm      float64
	maxAvoidsGlobal int
	softMax         int
}

// ErrInput marks a malformed request; the HTTP layer maps it to 400.
var ErrInput = errors.New("invalid input")

func validCoordinate(c []float64) bool {
	return len(c) == 2 &&
		c[0] >= -180 && c[0] <= 180 &&
		c[1] >= -90 && c[1] <= 90 &&
		!math.IsNaN(c[0]) && !math.IsNaN(c[1])
}

// Validate checks start/end, applies all defaults and computes the derived
// planning parameters. now is injected for testability of the ts default.
func (r *PlanRequest) Validate(now time.Time) error {
	if !validCoordinate(r.Start) {
		return errors.Wrap(ErrInput, "start must be [lon, lat]")
	}
	if !validCoordinate(r.End) {
		return errors.Wrap(ErrInput, "end must be [lon, lat]")
	}
	r.start = orb.Point{r.Start[0], r.Start[1]}
	r.end = orb.Point{r.End[0], r.End[1]}
	r.distanceKm = geo.Haversine(r.start, r.end)

	if r.TS == "" {
		r.TS = now.UTC().Format(time.RFC3339)
	}
	if r.TZ == "" {
		r.TZ = defaultTZ
	}
	if r.DirectionsLanguage == "" {
		r.DirectionsLanguage = defaultLanguage
	}

	if r.Vehicle.WidthM <= 0 {
		r.Vehicle.WidthM = DefaultVehicleWidthM
	}
	if r.Vehicle.HeightM <= 0 {
		r.Vehicle.HeightM = DefaultVehicleHeightM
	}
	if r.Vehicle.WeightT <= 0 {
		r.Vehicle.WeightT = DefaultVehicleWeightT
	}
	if r.Vehicle.AxleLoadT <= 0 {
		r.Vehicle.AxleLoadT = DefaultVehicleAxleLoadT
	}
	r.hazmat = r.Vehicle.Hazmat == nil || *r.Vehicle.Hazmat

	if r.Corridor.WidthM <= 0 {
		r.Corridor.WidthM = defaultCorridorWidthM
	}
	if r.Roadworks.BufferM <= 0 {
		r.Roadworks.BufferM = defaultRoadworksBufferM
	}
	r.onlyMotorways = r.Roadworks.OnlyMotorways == nil || *r.Roadworks.OnlyMotorways

	if r.Alternates != nil {
		r.alternates = clampInt(*r.Alternates, 0, 2)
	} else if r.distanceKm < fastPathThresholdKm {
		r.alternates = 1
	}

	// avoid-polygon buffer: the roadworks buffer floor plus a width-scaled
	// extra (10 m per metre over 2.55 m, capped at 150 m)
	base := math.Max(geo.MinAvoidBufferKm, r.Roadworks.BufferM/1000)
	extra := math.Min(0.15, math.Max(0, (r.Vehicle.WidthM-DefaultVehicleWidthM)*0.01))
	r.avoidBufferKm = base + extra

	r.corridorKm = math.Max(6, math.Min(60, r.Corridor.WidthM/1000*6))

	target := defaultAvoidTargetMax
	if r.AvoidTargetMax != nil {
		target = *r.AvoidTargetMax
	}
	r.maxAvoidsGlobal = clampInt(target, 10, 80)

	r.softMax = defaultValhallaSoftMax
	if r.ValhallaSoftMax != nil && *r.ValhallaSoftMax > 0 {
		r.softMax = *r.ValhallaSoftMax
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
