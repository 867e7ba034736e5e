package valhalla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"go.viam.com/test"
)

func baseParams() RouteParams {
	return RouteParams{
		Start:     orb.Point{6.9603, 50.9375},
		End:       orb.Point{7.4653, 51.5136},
		WidthM:    3,
		HeightM:   4,
		WeightT:   40,
		AxleLoadT: 10,
		Hazmat:    true,
	}
}

func decodeRequest(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	test.That(t, json.Unmarshal(body, &m), test.ShouldBeNil)
	return m
}

func truckOpts(m map[string]interface{}) map[string]interface{} {
	co := m["costing_options"].(map[string]interface{})
	return co["truck"].(map[string]interface{})
}

func TestBuildRequestBaseline(t *testing.T) {
	body, err := BuildRequest(baseParams())
	test.That(t, err, test.ShouldBeNil)
	m := decodeRequest(t, body)

	test.That(t, m["costing"], test.ShouldEqual, "truck")
	truck := truckOpts(m)
	test.That(t, truck["weight"], test.ShouldEqual, 40000)
	test.That(t, truck["axle_load"], test.ShouldEqual, 10000)
	test.That(t, truck["use_highways"], test.ShouldEqual, 1.0)
	test.That(t, truck["shortest"], test.ShouldEqual, false)
	test.That(t, truck["hazmat"], test.ShouldEqual, true)
	test.That(t, truck["country_crossing_penalty"], test.ShouldEqual, 0)
	test.That(t, truck["maneuver_penalty"], test.ShouldEqual, 5)
	test.That(t, truck["gate_penalty"], test.ShouldEqual, 300)
	test.That(t, truck["service_penalty"], test.ShouldEqual, 0)

	_, hasExcludes := m["exclude_polygons"]
	test.That(t, hasExcludes, test.ShouldBeFalse)

	dirs := m["directions_options"].(map[string]interface{})
	test.That(t, dirs["language"], test.ShouldEqual, "de-DE")
	test.That(t, dirs["units"], test.ShouldEqual, "kilometers")
}

func TestBuildRequestWithExclusions(t *testing.T) {
	p := baseParams()
	p.AvoidPolygons = []orb.Polygon{{orb.Ring{{7, 51}, {7.1, 51}, {7.1, 51.1}, {7, 51.1}, {7, 51}}}}
	p.Alternates = 3
	body, err := BuildRequest(p)
	test.That(t, err, test.ShouldBeNil)
	m := decodeRequest(t, body)

	truck := truckOpts(m)
	test.That(t, truck["maneuver_penalty"], test.ShouldEqual, 2000)
	test.That(t, truck["gate_penalty"], test.ShouldEqual, 10000000)
	test.That(t, truck["service_penalty"], test.ShouldEqual, 10000000)

	// polygons ride under both keys for backend variance
	test.That(t, m["exclude_polygons"], test.ShouldResemble, m["avoid_polygons"])
	excludes := m["exclude_polygons"].([]interface{})
	test.That(t, excludes, test.ShouldHaveLength, 1)
	test.That(t, excludes[0].([]interface{}), test.ShouldHaveLength, 5)
	test.That(t, m["alternates"], test.ShouldEqual, 3)
}

func TestBuildRequestEscapeModeWithoutPolygons(t *testing.T) {
	// escape mode escalates the penalties even before any polygon is excluded
	p := baseParams()
	p.EscapeMode = true
	body, err := BuildRequest(p)
	test.That(t, err, test.ShouldBeNil)
	m := decodeRequest(t, body)

	truck := truckOpts(m)
	test.That(t, truck["maneuver_penalty"], test.ShouldEqual, 2000)
	test.That(t, truck["gate_penalty"], test.ShouldEqual, 10000000)
	test.That(t, truck["service_penalty"], test.ShouldEqual, 10000000)

	_, hasExcludes := m["exclude_polygons"]
	test.That(t, hasExcludes, test.ShouldBeFalse)
}

func TestRouteDecodesLegs(t *testing.T) {
	leg := orb.LineString{{6.9603, 50.9375}, {7.2, 51.2}, {7.4653, 51.5136}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"trip": map[string]interface{}{
				"legs": []map[string]interface{}{{
					"shape":   EncodeShape(leg),
					"summary": map[string]interface{}{"length": 82.4, "time": 3600.0},
					"maneuvers": []map[string]interface{}{
						{"instruction": "Auf die A1 auffahren", "length": 40.0, "time": 1700.0, "street_names": []string{"A1"}},
						{"instruction": "Abfahren", "length": 42.4, "time": 1900.0, "street_names": []string{"A1", "B54"}},
					},
				}},
				"summary": map[string]interface{}{"length": 82.4, "time": 3600.0},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).Route(context.Background(), baseParams())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.DistanceKm, test.ShouldAlmostEqual, 82.4)
	test.That(t, result.FC.Features, test.ShouldHaveLength, 1)

	f := result.FC.Features[0]
	line := f.Geometry.(orb.LineString)
	test.That(t, line, test.ShouldHaveLength, 3)
	test.That(t, line[0][0], test.ShouldAlmostEqual, 6.9603, 1e-6)
	test.That(t, f.Properties["leg_index"], test.ShouldEqual, 0)
	test.That(t, f.Properties["streets_sequence"], test.ShouldResemble, []string{"A1", "B54"})
}

func TestRouteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no path could be found for input", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Route(context.Background(), baseParams())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no path could be found")

	// trip with zero legs is an error too
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"trip": map[string]interface{}{"legs": []interface{}{}, "status_message": "No route found"},
		})
	}))
	defer empty.Close()

	_, err = NewClient(empty.URL).Route(context.Background(), baseParams())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "No route found")
}
