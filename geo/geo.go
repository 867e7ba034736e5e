// Package geo contains the planar and great-circle helpers the route planner
// is built on. Geometry is exchanged as paulmach/orb values in WGS84 lon/lat
// degrees; distances are kilometres unless a name says otherwise.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// EarthRadiusKm is the mean earth radius used for great-circle math.
	EarthRadiusKm = 6371.0

	kmPerDegLat = 110.574
	kmPerDegLon = 111.320
)

// Haversine returns the great-circle distance between two lon/lat points in km.
func Haversine(a, b orb.Point) float64 {
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := (b[1] - a[1]) * math.Pi / 180
	dLon := (b[0] - a[0]) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// kmToDegLat converts a north-south distance to degrees of latitude.
func kmToDegLat(km float64) float64 {
	return km / kmPerDegLat
}

// kmToDegLon converts an east-west distance to degrees of longitude at the
// given latitude. Near the poles the cosine collapses; clamp so a buffer never
// degenerates to zero width.
func kmToDegLon(km, atLat float64) float64 {
	c := math.Cos(atLat * math.Pi / 180)
	if c < 0.01 {
		c = 0.01
	}
	return km / (kmPerDegLon * c)
}

// PadBound grows a bound by km on every side.
func PadBound(b orb.Bound, km float64) orb.Bound {
	midLat := (b.Min[1] + b.Max[1]) / 2
	dLat := kmToDegLat(km)
	dLon := kmToDegLon(km, midLat)
	return orb.Bound{
		Min: orb.Point{b.Min[0] - dLon, b.Min[1] - dLat},
		Max: orb.Point{b.Max[0] + dLon, b.Max[1] + dLat},
	}
}

// SafeBBox returns the bounding box of the segment a-b buffered by km.
func SafeBBox(a, b orb.Point, kmBuffer float64) orb.Bound {
	bound := orb.Bound{Min: a, Max: a}
	bound = bound.Extend(b)
	return PadBound(bound, kmBuffer)
}

// BoundPolygon converts a bound into a closed 5-vertex rectangle ring.
func BoundPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
		{b.Min[0], b.Min[1]},
	}}
}

// CorridorPolygon returns an oriented rectangle of half-width km around the
// straight line a-b, used for gross spatial filtering of obstacles.
func CorridorPolygon(a, b orb.Point, km float64) orb.Polygon {
	midLat := (a[1] + b[1]) / 2
	// work in a local km plane so the perpendicular is meaningful
	ax, ay := 0.0, 0.0
	bx := (b[0] - a[0]) * kmPerDegLon * math.Cos(midLat*math.Pi/180)
	by := (b[1] - a[1]) * kmPerDegLat

	length := math.Hypot(bx-ax, by-ay)
	if length == 0 {
		return BoundPolygon(PadBound(orb.Bound{Min: a, Max: a}, km))
	}
	// unit direction and perpendicular, extended by km past both ends
	ux, uy := (bx-ax)/length, (by-ay)/length
	px, py := -uy, ux

	corners := [][2]float64{
		{ax - ux*km + px*km, ay - uy*km + py*km},
		{bx + ux*km + px*km, by + uy*km + py*km},
		{bx + ux*km - px*km, by + uy*km - py*km},
		{ax - ux*km - px*km, ay - uy*km - py*km},
	}
	ring := make(orb.Ring, 0, 5)
	for _, c := range corners {
		lon := a[0] + c[0]/(kmPerDegLon*math.Cos(midLat*math.Pi/180))
		lat := a[1] + c[1]/kmPerDegLat
		ring = append(ring, orb.Point{lon, lat})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// ChunkPolylineToBBoxes walks coords accumulating segment lengths and emits a
// buffered bbox every chunkKm, rewinding overlapKm between chunks so adjacent
// tiles overlap. The trailing tail is always emitted and duplicate boxes are
// collapsed by a 3-decimal signature. The union of the boxes covers the line.
func ChunkPolylineToBBoxes(coords orb.LineString, chunkKm, overlapKm, expandKm float64) []orb.Bound {
	if len(coords) == 0 {
		return nil
	}
	if len(coords) == 1 {
		return []orb.Bound{PadBound(orb.Bound{Min: coords[0], Max: coords[0]}, expandKm)}
	}

	var out []orb.Bound
	seen := map[string]bool{}
	emit := func(slice orb.LineString) {
		bound := orb.Bound{Min: slice[0], Max: slice[0]}
		for _, p := range slice[1:] {
			bound = bound.Extend(p)
		}
		bound = PadBound(bound, expandKm)
		sig := boundSignature(bound)
		if !seen[sig] {
			seen[sig] = true
			out = append(out, bound)
		}
	}

	start := 0
	acc := 0.0
	for i := 1; i < len(coords); i++ {
		acc += Haversine(coords[i-1], coords[i])
		if acc >= chunkKm {
			emit(coords[start : i+1])
			// rewind so the next chunk overlaps the tail of this one
			back := 0.0
			j := i
			for j > start && back < overlapKm {
				back += Haversine(coords[j-1], coords[j])
				j--
			}
			start = j
			acc = 0
			for k := start + 1; k <= i; k++ {
				acc += Haversine(coords[k-1], coords[k])
			}
		}
	}
	emit(coords[start:])
	return out
}

func boundSignature(b orb.Bound) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// SpreadPick subsamples arr down to at most max elements at indices evenly
// spread over the whole slice. Index 0 is always kept.
func SpreadPick[T any](arr []T, max int) []T {
	if max <= 0 || len(arr) == 0 {
		return nil
	}
	if len(arr) <= max {
		out := make([]T, len(arr))
		copy(out, arr)
		return out
	}
	if max == 1 {
		return []T{arr[0]}
	}
	out := make([]T, 0, max)
	used := map[int]bool{}
	for i := 0; i < max; i++ {
		idx := int(math.Round(float64(i) * float64(len(arr)-1) / float64(max-1)))
		if !used[idx] {
			used[idx] = true
			out = append(out, arr[idx])
		}
	}
	return out
}

// Centroid returns the center of a geometry's bounding box. Obstacle warnings
// only need a representative coordinate, not an area-weighted centroid.
func Centroid(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	b := g.Bound()
	return orb.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2}
}
