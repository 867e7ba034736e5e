package valhalla

import (
	"strings"

	"github.com/paulmach/orb"
)

const polylineScale = 1e6

// DecodeShape decodes a polyline6-encoded leg shape into lon/lat points.
// The stream is little-endian varint zig-zag deltas at 1e6 precision, pairs
// ordered lat-then-lon; accumulation stays in integer arithmetic and only the
// emitted coordinates are scaled to floating point.
func DecodeShape(shape string) orb.LineString {
	var lat, lon int64
	line := make(orb.LineString, 0, len(shape)/4)

	i := 0
	next := func() (int64, bool) {
		var result int64
		var shift uint
		for {
			if i >= len(shape) {
				return 0, false
			}
			b := int64(shape[i]) - 63
			i++
			result |= (b & 0x1f) << shift
			if b < 0x20 {
				break
			}
			shift += 5
		}
		// zig-zag
		if result&1 != 0 {
			return ^(result >> 1), true
		}
		return result >> 1, true
	}

	for i < len(shape) {
		dLat, ok := next()
		if !ok {
			break
		}
		dLon, ok := next()
		if !ok {
			break
		}
		lat += dLat
		lon += dLon
		line = append(line, orb.Point{float64(lon) / polylineScale, float64(lat) / polylineScale})
	}
	return line
}

// EncodeShape is the inverse of DecodeShape, used by tests and the router
// proxy round-trip.
func EncodeShape(line orb.LineString) string {
	var sb strings.Builder
	var prevLat, prevLon int64
	for _, p := range line {
		lat := int64(round(p[1] * polylineScale))
		lon := int64(round(p[0] * polylineScale))
		writeVarint(&sb, lat-prevLat)
		writeVarint(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func writeVarint(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int64(f - 0.5))
	}
	return float64(int64(f + 0.5))
}
