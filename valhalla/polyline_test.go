package valhalla

import (
	"testing"

	"github.com/paulmach/orb"
	"go.viam.com/test"
)

func TestShapeRoundTrip(t *testing.T) {
	line := orb.LineString{
		{6.9603, 50.9375},
		{7.4653, 51.5136},
		{13.405, 52.52},
		{-0.1276, 51.5072},
	}
	decoded := DecodeShape(EncodeShape(line))
	test.That(t, decoded, test.ShouldHaveLength, len(line))
	for i := range line {
		test.That(t, decoded[i][0], test.ShouldAlmostEqual, line[i][0], 1e-6)
		test.That(t, decoded[i][1], test.ShouldAlmostEqual, line[i][1], 1e-6)
	}
}

func TestShapeReencode(t *testing.T) {
	// decode then re-encode reproduces the original string up to quantisation
	line := orb.LineString{{7.1, 51.2}, {7.2, 51.3}, {7.15, 51.35}}
	encoded := EncodeShape(line)
	test.That(t, EncodeShape(DecodeShape(encoded)), test.ShouldEqual, encoded)
}

func TestDecodeNegativeDeltas(t *testing.T) {
	// heading south-west forces negative deltas through the zig-zag path
	line := orb.LineString{{13.405, 52.52}, {6.9603, 50.9375}}
	decoded := DecodeShape(EncodeShape(line))
	test.That(t, decoded[1][0], test.ShouldAlmostEqual, 6.9603, 1e-6)
	test.That(t, decoded[1][1], test.ShouldAlmostEqual, 50.9375, 1e-6)
}

func TestDecodeEmptyAndTruncated(t *testing.T) {
	test.That(t, DecodeShape(""), test.ShouldHaveLength, 0)
	// a truncated stream decodes the complete pairs and drops the tail
	full := EncodeShape(orb.LineString{{7, 51}, {8, 52}})
	partial := DecodeShape(full[:len(full)-1])
	test.That(t, len(partial), test.ShouldBeLessThanOrEqualTo, 2)
}
