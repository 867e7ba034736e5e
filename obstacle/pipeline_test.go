package obstacle

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"go.viam.com/test"
)

func obs(id string, p orb.Point) *Obstacle {
	return &Obstacle{ID: id, Geometry: p, MaxWidthM: NotLimiting, MaxWeightT: NotLimiting}
}

func TestMerge(t *testing.T) {
	a := []*Obstacle{obs("1", orb.Point{7, 51}), obs("2", orb.Point{7.1, 51})}
	b := []*Obstacle{obs("2", orb.Point{7.1, 51}), obs("3", orb.Point{7.2, 51}), nil}

	merged := Merge([][]*Obstacle{a, b}, 100)
	test.That(t, merged, test.ShouldHaveLength, 3)
	test.That(t, merged[0].ID, test.ShouldEqual, "1")
	test.That(t, merged[1].ID, test.ShouldEqual, "2")
	test.That(t, merged[2].ID, test.ShouldEqual, "3")
}

func TestMergeCap(t *testing.T) {
	var batch []*Obstacle
	for i := 0; i < 50; i++ {
		batch = append(batch, obs(fmt.Sprintf("o%d", i), orb.Point{7, 51}))
	}
	merged := Merge([][]*Obstacle{batch}, 10)
	test.That(t, merged, test.ShouldHaveLength, 10)
	test.That(t, merged[9].ID, test.ShouldEqual, "o9")
}

func TestPrioritize(t *testing.T) {
	start := orb.Point{6.9603, 50.9375}
	end := orb.Point{7.4653, 51.5136}
	mid := orb.Point{(start[0] + end[0]) / 2, (start[1] + end[1]) / 2}

	onCorridor := obs("on", mid)
	offCorridor := obs("off", orb.Point{10.0, 48.0})

	out := Prioritize([]*Obstacle{offCorridor, onCorridor, nil}, start, end, 10, 100)
	test.That(t, out, test.ShouldHaveLength, 2)
	// corridor hit comes first even though it arrived second
	test.That(t, out[0].ID, test.ShouldEqual, "on")
	test.That(t, out[1].ID, test.ShouldEqual, "off")

	capped := Prioritize([]*Obstacle{offCorridor, onCorridor}, start, end, 10, 1)
	test.That(t, capped, test.ShouldHaveLength, 1)
	test.That(t, capped[0].ID, test.ShouldEqual, "on")
}
