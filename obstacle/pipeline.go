package obstacle

import (
	"github.com/paulmach/orb"

	"github.com/schwerlast/routeplan/geo"
)

// Merge appends batches in order, keeping the first occurrence of each ID and
// short-circuiting once cap obstacles are collected.
func Merge(batches [][]*Obstacle, limit int) []*Obstacle {
	out := make([]*Obstacle, 0, limit)
	seen := map[string]bool{}
	for _, batch := range batches {
		for _, o := range batch {
			if o == nil || seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			out = append(out, o)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// Prioritize partitions obstacles by corridor containment: those intersecting
// the buffered straight line start-end come first (original order preserved),
// the rest after, truncated at cap.
func Prioritize(list []*Obstacle, start, end orb.Point, corridorKm float64, limit int) []*Obstacle {
	corridor := geo.CorridorPolygon(start, end, corridorKm)

	primary := make([]*Obstacle, 0, len(list))
	secondary := make([]*Obstacle, 0, len(list))
	for _, o := range list {
		if o == nil {
			continue
		}
		if geo.Intersects(o.Geometry, corridor) {
			primary = append(primary, o)
		} else {
			secondary = append(secondary, o)
		}
	}

	out := primary
	out = append(out, secondary...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
