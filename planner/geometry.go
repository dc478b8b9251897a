package planner

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultAttenuationDB is used when an obstacle names a material that is not
// in the table and carries no explicit override. Failing closed with a
// mid-range wall value beats treating an unknown wall as transparent.
const DefaultAttenuationDB = 10.0

// materialAttenuationDB maps construction materials to their typical
// through-loss in dB for indoor WiFi frequencies.
var materialAttenuationDB = map[Material]float64{
	MaterialReinforcedConcrete: 20,
	MaterialConcrete:           15,
	MaterialBrick:              10,
	MaterialDrywall:            5,
	MaterialWoodDoor:           3,
	MaterialGlass:              2,
}

// MaterialAttenuationDB returns the table attenuation for a material, or the
// fail-closed default for unknown materials.
func MaterialAttenuationDB(m Material) float64 {
	if db, ok := materialAttenuationDB[m]; ok {
		return db
	}
	return DefaultAttenuationDB
}

// EffectiveAttenuationDB resolves the attenuation for an obstacle:
// explicit override first, then the material table, then the default.
func (o Obstacle) EffectiveAttenuationDB() float64 {
	if o.AttenuationDB != nil {
		return *o.AttenuationDB
	}
	return MaterialAttenuationDB(o.Material)
}

// orientation returns the turn direction of the ordered triple (p, q, r):
// 0 collinear, 1 clockwise, 2 counter-clockwise.
func orientation(p, q, r orb.Point) int {
	val := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case val == 0:
		return 0
	case val > 0:
		return 1
	default:
		return 2
	}
}

// onSegment reports whether q lies on segment pr, assuming the three points
// are collinear.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= max(p[0], r[0]) && q[0] >= min(p[0], r[0]) &&
		q[1] <= max(p[1], r[1]) && q[1] >= min(p[1], r[1])
}

// SegmentsIntersect reports whether segment p1-p2 crosses segment q1-q2,
// including collinear-overlap and endpoint-touch cases.
func SegmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// Collinear special cases.
	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}
	return false
}

// Intersects reports whether the straight line from a to b crosses the
// obstacle's segment. Pure; no side effects.
func (o Obstacle) Intersects(a, b orb.Point) bool {
	return SegmentsIntersect(a, b, o.Start.Point(), o.End.Point())
}

// DistanceToSegment returns the Euclidean distance from p to the closest
// point on segment a-b.
func DistanceToSegment(p, a, b orb.Point) float64 {
	abx := b[0] - a[0]
	aby := b[1] - a[1]
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*abx + (p[1]-a[1])*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := orb.Point{a[0] + t*abx, a[1] + t*aby}
	return planar.Distance(p, closest)
}
