package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Band identifies the radio band a plan is evaluated for.
type Band string

const (
	Band24GHz Band = "2.4GHz"
	Band5GHz  Band = "5GHz"
)

// FrequencyGHz returns the center frequency used by the propagation model.
func (b Band) FrequencyGHz() float64 {
	switch b {
	case Band5GHz:
		return 5.0
	default:
		return 2.4
	}
}

// Valid reports whether the band is one of the recognized values.
func (b Band) Valid() bool {
	return b == Band24GHz || b == Band5GHz
}

// Coord is a plain 2D coordinate as it appears in plan documents.
// All engine math uses orb.Point; Coord exists for YAML/JSON friendliness.
type Coord struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Point converts the coordinate to an orb.Point.
func (c Coord) Point() orb.Point {
	return orb.Point{c.X, c.Y}
}

// ObstacleKind distinguishes walls from doors. Doors matter because their
// materials attenuate far less than structural walls.
type ObstacleKind string

const (
	KindWall ObstacleKind = "wall"
	KindDoor ObstacleKind = "door"
)

// Material names a construction material with a known attenuation.
// Unknown materials are accepted and fall back to a conservative default.
type Material string

const (
	MaterialReinforcedConcrete Material = "reinforced_concrete"
	MaterialConcrete           Material = "concrete"
	MaterialBrick              Material = "brick"
	MaterialDrywall            Material = "drywall"
	MaterialWoodDoor           Material = "wood_door"
	MaterialGlass              Material = "glass"
)

// Obstacle is a wall or door segment in floor-plan coordinates (meters).
// AttenuationDB, when set, overrides the material table.
type Obstacle struct {
	Kind          ObstacleKind `yaml:"kind" json:"kind"`
	Material      Material     `yaml:"material" json:"material"`
	AttenuationDB *float64     `yaml:"attenuationDb,omitempty" json:"attenuationDb,omitempty"`
	Start         Coord        `yaml:"start" json:"start"`
	End           Coord        `yaml:"end" json:"end"`
	ThicknessCM   float64      `yaml:"thicknessCm,omitempty" json:"thicknessCm,omitempty"`
}

// LengthM returns the segment length in meters.
func (o Obstacle) LengthM() float64 {
	dx := o.End.X - o.Start.X
	dy := o.End.Y - o.Start.Y
	return math.Hypot(dx, dy)
}

// Validate checks the structural invariants for an obstacle.
func (o Obstacle) Validate() error {
	if o.Kind != KindWall && o.Kind != KindDoor {
		return &InputError{Field: "obstacle.kind", Reason: fmt.Sprintf("unknown kind %q", o.Kind)}
	}
	if o.LengthM() == 0 {
		return &InputError{Field: "obstacle.geometry", Reason: "zero-length segment"}
	}
	if o.AttenuationDB != nil && *o.AttenuationDB < 0 {
		return &InputError{Field: "obstacle.attenuationDb", Reason: "must be >= 0"}
	}
	if o.ThicknessCM < 0 {
		return &InputError{Field: "obstacle.thicknessCm", Reason: "must be >= 0"}
	}
	return nil
}

// MeasurementPoint is a hand-measured signal sample collected by the survey
// workflow. Read-only input to the engine.
type MeasurementPoint struct {
	Position     Coord            `yaml:"position" json:"position"`
	SignalByBand map[Band]float64 `yaml:"signalByBand" json:"signalByBand"`
	Timestamp    time.Time        `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
}

// Signal returns the measured dBm for a band, or ok=false when the band was
// not surveyed at this point.
func (m MeasurementPoint) Signal(b Band) (float64, bool) {
	v, ok := m.SignalByBand[b]
	return v, ok
}

// FloorPlan describes the rectangular planning area. The canonical unit is
// meters; pixel inputs are converted exactly once via FloorPlanFromPixels.
type FloorPlan struct {
	WidthM          float64 `yaml:"widthM" json:"widthM"`
	HeightM         float64 `yaml:"heightM" json:"heightM"`
	ScalePxPerMeter float64 `yaml:"scalePxPerMeter,omitempty" json:"scalePxPerMeter,omitempty"`
}

// FloorPlanFromPixels converts editor pixel dimensions to a meter-based plan.
// This is the single place pixel units enter the engine.
func FloorPlanFromPixels(widthPx, heightPx, scalePxPerMeter float64) (FloorPlan, error) {
	if scalePxPerMeter <= 0 {
		return FloorPlan{}, &InputError{Field: "floorplan.scalePxPerMeter", Reason: "must be > 0"}
	}
	fp := FloorPlan{
		WidthM:          widthPx / scalePxPerMeter,
		HeightM:         heightPx / scalePxPerMeter,
		ScalePxPerMeter: scalePxPerMeter,
	}
	if err := fp.Validate(); err != nil {
		return FloorPlan{}, err
	}
	return fp, nil
}

// Validate checks the plan dimensions.
func (fp FloorPlan) Validate() error {
	if fp.WidthM <= 0 || fp.HeightM <= 0 {
		return &InputError{Field: "floorplan", Reason: fmt.Sprintf("dimensions must be > 0 (got %.2fx%.2f)", fp.WidthM, fp.HeightM)}
	}
	return nil
}

// AreaM2 returns the floor area in square meters.
func (fp FloorPlan) AreaM2() float64 {
	return fp.WidthM * fp.HeightM
}

// Bound returns the plan rectangle as an orb.Bound.
func (fp FloorPlan) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{fp.WidthM, fp.HeightM}}
}

// Contains reports whether p lies inside the plan rectangle.
func (fp FloorPlan) Contains(p orb.Point) bool {
	return p[0] >= 0 && p[0] <= fp.WidthM && p[1] >= 0 && p[1] <= fp.HeightM
}

// AccessPoint is a placed (or candidate) access point. Positions are mutated
// only inside an optimizer run; materialized records are immutable results.
type AccessPoint struct {
	ID         string    `yaml:"id" json:"id"`
	Position   orb.Point `yaml:"-" json:"-"`
	TxPowerDBm float64   `yaml:"txPowerDbm" json:"txPowerDbm"`
	Band       Band      `yaml:"band" json:"band"`
}

// NewAccessPoint materializes an AP record with a fresh ID.
func NewAccessPoint(pos orb.Point, txPowerDBm float64, band Band) AccessPoint {
	return AccessPoint{
		ID:         uuid.NewString(),
		Position:   pos,
		TxPowerDBm: txPowerDBm,
		Band:       band,
	}
}

// QualityBuckets holds the fraction of samples per signal-quality class.
// Fractions sum to 1 for any report with at least one sample.
type QualityBuckets struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Fair      float64 `yaml:"fair" json:"fair"`
	Poor      float64 `yaml:"poor" json:"poor"`
	Dead      float64 `yaml:"dead" json:"dead"`
}

// CoverageReport is the output of one coverage estimation. Never mutated
// after creation.
type CoverageReport struct {
	SampleCount   int            `yaml:"sampleCount" json:"sampleCount"`
	CoverageRate  float64        `yaml:"coverageRate" json:"coverageRate"`
	WeightedScore float64        `yaml:"weightedScore" json:"weightedScore"`
	Buckets       QualityBuckets `yaml:"buckets" json:"buckets"`
}

// OptimizationResult is the terminal artifact of an optimizer run.
// Callers must check Converged before trusting the layout as final.
type OptimizationResult struct {
	Positions  []orb.Point   `json:"-"`
	Vector     []float64     `json:"vector"`
	Score      float64       `json:"score"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Elapsed    time.Duration `json:"elapsed"`
}

// AccessPoints materializes the optimized positions as immutable AP records.
func (r OptimizationResult) AccessPoints(txPowerDBm float64, band Band) []AccessPoint {
	aps := make([]AccessPoint, len(r.Positions))
	for i, p := range r.Positions {
		aps[i] = NewAccessPoint(p, txPowerDBm, band)
	}
	return aps
}

// Scenario selects a deployment profile for sizing and objective weighting.
type Scenario string

const (
	ScenarioOffice   Scenario = "office"
	ScenarioSchool   Scenario = "school"
	ScenarioHospital Scenario = "hospital"
	ScenarioFactory  Scenario = "factory"
	ScenarioHome     Scenario = "home"
)

// Valid reports whether the scenario is recognized.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioOffice, ScenarioSchool, ScenarioHospital, ScenarioFactory, ScenarioHome:
		return true
	}
	return false
}
