package planner

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
)

// Signal-quality bucket thresholds (dBm) and their score weights.
// A sample lands in the first bucket whose threshold it exceeds.
const (
	ThresholdExcellentDBm = -50.0
	ThresholdGoodDBm      = -60.0
	ThresholdFairDBm      = -70.0
	ThresholdPoorDBm      = -80.0

	// WeakSignalDBm marks a measurement as a weak point for stratified
	// sampling and optimizer seeding.
	WeakSignalDBm = -70.0
)

var bucketWeights = [5]float64{1.0, 0.8, 0.5, 0.2, 0.0}

// CoverageConfig tunes the Monte Carlo estimator. Sample counts are clamped
// so compute cost stays bounded regardless of floor area.
type CoverageConfig struct {
	SamplesPerSqM     float64     // target sampling density (default 4)
	MinSamples        int         // lower clamp on sample count
	MaxSamples        int         // upper clamp on sample count
	StratifiedFrac    float64     // fraction of samples concentrated near weak points
	WeakScatterSigmaM float64     // gaussian scatter radius around weak points
	WeakPoints        []orb.Point // weak measurement positions, may be empty
	RNG               *rand.Rand  // source for sample placement; required for determinism
}

// DefaultCoverageConfig returns the estimator defaults used for final
// reports. The optimizer substitutes a cheaper budget during search.
func DefaultCoverageConfig(seed int64) CoverageConfig {
	return CoverageConfig{
		SamplesPerSqM:     4.0,
		MinSamples:        200,
		MaxSamples:        5000,
		StratifiedFrac:    0.3,
		WeakScatterSigmaM: 2.0,
		RNG:               rand.New(rand.NewSource(seed)),
	}
}

// sampleCount resolves the clamped number of samples for a plan area.
func (c CoverageConfig) sampleCount(areaM2 float64) int {
	n := int(math.Round(areaM2 * c.SamplesPerSqM))
	if n < c.MinSamples {
		n = c.MinSamples
	}
	if c.MaxSamples > 0 && n > c.MaxSamples {
		n = c.MaxSamples
	}
	return n
}

// classifySignal maps a dBm value to a bucket index:
// 0 excellent, 1 good, 2 fair, 3 poor, 4 dead.
func classifySignal(dbm float64) int {
	switch {
	case dbm > ThresholdExcellentDBm:
		return 0
	case dbm > ThresholdGoodDBm:
		return 1
	case dbm > ThresholdFairDBm:
		return 2
	case dbm > ThresholdPoorDBm:
		return 3
	default:
		return 4
	}
}

// EstimateCoverage runs a Monte Carlo estimate of signal coverage for a
// candidate AP layout. Most samples are drawn uniformly over the plan; when
// weak measurement points exist, a minority is scattered around them so the
// estimate is most precise where coverage is known to be in doubt.
//
// Produces a fresh report every call; deterministic for a given RNG seed.
func EstimateCoverage(aps []AccessPoint, obstacles []Obstacle, plan FloorPlan, cfg CoverageConfig) CoverageReport {
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	n := cfg.sampleCount(plan.AreaM2())
	stratified := 0
	if len(cfg.WeakPoints) > 0 && cfg.StratifiedFrac > 0 {
		stratified = int(float64(n) * cfg.StratifiedFrac)
	}

	var counts [5]int
	for i := 0; i < n; i++ {
		var p orb.Point
		if i < stratified {
			p = scatterAround(cfg.WeakPoints[i%len(cfg.WeakPoints)], cfg.WeakScatterSigmaM, plan, rng)
		} else {
			p = orb.Point{rng.Float64() * plan.WidthM, rng.Float64() * plan.HeightM}
		}
		counts[classifySignal(BestServerSignal(aps, p, obstacles))]++
	}

	return buildReport(counts, n)
}

// scatterAround draws a gaussian-offset point near center, clamped into the
// plan rectangle.
func scatterAround(center orb.Point, sigmaM float64, plan FloorPlan, rng *rand.Rand) orb.Point {
	x := center[0] + rng.NormFloat64()*sigmaM
	y := center[1] + rng.NormFloat64()*sigmaM
	if x < 0 {
		x = 0
	} else if x > plan.WidthM {
		x = plan.WidthM
	}
	if y < 0 {
		y = 0
	} else if y > plan.HeightM {
		y = plan.HeightM
	}
	return orb.Point{x, y}
}

func buildReport(counts [5]int, n int) CoverageReport {
	if n == 0 {
		return CoverageReport{}
	}
	total := float64(n)
	frac := [5]float64{}
	score := 0.0
	for i, c := range counts {
		frac[i] = float64(c) / total
		score += bucketWeights[i] * frac[i]
	}
	return CoverageReport{
		SampleCount:   n,
		CoverageRate:  1 - frac[4],
		WeightedScore: score,
		Buckets: QualityBuckets{
			Excellent: frac[0],
			Good:      frac[1],
			Fair:      frac[2],
			Poor:      frac[3],
			Dead:      frac[4],
		},
	}
}

// WeakMeasurementPositions extracts the positions of measurement points
// whose recorded signal on the given band is at or below WeakSignalDBm.
// Points that never surveyed the band are skipped.
func WeakMeasurementPositions(measurements []MeasurementPoint, band Band) []orb.Point {
	var weak []orb.Point
	for _, m := range measurements {
		if dbm, ok := m.Signal(band); ok && dbm <= WeakSignalDBm {
			weak = append(weak, m.Position.Point())
		}
	}
	return weak
}
