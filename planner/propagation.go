package planner

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Propagation constants. Distances are meters, frequencies GHz, powers dBm.
const (
	// fsplConstDB is the Friis constant for meter/GHz inputs:
	// FSPL = 20·log10(d_m) + 20·log10(f_GHz) + 32.44.
	fsplConstDB = 32.44

	// minPathDistanceM guards the logarithm when a test point coincides
	// with the transmitter. Handled here, never surfaced to callers.
	minPathDistanceM = 0.01

	// FadeMarginDB is subtracted from every prediction to approximate a
	// target reliability percentile rather than the mean signal.
	FadeMarginDB = 10.0

	// Predicted signals are clamped to this physically plausible range
	// before classification.
	MinSignalDBm = -100.0
	MaxSignalDBm = 0.0
)

// FreeSpacePathLoss returns the free-space loss in dB for a path of distM
// meters at freqGHz. Monotonically increasing in both arguments. A zero or
// negative distance is clamped to a small epsilon.
func FreeSpacePathLoss(distM, freqGHz float64) float64 {
	if distM < minPathDistanceM {
		distM = minPathDistanceM
	}
	if freqGHz <= 0 {
		freqGHz = Band24GHz.FrequencyGHz()
	}
	return 20*math.Log10(distM) + 20*math.Log10(freqGHz) + fsplConstDB
}

// PathLoss returns the total loss in dB between ap and p: free-space loss
// plus the attenuation of every obstacle whose segment crosses the direct
// ray. Obstacles can only add loss.
func PathLoss(ap, p orb.Point, obstacles []Obstacle, freqGHz float64) float64 {
	loss := FreeSpacePathLoss(planar.Distance(ap, p), freqGHz)
	for i := range obstacles {
		if obstacles[i].Intersects(ap, p) {
			loss += obstacles[i].EffectiveAttenuationDB()
		}
	}
	return loss
}

// PredictSignal returns the expected received power in dBm at p for a
// transmitter at ap, after path loss and the fade margin, clamped to
// [MinSignalDBm, MaxSignalDBm].
func PredictSignal(txPowerDBm float64, ap, p orb.Point, obstacles []Obstacle, freqGHz float64) float64 {
	signal := txPowerDBm - PathLoss(ap, p, obstacles, freqGHz) - FadeMarginDB
	if signal < MinSignalDBm {
		return MinSignalDBm
	}
	if signal > MaxSignalDBm {
		return MaxSignalDBm
	}
	return signal
}

// BestServerSignal returns the strongest predicted signal at p across all
// APs (a client associates with its best server, signals do not combine).
// With no APs the point is dead by definition.
func BestServerSignal(aps []AccessPoint, p orb.Point, obstacles []Obstacle) float64 {
	best := MinSignalDBm
	for i := range aps {
		s := PredictSignal(aps[i].TxPowerDBm, aps[i].Position, p, obstacles, aps[i].Band.FrequencyGHz())
		if s > best {
			best = s
		}
	}
	return best
}
