package planner

import (
	"fmt"
	"math"
)

// ScenarioProfile carries the deployment assumptions used to size a space
// before optimization: effective AP coverage radius, how much adjacent cells
// should overlap, and a per-AP client budget.
type ScenarioProfile struct {
	CoverageRadiusM float64
	OverlapFactor   float64
	MaxClientsPerAP int
}

var scenarioProfiles = map[Scenario]ScenarioProfile{
	ScenarioOffice:   {CoverageRadiusM: 12, OverlapFactor: 1.2, MaxClientsPerAP: 30},
	ScenarioSchool:   {CoverageRadiusM: 10, OverlapFactor: 1.3, MaxClientsPerAP: 35},
	ScenarioHospital: {CoverageRadiusM: 8, OverlapFactor: 1.4, MaxClientsPerAP: 20},
	ScenarioFactory:  {CoverageRadiusM: 15, OverlapFactor: 1.25, MaxClientsPerAP: 40},
	ScenarioHome:     {CoverageRadiusM: 10, OverlapFactor: 1.1, MaxClientsPerAP: 15},
}

// ProfileFor returns the sizing profile for a scenario.
func ProfileFor(s Scenario) (ScenarioProfile, error) {
	p, ok := scenarioProfiles[s]
	if !ok {
		return ScenarioProfile{}, &InputError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", s)}
	}
	return p, nil
}

// MinAPCount is the unconditional lower bound on the estimate. Even a tiny
// space gets a redundant second AP.
const MinAPCount = 2

// weakDensityBumpPer100SqM: one extra AP when the plan shows at least this
// many weak survey points per 100 m².
const weakDensityBumpPer100SqM = 2.0

// SizingInput bundles the parameters of an AP count estimate.
type SizingInput struct {
	AreaM2          float64
	Scenario        Scenario
	WeakPointCount  int
	ExpectedClients int // 0 = unknown
}

// EstimateAPCount produces a starting AP count for the optimizer. The result
// is the max of the area-based and (optional) client-based estimates, bumped
// by one when weak-point density is high, and clamped to
// [MinAPCount, area-dependent cap].
func EstimateAPCount(in SizingInput) (int, error) {
	if in.AreaM2 <= 0 {
		return 0, &InputError{Field: "areaM2", Reason: "must be > 0"}
	}
	profile, err := ProfileFor(in.Scenario)
	if err != nil {
		return 0, err
	}

	cellArea := math.Pi * profile.CoverageRadiusM * profile.CoverageRadiusM
	estimate := int(math.Ceil(in.AreaM2 / cellArea * profile.OverlapFactor))

	if in.ExpectedClients > 0 {
		byClients := int(math.Ceil(float64(in.ExpectedClients) / float64(profile.MaxClientsPerAP)))
		if byClients > estimate {
			estimate = byClients
		}
	}

	weakDensity := float64(in.WeakPointCount) / in.AreaM2 * 100
	if weakDensity >= weakDensityBumpPer100SqM {
		estimate++
	}

	if estimate < MinAPCount {
		estimate = MinAPCount
	}
	// Cap at roughly one AP per 15 m²; denser layouts are interference-bound.
	maxAPs := int(in.AreaM2/15) + MinAPCount
	if estimate > maxAPs {
		estimate = maxAPs
	}
	return estimate, nil
}
