package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanlingithub/wifi-scanner-sub000/planner"
)

const testPlanYAML = `
floorplan:
  widthM: 30
  heightM: 20
scenario: office
band: 2.4GHz
txPowerDbm: 20
expectedClients: 60
obstacles:
  - kind: wall
    material: concrete
    start: {x: 15, y: 0}
    end: {x: 15, y: 12}
    thicknessCm: 20
  - kind: door
    material: wood_door
    start: {x: 15, y: 12}
    end: {x: 15, y: 13}
measurements:
  - position: {x: 27, y: 17}
    signalByBand:
      2.4GHz: -82
  - position: {x: 3, y: 3}
    signalByBand:
      2.4GHz: -52
optimizer:
  maxIterations: 5
  populationSize: 10
  timeoutSeconds: 10
  seed: 7
`

func writeTestPlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPlanYAML), 0644))
	return path
}

func TestAppLoadPlan(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{PlanFile: writeTestPlan(t), Seed: 1})

	plan := app.loadPlan()
	require.NotNil(t, plan)
	assert.Equal(t, planner.ScenarioOffice, plan.Scenario)
	assert.Equal(t, planner.Band24GHz, plan.Band)
	assert.Len(t, plan.Obstacles, 2)
	assert.Len(t, plan.Measurements, 2)

	// Second call returns the cached plan.
	assert.Same(t, plan, app.loadPlan())
}

func TestAppResolveAPCount(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{PlanFile: writeTestPlan(t), Seed: 1})
	plan := app.loadPlan()

	// Estimated from the plan when no override is given.
	estimated := app.resolveAPCount(plan)
	assert.GreaterOrEqual(t, estimated, planner.MinAPCount)

	// CLI override wins.
	app.NumAPs = 5
	assert.Equal(t, 5, app.resolveAPCount(plan))
}

// TestFullPipeline drives the whole flow the way RunOptimize does: size the
// deployment, build a seeded baseline, optimize, and compare coverage.
func TestFullPipeline(t *testing.T) {
	plan, err := planner.LoadPlan(writeTestPlan(t))
	require.NoError(t, err)

	fp := plan.ResolvedFloorPlan()
	weak := planner.WeakMeasurementPositions(plan.Measurements, plan.Band)

	numAPs, err := planner.EstimateAPCount(planner.SizingInput{
		AreaM2:          fp.AreaM2(),
		Scenario:        plan.Scenario,
		WeakPointCount:  len(weak),
		ExpectedClients: plan.ExpectedClients,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, numAPs, planner.MinAPCount)

	// Baseline layout.
	rng := rand.New(rand.NewSource(7))
	seeds := planner.SeedPositions(weak, numAPs, fp, rng)
	require.Len(t, seeds, numAPs)
	baseline := make([]planner.AccessPoint, len(seeds))
	for i, p := range seeds {
		baseline[i] = planner.AccessPoint{Position: p, TxPowerDBm: plan.TxPowerDBm, Band: plan.Band}
	}

	baseCfg := planner.DefaultCoverageConfig(7)
	baseCfg.WeakPoints = weak
	before := planner.EstimateCoverage(baseline, plan.Obstacles, fp, baseCfg)
	assert.InDelta(t, 1.0,
		before.Buckets.Excellent+before.Buckets.Good+before.Buckets.Fair+before.Buckets.Poor+before.Buckets.Dead,
		1e-9, "bucket fractions must sum to 1")

	// Optimize with the plan's small test budget.
	cfg := plan.OptimizerConfig(numAPs)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	opt, err := planner.NewOptimizer(fp, plan.Obstacles, plan.Measurements, cfg)
	require.NoError(t, err)
	result, err := opt.Run()
	require.NoError(t, err)

	assert.Len(t, result.Positions, numAPs)
	for _, p := range result.Positions {
		assert.True(t, fp.Contains(p), "optimized AP %v outside the plan", p)
	}

	// Final report on the optimized layout.
	aps := result.AccessPoints(plan.TxPowerDBm, plan.Band)
	for _, ap := range aps {
		assert.NotEmpty(t, ap.ID)
	}
	afterCfg := planner.DefaultCoverageConfig(7)
	afterCfg.WeakPoints = weak
	after := planner.EstimateCoverage(aps, plan.Obstacles, fp, afterCfg)
	assert.Greater(t, after.CoverageRate, 0.5, "optimized layout should cover most of a 600 m² office")
}
