package main

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/nanlingithub/wifi-scanner-sub000/planner"
)

// App encapsulates the loaded plan and CLI options for one invocation
type App struct {
	Plan *planner.Plan

	// CLI Flags (effectively dependencies)
	PlanFile string
	NumAPs   int
	Seed     int64
}

// AppOptions carries CLI options into the App instance
type AppOptions struct {
	PlanFile string
	NumAPs   int
	Seed     int64
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.PlanFile = opts.PlanFile
	a.NumAPs = opts.NumAPs
	a.Seed = opts.Seed
}

// loadPlan loads and validates the plan document, fatally on error
func (a *App) loadPlan() *planner.Plan {
	if a.Plan != nil {
		return a.Plan
	}
	plan, err := planner.LoadPlan(a.PlanFile)
	if err != nil {
		log.Fatalf("Failed to load plan: %v", err)
	}
	a.Plan = plan
	log.Printf("Loaded plan from %s", a.PlanFile)
	return plan
}

// resolveAPCount returns the CLI override or the scenario-based estimate
func (a *App) resolveAPCount(plan *planner.Plan) int {
	if a.NumAPs > 0 {
		return a.NumAPs
	}
	fp := plan.ResolvedFloorPlan()
	weak := planner.WeakMeasurementPositions(plan.Measurements, plan.Band)
	count, err := planner.EstimateAPCount(planner.SizingInput{
		AreaM2:          fp.AreaM2(),
		Scenario:        plan.Scenario,
		WeakPointCount:  len(weak),
		ExpectedClients: plan.ExpectedClients,
	})
	if err != nil {
		log.Fatalf("Failed to estimate AP count: %v", err)
	}
	return count
}

// RunEstimate prints the recommended AP count for the plan
func (a *App) RunEstimate() {
	plan := a.loadPlan()
	fp := plan.ResolvedFloorPlan()
	weak := planner.WeakMeasurementPositions(plan.Measurements, plan.Band)

	profile, err := planner.ProfileFor(plan.Scenario)
	if err != nil {
		log.Fatalf("Failed to resolve scenario: %v", err)
	}

	count, err := planner.EstimateAPCount(planner.SizingInput{
		AreaM2:          fp.AreaM2(),
		Scenario:        plan.Scenario,
		WeakPointCount:  len(weak),
		ExpectedClients: plan.ExpectedClients,
	})
	if err != nil {
		log.Fatalf("Failed to estimate AP count: %v", err)
	}

	fmt.Printf("=== AP Count Estimate ===\n")
	fmt.Printf("Floor: %.1f x %.1f m (%.0f m²)\n", fp.WidthM, fp.HeightM, fp.AreaM2())
	fmt.Printf("Scenario: %s (radius %.0f m, overlap %.2f, %d clients/AP)\n",
		plan.Scenario, profile.CoverageRadiusM, profile.OverlapFactor, profile.MaxClientsPerAP)
	if plan.ExpectedClients > 0 {
		fmt.Printf("Expected clients: %d\n", plan.ExpectedClients)
	}
	fmt.Printf("Weak survey points: %d\n", len(weak))
	fmt.Printf("\nRecommended APs: %d\n", count)
}

// RunCoverage evaluates a seeded (unoptimized) layout and prints the report
func (a *App) RunCoverage() {
	plan := a.loadPlan()
	fp := plan.ResolvedFloorPlan()
	numAPs := a.resolveAPCount(plan)
	weak := planner.WeakMeasurementPositions(plan.Measurements, plan.Band)

	rng := rand.New(rand.NewSource(a.Seed))
	positions := planner.SeedPositions(weak, numAPs, fp, rng)

	aps := make([]planner.AccessPoint, len(positions))
	for i, p := range positions {
		aps[i] = planner.NewAccessPoint(p, plan.TxPowerDBm, plan.Band)
	}

	cfg := planner.DefaultCoverageConfig(a.Seed)
	cfg.WeakPoints = weak
	report := planner.EstimateCoverage(aps, plan.Obstacles, fp, cfg)

	fmt.Printf("=== Coverage Report (seeded layout, %d APs) ===\n", numAPs)
	printLayout(aps)
	printCoverage(report)
}

// RunOptimize runs the full placement pipeline: sizing, seeded baseline,
// optimization, and a before/after comparison
func (a *App) RunOptimize() {
	plan := a.loadPlan()
	fp := plan.ResolvedFloorPlan()
	numAPs := a.resolveAPCount(plan)
	weak := planner.WeakMeasurementPositions(plan.Measurements, plan.Band)

	fmt.Printf("=== AP Placement Optimization ===\n")
	fmt.Printf("Floor: %.1f x %.1f m (%.0f m²), scenario: %s, band: %s\n",
		fp.WidthM, fp.HeightM, fp.AreaM2(), plan.Scenario, plan.Band)
	fmt.Printf("Obstacles: %d, measurements: %d (%d weak), APs: %d\n",
		len(plan.Obstacles), len(plan.Measurements), len(weak), numAPs)

	// Baseline: the seeded layout the optimizer starts from.
	rng := rand.New(rand.NewSource(a.Seed))
	seedPositions := planner.SeedPositions(weak, numAPs, fp, rng)
	baseline := make([]planner.AccessPoint, len(seedPositions))
	for i, p := range seedPositions {
		baseline[i] = planner.AccessPoint{Position: p, TxPowerDBm: plan.TxPowerDBm, Band: plan.Band}
	}

	baseCfg := planner.DefaultCoverageConfig(a.Seed)
	baseCfg.WeakPoints = weak
	before := planner.EstimateCoverage(baseline, plan.Obstacles, fp, baseCfg)

	cfg := plan.OptimizerConfig(numAPs)
	if a.Seed != 0 {
		cfg.Seed = a.Seed
	}

	opt, err := planner.NewOptimizer(fp, plan.Obstacles, plan.Measurements, cfg)
	if err != nil {
		log.Fatalf("Failed to create optimizer: %v", err)
	}

	fmt.Println(strings.Repeat("-", 60))
	result, err := opt.Run()
	if err != nil {
		log.Fatalf("Optimization failed: %v", err)
	}
	fmt.Println(strings.Repeat("-", 60))

	aps := result.AccessPoints(plan.TxPowerDBm, plan.Band)
	afterCfg := planner.DefaultCoverageConfig(a.Seed)
	afterCfg.WeakPoints = weak
	after := planner.EstimateCoverage(aps, plan.Obstacles, fp, afterCfg)

	fmt.Printf("\nResult: score=%.4f, iterations=%d, converged=%v, elapsed=%s\n",
		result.Score, result.Iterations, result.Converged, result.Elapsed.Round(time.Millisecond))
	if !result.Converged {
		fmt.Println("NOTE: timeout reached; layout is best-so-far, not converged")
	}

	fmt.Printf("\nOptimized layout:\n")
	printLayout(aps)

	fmt.Printf("\nCoverage before (seeded) vs after (optimized):\n")
	fmt.Printf("  %-16s %10s %10s\n", "", "before", "after")
	fmt.Printf("  %-16s %9.1f%% %9.1f%%\n", "coverage rate", before.CoverageRate*100, after.CoverageRate*100)
	fmt.Printf("  %-16s %10.4f %10.4f\n", "weighted score", before.WeightedScore, after.WeightedScore)

	fmt.Printf("\nAfter:\n")
	printCoverage(after)
}

func printLayout(aps []planner.AccessPoint) {
	for i, ap := range aps {
		id := ap.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("  AP%d [%s]: (%.2f, %.2f) m, %.0f dBm, %s\n",
			i+1, id, ap.Position[0], ap.Position[1], ap.TxPowerDBm, ap.Band)
	}
}

func printCoverage(r planner.CoverageReport) {
	fmt.Printf("  Samples: %d\n", r.SampleCount)
	fmt.Printf("  Coverage rate: %.1f%%\n", r.CoverageRate*100)
	fmt.Printf("  Weighted score: %.4f\n", r.WeightedScore)
	fmt.Println("  Quality distribution:")
	printBucket("excellent (> -50 dBm)", r.Buckets.Excellent)
	printBucket("good      (> -60 dBm)", r.Buckets.Good)
	printBucket("fair      (> -70 dBm)", r.Buckets.Fair)
	printBucket("poor      (> -80 dBm)", r.Buckets.Poor)
	printBucket("dead      (<= -80 dBm)", r.Buckets.Dead)
}

func printBucket(label string, frac float64) {
	bar := strings.Repeat("#", int(frac*40+0.5))
	fmt.Printf("    %-22s %5.1f%% %s\n", label, frac*100, bar)
}
