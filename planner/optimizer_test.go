package planner

import (
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func testPlanFixture() (FloorPlan, []Obstacle, []MeasurementPoint) {
	plan := FloorPlan{WidthM: 30, HeightM: 20}
	obstacles := []Obstacle{
		{Kind: KindWall, Material: MaterialConcrete, Start: Coord{X: 15, Y: 0}, End: Coord{X: 15, Y: 12}, ThicknessCM: 20},
	}
	measurements := []MeasurementPoint{
		{Position: Coord{X: 28, Y: 18}, SignalByBand: map[Band]float64{Band24GHz: -82}},
		{Position: Coord{X: 27, Y: 2}, SignalByBand: map[Band]float64{Band24GHz: -75}},
		{Position: Coord{X: 3, Y: 3}, SignalByBand: map[Band]float64{Band24GHz: -55}},
	}
	return plan, obstacles, measurements
}

// smallBudget keeps optimizer tests fast while exercising the full loop.
func smallBudget(numAPs int) OptimizerConfig {
	cfg := DefaultOptimizerConfig(numAPs, 20, Band24GHz)
	cfg.MaxIterations = 5
	cfg.PopulationSize = 10
	cfg.Timeout = 10 * time.Second
	cfg.SearchSampleBudget = 80
	cfg.PolishIterations = 10
	cfg.Parallelism = 2
	return cfg
}

// ---------------------------------------------------------------------------
// NewOptimizer validation
// ---------------------------------------------------------------------------

func TestNewOptimizer_InvalidInputs(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()

	if _, err := NewOptimizer(FloorPlan{}, nil, nil, smallBudget(2)); err == nil {
		t.Error("expected error for empty floor plan")
	}

	cfg := smallBudget(0)
	if _, err := NewOptimizer(plan, obstacles, measurements, cfg); err == nil {
		t.Error("expected error for numAPs < 1")
	}

	cfg = smallBudget(2)
	cfg.TxPowerDBm = -3
	if _, err := NewOptimizer(plan, obstacles, measurements, cfg); err == nil {
		t.Error("expected error for negative tx power")
	}

	bad := []Obstacle{{Kind: "window", Start: Coord{X: 0, Y: 0}, End: Coord{X: 1, Y: 0}}}
	if _, err := NewOptimizer(plan, bad, nil, smallBudget(2)); err == nil {
		t.Error("expected error for invalid obstacle")
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestOptimizerRun_ResultShape(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()

	opt, err := NewOptimizer(plan, obstacles, measurements, smallBudget(3))
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	result, err := opt.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Positions) != 3 {
		t.Errorf("len(Positions) = %d, want 3", len(result.Positions))
	}
	if len(result.Vector) != 6 {
		t.Errorf("len(Vector) = %d, want 6", len(result.Vector))
	}
	for i, p := range result.Positions {
		if !plan.Contains(p) {
			t.Errorf("Positions[%d] = %v outside the plan", i, p)
		}
	}
	if result.Iterations < 1 {
		t.Errorf("Iterations = %d, want >= 1", result.Iterations)
	}
	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) {
		t.Errorf("Score not finite: %g", result.Score)
	}
	if result.Elapsed <= 0 {
		t.Errorf("Elapsed = %s, want > 0", result.Elapsed)
	}
}

func TestOptimizerRun_TimeoutReturnsUnconverged(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()

	cfg := smallBudget(3)
	cfg.MaxIterations = 10000
	cfg.PopulationSize = 40
	cfg.SearchSampleBudget = 2000
	cfg.Timeout = time.Millisecond
	cfg.PolishIterations = 0

	opt, err := NewOptimizer(plan, obstacles, measurements, cfg)
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	result, err := opt.Run()
	if err != nil {
		t.Fatalf("Run must not fail on timeout: %v", err)
	}

	if result.Converged {
		t.Error("expected Converged=false after a 10 ms budget")
	}
	if len(result.Positions) != 3 {
		t.Errorf("best-so-far layout missing: len(Positions) = %d", len(result.Positions))
	}
}

func TestOptimizerRun_Deterministic(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()

	run := func() OptimizationResult {
		cfg := smallBudget(2)
		cfg.Seed = 42
		opt, err := NewOptimizer(plan, obstacles, measurements, cfg)
		if err != nil {
			t.Fatalf("NewOptimizer: %v", err)
		}
		result, err := opt.Run()
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result
	}

	a := run()
	b := run()

	if len(a.Vector) != len(b.Vector) {
		t.Fatalf("vector lengths differ: %d vs %d", len(a.Vector), len(b.Vector))
	}
	for i := range a.Vector {
		if math.Abs(a.Vector[i]-b.Vector[i]) > 1e-9 {
			t.Fatalf("same seed diverged at dim %d: %g vs %g", i, a.Vector[i], b.Vector[i])
		}
	}
	if math.Abs(a.Score-b.Score) > 1e-9 {
		t.Errorf("same seed scores differ: %g vs %g", a.Score, b.Score)
	}
}

func TestOptimizerRun_SingleAP(t *testing.T) {
	plan := FloorPlan{WidthM: 12, HeightM: 10}

	opt, err := NewOptimizer(plan, nil, nil, smallBudget(1))
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	result, err := opt.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Positions) != 1 {
		t.Fatalf("len(Positions) = %d, want 1", len(result.Positions))
	}
	// One AP has no pairwise interference; the score should be positive for
	// a small open room.
	if result.Score <= 0 {
		t.Errorf("Score = %g, want > 0", result.Score)
	}
}

// ---------------------------------------------------------------------------
// Objective terms
// ---------------------------------------------------------------------------

func TestInterferencePenalty(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()
	opt, err := NewOptimizer(plan, obstacles, measurements, smallBudget(2))
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	if got := opt.interferencePenalty([]orb.Point{{5, 5}}); got != 0 {
		t.Errorf("single AP penalty = %g, want 0", got)
	}

	colocated := opt.interferencePenalty([]orb.Point{{5, 5}, {5, 5}})
	if colocated != 1 {
		t.Errorf("co-located pair penalty = %g, want 1 (bounded, no singularity)", colocated)
	}

	spread := opt.interferencePenalty([]orb.Point{{2, 2}, {28, 18}})
	if spread >= colocated {
		t.Errorf("spread penalty %g should be below co-located %g", spread, colocated)
	}
}

func TestInvalidPlacements(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()
	opt, err := NewOptimizer(plan, obstacles, measurements, smallBudget(2))
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	positions := []orb.Point{
		{10, 10},    // fine
		{0.1, 10},   // inside the boundary margin
		{15.05, 6},  // inside the wall clearance
		{7, 19.9},   // hugging the top edge
	}
	if got := opt.invalidPlacements(positions); got != 3 {
		t.Errorf("invalidPlacements = %d, want 3", got)
	}
}

func TestObjective_DeterministicForSeed(t *testing.T) {
	plan, obstacles, measurements := testPlanFixture()
	opt, err := NewOptimizer(plan, obstacles, measurements, smallBudget(2))
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}

	vec := []float64{8, 10, 22, 10}
	a := opt.evaluateAll([][]float64{vec}, 3)[0]
	b := opt.evaluateAll([][]float64{vec}, 3)[0]
	if a != b {
		t.Errorf("same (vector, generation, index) scored %g then %g", a, b)
	}
}
