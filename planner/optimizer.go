package planner

import (
	"log"
	"math/rand"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"
)

// ObjectiveWeights balances the four objective terms. Weights sum to 1.
type ObjectiveWeights struct {
	Coverage     float64 `yaml:"coverage" json:"coverage"`
	Interference float64 `yaml:"interference" json:"interference"`
	Cost         float64 `yaml:"cost" json:"cost"`
	Validity     float64 `yaml:"validity" json:"validity"`
}

// DefaultObjectiveWeights returns the standard profile.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{Coverage: 0.55, Interference: 0.20, Cost: 0.15, Validity: 0.10}
}

const (
	// validityUnitPenalty is the per-AP penalty for an invalid position
	// (outside the plan, hugging the boundary, or inside a wall). Sized so
	// a single violation outweighs any achievable coverage gain.
	validityUnitPenalty = 10.0

	// costPerAP is the normalized deployment cost unit per AP.
	costPerAP = 0.02

	// boundaryMarginM keeps APs off the plan edge; mounting hardware on
	// the outermost strip is rarely physical.
	boundaryMarginM = 0.5

	// minWallClearanceM is the smallest allowed distance between an AP
	// and a wall segment when the wall's thickness implies less.
	minWallClearanceM = 0.2

	// DE control parameters (rand/1/bin).
	deDifferentialWeight = 0.7
	deCrossoverProb      = 0.9

	// stallGenerations ends the search early when the best score stops
	// improving; that counts as convergence, not a timeout.
	stallGenerations = 12
	stallImprovement = 1e-6
)

// OptimizerConfig controls a placement search. Zero values for the budget
// fields select adaptive defaults scaled by floor area and AP count.
type OptimizerConfig struct {
	NumAPs      int
	TxPowerDBm  float64
	Band        Band
	Weights     ObjectiveWeights
	Seed        int64
	Parallelism int // worker cap for candidate evaluation; 0 = NumCPU

	MaxIterations  int           // DE generations; 0 = adaptive
	PopulationSize int           // 0 = adaptive
	Timeout        time.Duration // wall-clock budget; 0 = adaptive

	// SearchSampleBudget bounds the per-candidate coverage sampling during
	// the search; the final report uses the full default budget.
	SearchSampleBudget int

	// PolishIterations bounds the Nelder-Mead refinement of the best
	// candidate. 0 disables polish.
	PolishIterations int
}

// DefaultOptimizerConfig returns a config with adaptive budgets enabled.
func DefaultOptimizerConfig(numAPs int, txPowerDBm float64, band Band) OptimizerConfig {
	return OptimizerConfig{
		NumAPs:             numAPs,
		TxPowerDBm:         txPowerDBm,
		Band:               band,
		Weights:            DefaultObjectiveWeights(),
		Seed:               1,
		SearchSampleBudget: 300,
		PolishIterations:   60,
	}
}

// Optimizer searches AP positions on a fixed plan. The plan, obstacles and
// measurements are borrowed read-only; the optimizer owns only its transient
// candidate vectors and the result it returns. Runs are independent and
// re-entrant.
type Optimizer struct {
	plan      FloorPlan
	obstacles []Obstacle
	weak      []orb.Point
	cfg       OptimizerConfig
}

// NewOptimizer validates inputs and resolves adaptive budgets. Structural
// input errors are returned before any search work happens.
func NewOptimizer(plan FloorPlan, obstacles []Obstacle, measurements []MeasurementPoint, cfg OptimizerConfig) (*Optimizer, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	for i := range obstacles {
		if err := obstacles[i].Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.NumAPs < 1 {
		return nil, &InputError{Field: "numAPs", Reason: "must be >= 1"}
	}
	if cfg.TxPowerDBm < 0 {
		return nil, &InputError{Field: "txPowerDbm", Reason: "must be >= 0"}
	}
	if !cfg.Band.Valid() {
		cfg.Band = Band24GHz
	}
	if cfg.Weights == (ObjectiveWeights{}) {
		cfg.Weights = DefaultObjectiveWeights()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if cfg.SearchSampleBudget <= 0 {
		cfg.SearchSampleBudget = 300
	}
	applyAdaptiveBudgets(&cfg, plan)

	return &Optimizer{
		plan:      plan,
		obstacles: obstacles,
		weak:      WeakMeasurementPositions(measurements, cfg.Band),
		cfg:       cfg,
	}, nil
}

// applyAdaptiveBudgets scales the search effort with problem size: more APs
// and larger floors get more generations and a bigger population, within
// hard caps, and the wall-clock budget grows with area so small rooms finish
// quickly while big halls still terminate.
func applyAdaptiveBudgets(cfg *OptimizerConfig, plan FloorPlan) {
	dim := 2 * cfg.NumAPs
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = clampInt(4*dim, 20, 64)
	}
	if cfg.PopulationSize < 5 {
		cfg.PopulationSize = 5
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = clampInt(int(plan.AreaM2()*float64(cfg.NumAPs)/5), 40, 250)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = clampDuration(
			time.Duration(plan.AreaM2()*float64(50*time.Millisecond)),
			2*time.Second, 30*time.Second)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run executes the placement search: k-means/grid seeding, differential
// evolution over the flat position vector, then a Nelder-Mead polish of the
// best candidate. Blocking; bounded by the configured timeout. On timeout
// the best layout found so far is returned with Converged=false.
func (o *Optimizer) Run() (OptimizationResult, error) {
	start := time.Now()
	deadline := start.Add(o.cfg.Timeout)
	dim := 2 * o.cfg.NumAPs
	np := o.cfg.PopulationSize

	rng := rand.New(rand.NewSource(o.cfg.Seed))

	// Seed the population around the clustered initial guess.
	seedVec := flattenPositions(SeedPositions(o.weak, o.cfg.NumAPs, o.plan, rng))
	pop := o.initialPopulation(seedVec, np, dim, rng)
	cost := o.evaluateAll(pop, 0)

	bestIdx := argmin(cost)
	bestVec := append([]float64(nil), pop[bestIdx]...)
	bestCost := cost[bestIdx]

	log.Printf("optimizer: %d APs, pop=%d, maxiter=%d, timeout=%s, %d weak points",
		o.cfg.NumAPs, np, o.cfg.MaxIterations, o.cfg.Timeout, len(o.weak))

	iterations := 0
	stall := 0
	timedOut := false

	for gen := 1; gen <= o.cfg.MaxIterations; gen++ {
		if time.Now().After(deadline) {
			timedOut = true
			break
		}

		trials := o.mutate(pop, rng)
		trialCost := o.evaluateAll(trials, gen)

		improved := false
		for i := range pop {
			if trialCost[i] <= cost[i] {
				pop[i] = trials[i]
				cost[i] = trialCost[i]
				if trialCost[i] < bestCost-stallImprovement {
					improved = true
				}
				if trialCost[i] < bestCost {
					bestCost = trialCost[i]
					bestVec = append(bestVec[:0], trials[i]...)
				}
			}
		}
		iterations = gen

		if improved {
			stall = 0
		} else {
			stall++
		}
		if stall >= stallGenerations {
			break
		}

		if gen%25 == 0 {
			log.Printf("optimizer: gen=%d best=%.4f stall=%d elapsed=%s",
				gen, -bestCost, stall, time.Since(start).Round(time.Millisecond))
		}
	}

	// Local refinement of the best candidate with whatever time remains.
	if !timedOut {
		bestVec, bestCost = o.polish(bestVec, bestCost, deadline)
	}

	result := OptimizationResult{
		Positions:  unflattenPositions(bestVec),
		Vector:     append([]float64(nil), bestVec...),
		Score:      -bestCost,
		Iterations: iterations,
		Converged:  !timedOut,
		Elapsed:    time.Since(start),
	}
	log.Printf("optimizer: done in %s, score=%.4f, iterations=%d, converged=%v",
		result.Elapsed.Round(time.Millisecond), result.Score, result.Iterations, result.Converged)
	return result, nil
}

// initialPopulation builds the DE population: the clustered seed itself, a
// jittered neighborhood around it, and uniform random fills for diversity.
func (o *Optimizer) initialPopulation(seedVec []float64, np, dim int, rng *rand.Rand) [][]float64 {
	sigma := 0.1 * min(o.plan.WidthM, o.plan.HeightM)
	pop := make([][]float64, np)
	for i := range pop {
		v := make([]float64, dim)
		switch {
		case i == 0:
			copy(v, seedVec)
		case i < np/2:
			for d := range v {
				v[d] = seedVec[d] + rng.NormFloat64()*sigma
			}
		default:
			for d := 0; d < dim; d += 2 {
				v[d] = rng.Float64() * o.plan.WidthM
				v[d+1] = rng.Float64() * o.plan.HeightM
			}
		}
		o.clampVector(v)
		pop[i] = v
	}
	return pop
}

// mutate produces one trial vector per population member using DE rand/1/bin.
func (o *Optimizer) mutate(pop [][]float64, rng *rand.Rand) [][]float64 {
	np := len(pop)
	dim := len(pop[0])
	trials := make([][]float64, np)
	for i := range pop {
		r1, r2, r3 := distinctIndices(np, i, rng)
		trial := make([]float64, dim)
		forced := rng.Intn(dim)
		for d := 0; d < dim; d++ {
			if d == forced || rng.Float64() < deCrossoverProb {
				trial[d] = pop[r1][d] + deDifferentialWeight*(pop[r2][d]-pop[r3][d])
			} else {
				trial[d] = pop[i][d]
			}
		}
		o.clampVector(trial)
		trials[i] = trial
	}
	return trials
}

// distinctIndices picks three distinct population indices, all != self.
func distinctIndices(np, self int, rng *rand.Rand) (int, int, int) {
	pick := func(exclude ...int) int {
		for {
			idx := rng.Intn(np)
			ok := idx != self
			for _, e := range exclude {
				if idx == e {
					ok = false
				}
			}
			if ok {
				return idx
			}
		}
	}
	r1 := pick()
	r2 := pick(r1)
	r3 := pick(r1, r2)
	return r1, r2, r3
}

// evaluateAll scores every candidate in parallel. Each evaluation derives
// its sampling RNG from (seed, generation, index), so results do not depend
// on goroutine scheduling.
func (o *Optimizer) evaluateAll(vecs [][]float64, gen int) []float64 {
	costs := make([]float64, len(vecs))
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Parallelism)
	for i := range vecs {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(o.evalSeed(gen, i)))
			costs[i] = o.objective(vecs[i], rng)
			return nil
		})
	}
	_ = g.Wait() // evaluations never return errors
	return costs
}

func (o *Optimizer) evalSeed(gen, idx int) int64 {
	return o.cfg.Seed + int64(gen)*1000003 + int64(idx)*7919
}

// objective scores a flat candidate vector. It is a pure function of the
// vector, the read-only plan data, and the RNG seed: coverage score minus
// interference, cost, and validity penalties, negated for minimization.
func (o *Optimizer) objective(vec []float64, rng *rand.Rand) float64 {
	positions := unflattenPositions(vec)
	aps := make([]AccessPoint, len(positions))
	for i, p := range positions {
		aps[i] = AccessPoint{Position: p, TxPowerDBm: o.cfg.TxPowerDBm, Band: o.cfg.Band}
	}

	searchCfg := CoverageConfig{
		SamplesPerSqM:     1.0,
		MinSamples:        60,
		MaxSamples:        o.cfg.SearchSampleBudget,
		StratifiedFrac:    0.3,
		WeakScatterSigmaM: 2.0,
		WeakPoints:        o.weak,
		RNG:               rng,
	}
	coverage := EstimateCoverage(aps, o.obstacles, o.plan, searchCfg).WeightedScore

	w := o.cfg.Weights
	score := w.Coverage*coverage -
		w.Interference*o.interferencePenalty(positions) -
		w.Cost*costPerAP*float64(len(positions)) -
		w.Validity*validityUnitPenalty*float64(o.invalidPlacements(positions))

	return -score
}

// interferencePenalty is the mean pairwise penalty, each pair contributing
// 1/(d²+1). The +1 bounds the term when two APs coincide; co-channel
// interference is the optimizer's concern, singularities are not.
func (o *Optimizer) interferencePenalty(positions []orb.Point) float64 {
	n := len(positions)
	if n < 2 {
		return 0
	}
	total := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := positions[i][0] - positions[j][0]
			dy := positions[i][1] - positions[j][1]
			total += 1 / (dx*dx + dy*dy + 1)
			pairs++
		}
	}
	return total / float64(pairs)
}

// invalidPlacements counts APs that violate placement constraints: outside
// the plan, within the boundary margin, or closer to a wall segment than
// the wall's clearance allows.
func (o *Optimizer) invalidPlacements(positions []orb.Point) int {
	invalid := 0
	for _, p := range positions {
		if !o.plan.Contains(p) ||
			p[0] < boundaryMarginM || p[0] > o.plan.WidthM-boundaryMarginM ||
			p[1] < boundaryMarginM || p[1] > o.plan.HeightM-boundaryMarginM {
			invalid++
			continue
		}
		for i := range o.obstacles {
			clearance := o.obstacles[i].ThicknessCM / 100 / 2
			if clearance < minWallClearanceM {
				clearance = minWallClearanceM
			}
			if DistanceToSegment(p, o.obstacles[i].Start.Point(), o.obstacles[i].End.Point()) < clearance {
				invalid++
				break
			}
		}
	}
	return invalid
}

// polish runs a Nelder-Mead refinement on the best DE candidate. The polish
// objective uses a fixed sampling seed so the surface is deterministic for
// the simplex. The refined vector is adopted only when it scores better.
func (o *Optimizer) polish(bestVec []float64, bestCost float64, deadline time.Time) ([]float64, float64) {
	remaining := time.Until(deadline)
	if o.cfg.PolishIterations <= 0 || remaining < 50*time.Millisecond {
		return bestVec, bestCost
	}

	polishSeed := o.evalSeed(o.cfg.MaxIterations+1, 0)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := append([]float64(nil), x...)
			o.clampVector(v)
			return o.objective(v, rand.New(rand.NewSource(polishSeed)))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: o.cfg.PolishIterations,
		Runtime:         remaining,
	}

	res, err := optimize.Minimize(problem, append([]float64(nil), bestVec...), settings, &optimize.NelderMead{})
	if err != nil || res == nil {
		if err != nil {
			log.Printf("optimizer: polish skipped: %v", err)
		}
		return bestVec, bestCost
	}
	if res.F < bestCost {
		refined := append([]float64(nil), res.X...)
		o.clampVector(refined)
		log.Printf("optimizer: polish improved %.4f -> %.4f", -bestCost, -res.F)
		return refined, res.F
	}
	return bestVec, bestCost
}

// clampVector forces every (x,y) pair into the plan rectangle in place.
func (o *Optimizer) clampVector(v []float64) {
	for d := 0; d < len(v); d += 2 {
		if v[d] < 0 {
			v[d] = 0
		} else if v[d] > o.plan.WidthM {
			v[d] = o.plan.WidthM
		}
		if v[d+1] < 0 {
			v[d+1] = 0
		} else if v[d+1] > o.plan.HeightM {
			v[d+1] = o.plan.HeightM
		}
	}
}

func flattenPositions(positions []orb.Point) []float64 {
	v := make([]float64, 0, 2*len(positions))
	for _, p := range positions {
		v = append(v, p[0], p[1])
	}
	return v
}

func unflattenPositions(v []float64) []orb.Point {
	positions := make([]orb.Point, 0, len(v)/2)
	for d := 0; d+1 < len(v); d += 2 {
		positions = append(positions, orb.Point{v[d], v[d+1]})
	}
	return positions
}

func argmin(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[best] {
			best = i
		}
	}
	return best
}
