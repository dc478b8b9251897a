package planner

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	kmeansMaxIterations  = 50
	kmeansConvergeThresh = 1e-3 // meters of total centroid movement
)

// SeedPositions produces an initial AP layout for the optimizer. When weak
// measurement points exist they are clustered into k groups and the cluster
// centroids become the starting guess; otherwise APs are spread on a uniform
// grid over the plan.
func SeedPositions(weak []orb.Point, k int, plan FloorPlan, rng *rand.Rand) []orb.Point {
	if k <= 0 {
		return nil
	}
	if len(weak) < k {
		return gridSeed(k, plan)
	}
	return kmeans(weak, k, rng)
}

// kmeans is Lloyd's algorithm with k-means++-style seeding. The caller
// guarantees len(points) >= k.
func kmeans(points []orb.Point, k int, rng *rand.Rand) []orb.Point {
	centroids := seedCentroids(points, k, rng)
	assign := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		// Assignment step.
		for i, p := range points {
			best := 0
			bestDist := math.MaxFloat64
			for c, cen := range centroids {
				if d := planar.Distance(p, cen); d < bestDist {
					bestDist = d
					best = c
				}
			}
			assign[i] = best
		}

		// Update step.
		sums := make([]orb.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}

		moved := 0.0
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an empty cluster from a random point so every
				// AP gets a distinct starting position.
				centroids[c] = points[rng.Intn(len(points))]
				moved += kmeansConvergeThresh * 2
				continue
			}
			next := orb.Point{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			moved += planar.Distance(centroids[c], next)
			centroids[c] = next
		}

		if moved < kmeansConvergeThresh {
			break
		}
	}
	return centroids
}

// seedCentroids picks k starting centroids: a random first point, then each
// subsequent one the point farthest from the centroids chosen so far.
func seedCentroids(points []orb.Point, k int, rng *rand.Rand) []orb.Point {
	centroids := make([]orb.Point, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	for len(centroids) < k {
		farIdx := 0
		farDist := -1.0
		for i, p := range points {
			nearest := math.MaxFloat64
			for _, c := range centroids {
				if d := planar.Distance(p, c); d < nearest {
					nearest = d
				}
			}
			if nearest > farDist {
				farDist = nearest
				farIdx = i
			}
		}
		centroids = append(centroids, points[farIdx])
	}
	return centroids
}

// gridSeed distributes k positions on a near-square grid over the plan,
// offset by half a cell so no seed starts on the boundary.
func gridSeed(k int, plan FloorPlan) []orb.Point {
	cols := int(math.Ceil(math.Sqrt(float64(k) * plan.WidthM / plan.HeightM)))
	if cols < 1 {
		cols = 1
	}
	rows := int(math.Ceil(float64(k) / float64(cols)))

	cellW := plan.WidthM / float64(cols)
	cellH := plan.HeightM / float64(rows)

	seeds := make([]orb.Point, 0, k)
	for r := 0; r < rows && len(seeds) < k; r++ {
		for c := 0; c < cols && len(seeds) < k; c++ {
			seeds = append(seeds, orb.Point{
				(float64(c) + 0.5) * cellW,
				(float64(r) + 0.5) * cellH,
			})
		}
	}
	return seeds
}
