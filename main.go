package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	planFile     = flag.String("plan", "plan.yaml", "Path to plan document (YAML)")
	estimateOnly = flag.Bool("estimate", false, "Estimate the recommended AP count and exit")
	coverageOnly = flag.Bool("coverage", false, "Evaluate coverage for a seeded layout and exit")
	optimizeMode = flag.Bool("optimize", false, "Run the full placement optimization")
	numAPs       = flag.Int("aps", 0, "AP count override (default: estimated from the plan)")
	seed         = flag.Int64("seed", 1, "RNG seed for sampling and optimization")
)

func main() {
	flag.Parse()
	fmt.Printf("wifi-scanner version: %s\n", Version)

	app := NewApp()
	app.ApplyOptions(AppOptions{
		PlanFile: *planFile,
		NumAPs:   *numAPs,
		Seed:     *seed,
	})

	if *estimateOnly {
		app.RunEstimate()
		return
	}

	if *coverageOnly {
		app.RunCoverage()
		return
	}

	if *optimizeMode {
		app.RunOptimize()
		return
	}

	fmt.Println("Use --estimate to size the deployment from the plan")
	fmt.Println("Use --coverage to evaluate a seeded layout")
	fmt.Println("Use --optimize to run the full placement optimization")
	fmt.Println("\nConfiguration:")
	fmt.Println("  plan.yaml - floor geometry, scenario, obstacles, survey data")
}
