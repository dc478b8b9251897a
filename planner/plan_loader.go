package planner

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTxPowerDBm is assumed when a plan document does not set transmit
// power. 20 dBm is the common regulatory ceiling for indoor 2.4 GHz gear.
const DefaultTxPowerDBm = 20.0

// Plan is a full planning document as loaded from YAML: the floor geometry,
// the deployment scenario, the survey data, and optional optimizer overrides.
type Plan struct {
	FloorPlan       FloorPlanDoc       `yaml:"floorplan"`
	Scenario        Scenario           `yaml:"scenario"`
	Band            Band               `yaml:"band,omitempty"`
	TxPowerDBm      float64            `yaml:"txPowerDbm,omitempty"`
	ExpectedClients int                `yaml:"expectedClients,omitempty"`
	Obstacles       []Obstacle         `yaml:"obstacles,omitempty"`
	Measurements    []MeasurementPoint `yaml:"measurements,omitempty"`
	Optimizer       *OptimizerDoc      `yaml:"optimizer,omitempty"`
}

// FloorPlanDoc accepts floor dimensions either directly in meters or as
// editor pixels with a scale. Meters win when both are present.
type FloorPlanDoc struct {
	WidthM          float64 `yaml:"widthM,omitempty"`
	HeightM         float64 `yaml:"heightM,omitempty"`
	WidthPx         float64 `yaml:"widthPx,omitempty"`
	HeightPx        float64 `yaml:"heightPx,omitempty"`
	ScalePxPerMeter float64 `yaml:"scalePxPerMeter,omitempty"`
}

// OptimizerDoc holds the optional per-plan optimizer overrides. Zero fields
// keep the adaptive defaults.
type OptimizerDoc struct {
	NumAPs         int     `yaml:"numAps,omitempty"`
	MaxIterations  int     `yaml:"maxIterations,omitempty"`
	PopulationSize int     `yaml:"populationSize,omitempty"`
	TimeoutSeconds float64 `yaml:"timeoutSeconds,omitempty"`
	Seed           int64   `yaml:"seed,omitempty"`

	Weights *ObjectiveWeights `yaml:"weights,omitempty"`
}

// LoadPlan loads and validates a planning document from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s", path)
		}
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}

	if err := plan.Normalize(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Normalize applies defaults and validates the document. Safe to call on a
// Plan constructed in code rather than loaded from a file.
func (p *Plan) Normalize() error {
	if p.Band == "" {
		p.Band = Band24GHz
	}
	if !p.Band.Valid() {
		return &InputError{Field: "band", Reason: fmt.Sprintf("unknown band %q", p.Band)}
	}
	if p.Scenario == "" {
		p.Scenario = ScenarioOffice
	}
	if !p.Scenario.Valid() {
		return &InputError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", p.Scenario)}
	}
	if p.TxPowerDBm == 0 {
		p.TxPowerDBm = DefaultTxPowerDBm
	}
	if p.TxPowerDBm < 0 {
		return &InputError{Field: "txPowerDbm", Reason: "must be >= 0"}
	}
	if p.ExpectedClients < 0 {
		return &InputError{Field: "expectedClients", Reason: "must be >= 0"}
	}

	fp, err := p.FloorPlan.Resolve()
	if err != nil {
		return err
	}
	// Keep the resolved meters in the doc so later reads are consistent.
	p.FloorPlan.WidthM = fp.WidthM
	p.FloorPlan.HeightM = fp.HeightM

	for i := range p.Obstacles {
		if err := p.Obstacles[i].Validate(); err != nil {
			return fmt.Errorf("obstacles[%d]: %w", i, err)
		}
		if !fp.Contains(p.Obstacles[i].Start.Point()) || !fp.Contains(p.Obstacles[i].End.Point()) {
			return fmt.Errorf("obstacles[%d]: %w", i,
				&InputError{Field: "obstacle.geometry", Reason: "endpoint outside the floor plan"})
		}
	}
	for i := range p.Measurements {
		if !fp.Contains(p.Measurements[i].Position.Point()) {
			return fmt.Errorf("measurements[%d]: %w", i,
				&InputError{Field: "measurement.position", Reason: "outside the floor plan"})
		}
	}
	return nil
}

// Resolve produces the meter-based FloorPlan from either form of the doc.
func (d FloorPlanDoc) Resolve() (FloorPlan, error) {
	if d.WidthM > 0 || d.HeightM > 0 {
		fp := FloorPlan{WidthM: d.WidthM, HeightM: d.HeightM, ScalePxPerMeter: d.ScalePxPerMeter}
		if err := fp.Validate(); err != nil {
			return FloorPlan{}, err
		}
		return fp, nil
	}
	if d.WidthPx > 0 || d.HeightPx > 0 {
		return FloorPlanFromPixels(d.WidthPx, d.HeightPx, d.ScalePxPerMeter)
	}
	return FloorPlan{}, &InputError{Field: "floorplan", Reason: "dimensions missing (set widthM/heightM or widthPx/heightPx with scalePxPerMeter)"}
}

// ResolvedFloorPlan returns the plan geometry in meters. Normalize must have
// succeeded first.
func (p *Plan) ResolvedFloorPlan() FloorPlan {
	fp, _ := p.FloorPlan.Resolve()
	return fp
}

// OptimizerConfig builds the search configuration for this plan: adaptive
// defaults, overridden by the document's optimizer section where set.
func (p *Plan) OptimizerConfig(numAPs int) OptimizerConfig {
	cfg := DefaultOptimizerConfig(numAPs, p.TxPowerDBm, p.Band)
	doc := p.Optimizer
	if doc == nil {
		return cfg
	}
	if doc.NumAPs > 0 {
		cfg.NumAPs = doc.NumAPs
	}
	if doc.MaxIterations > 0 {
		cfg.MaxIterations = doc.MaxIterations
	}
	if doc.PopulationSize > 0 {
		cfg.PopulationSize = doc.PopulationSize
	}
	if doc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(doc.TimeoutSeconds * float64(time.Second))
	}
	if doc.Seed != 0 {
		cfg.Seed = doc.Seed
	}
	if doc.Weights != nil {
		cfg.Weights = *doc.Weights
	}
	return cfg
}

// SavePlan writes a plan document back to a YAML file.
func SavePlan(path string, plan *Plan) error {
	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing plan file: %w", err)
	}

	return nil
}
