package planner

import "fmt"

// InputError reports a structural problem with plan input (bad dimensions,
// degenerate geometry, negative power). These fail fast, before any
// estimation or search work begins. Numeric edge cases (near-zero distances
// and the like) are never surfaced as errors; they are clamped where they
// occur.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}
