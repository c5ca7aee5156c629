package harness

import "github.com/roach88/ambit/internal/resolver"

// Result is the outcome of running one scenario.
type Result struct {
	// Pass indicates the resolution outcome matched the expect clause.
	Pass bool `json:"pass"`

	// Outcome is what actually happened: OutcomeResolve or OutcomeFail.
	Outcome string `json:"outcome"`

	// Code is the construction error code on failure, empty on success.
	Code string `json:"code,omitempty"`

	// Shapes maps each function to its resolved shape, success only.
	Shapes map[string]string `json:"shapes,omitempty"`

	// Events is the full decision trace, success only.
	Events []resolver.Event `json:"events,omitempty"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result as the starting point.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError adds an expectation mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
