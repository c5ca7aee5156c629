package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ambit/internal/resolver"
)

// TraceSnapshot captures one scenario's resolution trace for golden
// comparison. Field order is fixed by the struct, so serialization is
// deterministic.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Outcome      string           `json:"outcome"`
	Code         string           `json:"code,omitempty"`
	Events       []resolver.Event `json:"events,omitempty"`
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Outcome:      result.Outcome,
		Code:         result.Code,
		Events:       result.Events,
	}
	// Shape strings carry angle brackets; keep them readable in the
	// golden files instead of HTML-escaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, buf.Bytes())

	return result, nil
}
