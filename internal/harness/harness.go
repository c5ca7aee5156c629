package harness

import (
	"fmt"

	"github.com/roach88/ambit/internal/cli"
	"github.com/roach88/ambit/internal/ir"
	"github.com/roach88/ambit/internal/resolver"
	"github.com/roach88/ambit/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// The program is built exactly the way the CLI builds it, with
// sequential scope identities so the trace is reproducible: supplies
// take scope-1, scope-2, ... in declaration order, synthesized defaults
// continue the sequence.
func Run(scenario *Scenario) (*Result, error) {
	gen := testutil.NewSequenceGenerator()

	prog, err := cli.BuildProgram(toManifest(scenario), gen)
	if err != nil {
		// Declaration-time construction errors (a duplicate kind, an
		// occupied slot) are outcomes a scenario can expect, the same as
		// resolution failures.
		if code := ir.CodeOf(err); code != "" {
			result := NewResult()
			result.Outcome = OutcomeFail
			result.Code = string(code)
			evaluateFailure(scenario, result, err)
			return result, nil
		}
		return nil, fmt.Errorf("building scenario program: %w", err)
	}

	result := NewResult()
	res, err := resolver.Resolve(prog.Graph, prog.Registry, prog.Root, scenario.Entry,
		resolver.WithScopeGenerator(gen))
	if err != nil {
		result.Outcome = OutcomeFail
		result.Code = string(ir.CodeOf(err))
		evaluateFailure(scenario, result, err)
		return result, nil
	}

	result.Outcome = OutcomeResolve
	result.Events = res.Events
	result.Shapes = make(map[string]string, len(res.Shapes))
	for name, shape := range res.Shapes {
		result.Shapes[name] = shape.String()
	}
	if scenario.Expect.Outcome != OutcomeResolve {
		result.AddError(fmt.Sprintf("expected failure with code %s, but resolution succeeded",
			scenario.Expect.Code))
	}
	return result, nil
}

// evaluateFailure checks an actual failure against the expect clause.
func evaluateFailure(scenario *Scenario, result *Result, err error) {
	if scenario.Expect.Outcome != OutcomeFail {
		result.AddError(fmt.Sprintf("expected resolution to succeed, got: %v", err))
		return
	}
	if result.Code == "" {
		result.AddError(fmt.Sprintf("expected construction error %s, got non-construction error: %v",
			scenario.Expect.Code, err))
		return
	}
	if result.Code != scenario.Expect.Code {
		result.AddError(fmt.Sprintf("expected construction error %s, got %s: %v",
			scenario.Expect.Code, result.Code, err))
	}
}

// toManifest converts a scenario's declarations to the CLI manifest form.
func toManifest(s *Scenario) *cli.Manifest {
	m := &cli.Manifest{Entry: s.Entry}
	for _, capDecl := range s.Capabilities {
		m.Kinds = append(m.Kinds, cli.ManifestKind{
			Name:       capDecl.Name,
			Payload:    capDecl.Payload,
			Visibility: capDecl.Visibility,
			Slot:       capDecl.Slot,
			Default:    capDecl.Default,
			HasDefault: capDecl.Default != nil,
		})
	}
	for _, p := range s.Projections {
		m.Projections = append(m.Projections, cli.ManifestProjection{From: p.From, To: p.To})
	}
	for _, fn := range s.Functions {
		mf := cli.ManifestFunc{Name: fn.Name, Calls: fn.Calls}
		for _, req := range fn.Requires {
			mf.Requires = append(mf.Requires, cli.ManifestRequire{
				Cap:     req.Cap,
				Mode:    req.Mode,
				Payload: req.Payload,
			})
		}
		m.Funcs = append(m.Funcs, mf)
	}
	for _, sup := range s.Supply {
		m.Supplies = append(m.Supplies, cli.ManifestSupply{
			Cap:   sup.Cap,
			Mode:  sup.Mode,
			Value: sup.Value,
		})
	}
	return m
}
