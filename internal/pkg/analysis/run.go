// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analysis wires the CS-PTA solver, the taint engine, and the ICP
// solver into the single end-to-end run a host (cmd/wpa, or a test) drives
// through Run (§6, "CLI/Options (consumed)").
package analysis

import (
	"log"

	"github.com/whole-program/wpacore/internal/pkg/classhierarchy"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/diagnostics"
	"github.com/whole-program/wpacore/internal/pkg/icfg"
	"github.com/whole-program/wpacore/internal/pkg/icp"
	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/result"
	"github.com/whole-program/wpacore/internal/pkg/taint"
	"github.com/whole-program/wpacore/internal/pkg/taintconfig"
)

// Options is the string-keyed CLI surface of §6, given a typed home: the
// two recognized keys are TaintConfig ("taint-config") and PTA ("pta").
// Diagnostics, if nil, is replaced by a private Sink. Either way, Run logs
// every non-fatal ConfigError/ResolutionFailure it accumulated with
// log.Printf before returning; a host that wants to inspect them as values
// should pass its own Sink and drain it with Entries() after Run returns.
type Options struct {
	// TaintConfig is the path to a taint source/sink/transfer document
	// ("taint-config"). Taint tracking is skipped entirely when empty.
	TaintConfig string
	// PTA names this run's pointer-analysis result ("pta"), carried into
	// the produced Report's PTAIdentifier for a later, separate ICP-only
	// run to refer back to. This implementation always (re)computes CS-PTA
	// itself rather than loading one by identifier - there is no persisted
	// pointer-analysis store in this module - so PTA only ever labels the
	// result it produces.
	PTA string
	// Selector chooses the CS-PTA's context sensitivity. Defaults to
	// cspta.Insensitive (plain Andersen analysis) when nil.
	Selector func(mgr *cspta.CSManager) cspta.ContextSelector
	// Diagnostics accumulates ConfigError and ResolutionFailure (§7).
	Diagnostics *diagnostics.Sink
}

// Run performs one complete analysis of classes, starting the CS-PTA (and,
// if Options.TaintConfig is set, the taint engine) from mainMethod, then
// runs ICP over the resulting call graph, and returns the combined Report.
func Run(opts Options, classes []*ir.Class, mainMethod *ir.Method) (*result.Report, error) {
	diag := opts.Diagnostics
	if diag == nil {
		diag = &diagnostics.Sink{}
	}

	mgr := cspta.NewCSManager()
	heap := cspta.NewAllocationSiteHeapModel()
	selector := cspta.ContextSelector(cspta.Insensitive{Manager: mgr})
	if opts.Selector != nil {
		selector = opts.Selector(mgr)
	}
	hierarchy := classhierarchy.New(classes)

	var engine *taint.Engine
	solver := cspta.NewCSPTASolver(mgr, heap, selector, hierarchy, nil, diag)
	if opts.TaintConfig != "" {
		cfg, err := taintconfig.Load(opts.TaintConfig)
		if err != nil {
			diag.Report(diagnostics.ConfigError, "%v", err)
		} else {
			for _, problem := range cfg.Unresolved(classes) {
				diag.Report(diagnostics.ConfigError, "%s", problem)
			}
			engine = taint.NewEngine(cfg, mgr, solver.Worklist())
			solver.Taint = engine
		}
	}

	solver.Solve(mainMethod)

	query := cspta.NewQuery(mgr)
	graph := icfg.Build(solver.CallGraph())
	transfer := icp.NewConstPropTransfer(query)
	icpSolver := icp.NewSolver(graph, transfer)
	icpSolver.Solve(mainMethod)

	report := &result.Report{
		PTAIdentifier: opts.PTA,
		PointsTo:      result.BuildPointsTo(mgr),
		CallGraph:     result.BuildCallGraph(solver.CallGraph()),
		Flows:         result.BuildFlows(engine),
		ICP:           result.BuildICP(graph, icpSolver),
		ICPGlobals:    result.BuildICPGlobals(transfer.Global),
	}

	for _, d := range diag.Entries() {
		log.Printf("wpacore: %s", d)
	}

	return report, nil
}
