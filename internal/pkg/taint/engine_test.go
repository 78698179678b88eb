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

package taint_test

import (
	"testing"

	"github.com/whole-program/wpacore/internal/pkg/classhierarchy"
	"github.com/whole-program/wpacore/internal/pkg/config/regexp"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/taint"
	"github.com/whole-program/wpacore/internal/pkg/taintconfig"
)

func mustRegexp(t *testing.T, pattern string) regexp.Regexp {
	t.Helper()
	var re regexp.Regexp
	if err := re.UnmarshalJSON([]byte(`"` + pattern + `"`)); err != nil {
		t.Fatalf("regexp %q: %v", pattern, err)
	}
	return re
}

// TestSourceReachesSink wires a one-statement source call straight into a
// one-statement sink call and checks the engine reports exactly one flow
// (§8 "taint filter idempotence": a single flow, recorded once).
func TestSourceReachesSink(t *testing.T) {
	util := &ir.Class{Name: "Util"}
	sourceM := &ir.Method{Name: "source", Class: util, Static: true}
	sinkM := &ir.Method{Name: "sink", Class: util, Static: true}
	util.Methods = []*ir.Method{sourceM, sinkM}

	mainM := &ir.Method{Name: "main", Static: true}
	strType := ir.Type{Name: "String"}
	s := &ir.Var{Name: "s", Type: strType, Method: mainM}

	invSource := &ir.Invoke{LHS: s, Kind: ir.StaticCall, Method: sourceM}
	invSink := &ir.Invoke{Kind: ir.StaticCall, Method: sinkM, Args: []*ir.Var{s}}
	mainM.Add(invSource)
	mainM.Add(invSink)

	cfg := &taintconfig.Config{
		Sources: []taintconfig.Source{{
			Method: taintconfig.MethodPattern{Class: mustRegexp(t, "^Util$"), Method: mustRegexp(t, "^source$")},
			Type:   mustRegexp(t, ".*"),
		}},
		Sinks: []taintconfig.Sink{{
			Method:   taintconfig.MethodPattern{Class: mustRegexp(t, "^Util$"), Method: mustRegexp(t, "^sink$")},
			ArgIndex: 0,
		}},
	}

	mgr := cspta.NewCSManager()
	hierarchy := classhierarchy.New([]*ir.Class{util})
	solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	engine := taint.NewEngine(cfg, mgr, solver.Worklist())
	solver.Taint = engine

	solver.Solve(mainM)

	flows := engine.Flows()
	if len(flows) != 1 {
		t.Fatalf("got %d flows, want 1: %v", len(flows), flows)
	}
	if flows[0].ArgIndex != 0 {
		t.Errorf("flow.ArgIndex = %d, want 0", flows[0].ArgIndex)
	}
}

// TestNoSourceNoFlow checks that an unrelated sink call, with no matching
// source anywhere upstream, produces no flow at all.
func TestNoSourceNoFlow(t *testing.T) {
	util := &ir.Class{Name: "Util"}
	sinkM := &ir.Method{Name: "sink", Class: util, Static: true}
	util.Methods = []*ir.Method{sinkM}

	mainM := &ir.Method{Name: "main", Static: true}
	s := &ir.Var{Name: "s", Type: ir.Type{Name: "String"}, Method: mainM}
	newS := &ir.New{LHS: s, Type: s.Type}
	invSink := &ir.Invoke{Kind: ir.StaticCall, Method: sinkM, Args: []*ir.Var{s}}
	mainM.Add(newS)
	mainM.Add(invSink)

	cfg := &taintconfig.Config{
		Sinks: []taintconfig.Sink{{
			Method:   taintconfig.MethodPattern{Class: mustRegexp(t, "^Util$"), Method: mustRegexp(t, "^sink$")},
			ArgIndex: 0,
		}},
	}

	mgr := cspta.NewCSManager()
	hierarchy := classhierarchy.New([]*ir.Class{util})
	solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	engine := taint.NewEngine(cfg, mgr, solver.Worklist())
	solver.Taint = engine

	solver.Solve(mainM)

	if flows := engine.Flows(); len(flows) != 0 {
		t.Fatalf("got %d flows, want 0: %v", len(flows), flows)
	}
}

// TestTransferEndpointSelection builds readSecret(); "a".concat(t); log(y)
// twice: once with a {BASE, RESULT} transfer, which must not fire since the
// tainted value sits at arg 0 rather than the receiver, and once with a
// {0, RESULT} transfer, which must (§8 scenario 5, "Taint transfer").
func TestTransferEndpointSelection(t *testing.T) {
	run := func(t *testing.T, from int) int {
		str := &ir.Class{Name: "String"}
		util := &ir.Class{Name: "Util"}
		sourceM := &ir.Method{Name: "readSecret", Class: util, Static: true}
		concatM := &ir.Method{Name: "concat", Class: str}
		sinkM := &ir.Method{Name: "log", Class: util, Static: true}
		util.Methods = []*ir.Method{sourceM, sinkM}
		str.Methods = []*ir.Method{concatM}
		concatM.This = &ir.Var{Name: "this", Type: ir.Type{Name: "String"}, Method: concatM}

		mainM := &ir.Method{Name: "main", Static: true}
		strType := ir.Type{Name: "String"}
		tVar := &ir.Var{Name: "t", Type: strType, Method: mainM}
		base := &ir.Var{Name: "lit", Type: strType, Method: mainM}
		y := &ir.Var{Name: "y", Type: strType, Method: mainM}

		invSource := &ir.Invoke{LHS: tVar, Kind: ir.StaticCall, Method: sourceM}
		newLit := &ir.New{LHS: base, Type: strType, Class: str}
		invConcat := &ir.Invoke{LHS: y, Base: base, Kind: ir.VirtualCall, Method: concatM, Args: []*ir.Var{tVar}}
		invSink := &ir.Invoke{Kind: ir.StaticCall, Method: sinkM, Args: []*ir.Var{y}}
		mainM.Add(invSource)
		mainM.Add(newLit)
		mainM.Add(invConcat)
		mainM.Add(invSink)

		cfg := &taintconfig.Config{
			Sources: []taintconfig.Source{{
				Method: taintconfig.MethodPattern{Class: mustRegexp(t, "^Util$"), Method: mustRegexp(t, "^readSecret$")},
				Type:   mustRegexp(t, ".*"),
			}},
			Sinks: []taintconfig.Sink{{
				Method:   taintconfig.MethodPattern{Class: mustRegexp(t, "^Util$"), Method: mustRegexp(t, "^log$")},
				ArgIndex: 0,
			}},
			Transfers: []taintconfig.Transfer{{
				Method: taintconfig.MethodPattern{Class: mustRegexp(t, "^String$"), Method: mustRegexp(t, "^concat$")},
				From:   from,
				To:     taintconfig.Result,
			}},
		}

		mgr := cspta.NewCSManager()
		hierarchy := classhierarchy.New([]*ir.Class{util, str})
		solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
		engine := taint.NewEngine(cfg, mgr, solver.Worklist())
		solver.Taint = engine

		solver.Solve(mainM)
		return len(engine.Flows())
	}

	if n := run(t, taintconfig.Base); n != 0 {
		t.Errorf("transfer{BASE,RESULT}: got %d flows, want 0 (taint is on arg 0, not the receiver)", n)
	}
	if n := run(t, 0); n != 1 {
		t.Errorf("transfer{0,RESULT}: got %d flows, want 1", n)
	}
}
