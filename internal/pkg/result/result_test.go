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

package result_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/whole-program/wpacore/internal/pkg/classhierarchy"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/result"
)

// buildAllocator builds:
//
//	class Box {}
//	main(): b = new Box
func buildAllocator(t *testing.T) (*ir.Method, []*ir.Class) {
	t.Helper()
	box := &ir.Class{Name: "Box"}
	mainM := &ir.Method{Name: "main", Static: true}
	b := &ir.Var{Name: "b", Type: ir.Type{Name: "Box"}, Method: mainM}
	mainM.Add(&ir.New{LHS: b, Type: b.Type, Class: box})
	return mainM, []*ir.Class{box}
}

func TestBuildPointsToAndCallGraph(t *testing.T) {
	mainM, classes := buildAllocator(t)
	hierarchy := classhierarchy.New(classes)

	mgr := cspta.NewCSManager()
	solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	solver.Solve(mainM)

	pts := result.BuildPointsTo(mgr)
	var bEntry *result.VarPointsTo
	for i := range pts {
		if pts[i].Var == "b" {
			bEntry = &pts[i]
		}
	}
	if bEntry == nil {
		t.Fatalf("no points-to entry for b in %v", pts)
	}
	if len(bEntry.Objs) != 1 {
		t.Fatalf("pts(b) = %v, want exactly one object", bEntry.Objs)
	}

	cg := result.BuildCallGraph(solver.CallGraph())
	if len(cg) != 0 {
		t.Fatalf("expected no call edges for an allocation-only main, got %v", cg)
	}
}

func TestReportMarshalRoundTrip(t *testing.T) {
	want := &result.Report{
		PTAIdentifier: "run-1",
		PointsTo:      []result.VarPointsTo{{Var: "b", Objs: []string{"new Box@0x1"}}},
		CallGraph:     []result.CallGraphEdge{{Kind: "static", CallSite: "[]:foo()", Callee: "[]:Foo.bar"}},
		Flows:         []result.Flow{{Source: "src", Sink: "sink", ArgIndex: 0}},
	}
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := result.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
