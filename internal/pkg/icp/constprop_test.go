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

package icp_test

import (
	"testing"

	"github.com/whole-program/wpacore/internal/pkg/classhierarchy"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/icfg"
	"github.com/whole-program/wpacore/internal/pkg/icp"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// solve runs CS-PTA (context-insensitive) and then ICP over mainM, returning
// the value of v in the OUT fact of mainM's last statement.
func solve(t *testing.T, classes []*ir.Class, mainM *ir.Method, v *ir.Var) icp.Value {
	t.Helper()
	mgr := cspta.NewCSManager()
	hierarchy := classhierarchy.New(classes)
	ptaSolver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	ptaSolver.Solve(mainM)

	graph := icfg.Build(ptaSolver.CallGraph())
	query := cspta.NewQuery(mgr)
	icpSolver := icp.NewSolver(graph, icp.NewConstPropTransfer(query))
	icpSolver.Solve(mainM)

	last := mainM.Stmts[len(mainM.Stmts)-1]
	return icpSolver.OutFact(last).Get(v)
}

// intBinOp builds `lhs = literal + 0`, a constant assignment expressed
// through the one arithmetic statement kind the IR has.
func constAssign(lhs *ir.Var, literal int) *ir.BinOp {
	return &ir.BinOp{LHS: lhs, Op: ir.Add, X: ir.LitOperand(literal), Y: ir.LitOperand(0)}
}

// TestStaticFieldRoundTrip is scenario 2 (§8): A.f = 7; y = A.f yields
// y = CONST(7).
func TestStaticFieldRoundTrip(t *testing.T) {
	intType := ir.Type{Name: "int"}
	a := &ir.Class{Name: "A"}
	f := &ir.Field{Name: "f", Type: intType, Static: true, Class: a}
	a.Fields = []*ir.Field{f}

	mainM := &ir.Method{Name: "main", Static: true}
	seven := &ir.Var{Name: "seven", Type: intType, Method: mainM}
	y := &ir.Var{Name: "y", Type: intType, Method: mainM}

	mainM.Add(constAssign(seven, 7))
	mainM.Add(&ir.StoreField{Base: nil, Field: f, RHS: seven})
	mainM.Add(&ir.LoadField{LHS: y, Base: nil, Field: f})

	got := solve(t, []*ir.Class{a}, mainM, y)
	if want := icp.Constant(7); got != want {
		t.Errorf("y = %v, want %v", got, want)
	}
}

// TestStaticFieldAcrossMethods is scenario 2 (§8) crossing a call/return
// edge: main(){ A.f = 7; foo(); } foo(){ y = A.f; } must still yield
// y = CONST(7) inside foo, even though the Call/Return edges between main
// and foo carry no field facts of their own - the static-field slot lives
// in the solver-global store, not in either method's flowing Fact.
func TestStaticFieldAcrossMethods(t *testing.T) {
	intType := ir.Type{Name: "int"}
	a := &ir.Class{Name: "A"}
	f := &ir.Field{Name: "f", Type: intType, Static: true, Class: a}

	fooM := &ir.Method{Name: "foo", Class: a, Static: true}
	y := &ir.Var{Name: "y", Type: intType, Method: fooM}
	fooM.Add(&ir.LoadField{LHS: y, Base: nil, Field: f})
	a.Fields = []*ir.Field{f}
	a.Methods = []*ir.Method{fooM}

	mainM := &ir.Method{Name: "main", Static: true}
	seven := &ir.Var{Name: "seven", Type: intType, Method: mainM}
	mainM.Add(constAssign(seven, 7))
	mainM.Add(&ir.StoreField{Base: nil, Field: f, RHS: seven})
	mainM.Add(&ir.Invoke{Kind: ir.StaticCall, Method: fooM})

	mgr := cspta.NewCSManager()
	hierarchy := classhierarchy.New([]*ir.Class{a})
	ptaSolver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	ptaSolver.Solve(mainM)

	graph := icfg.Build(ptaSolver.CallGraph())
	query := cspta.NewQuery(mgr)
	icpSolver := icp.NewSolver(graph, icp.NewConstPropTransfer(query))
	icpSolver.Solve(mainM)

	got := icpSolver.OutFact(fooM.Stmts[len(fooM.Stmts)-1]).Get(y)
	if want := icp.Constant(7); got != want {
		t.Errorf("y in foo = %v, want %v", got, want)
	}
}

// TestAliasedInstanceFieldWrite is scenario 3 (§8): a.f = 5; b = a; z = b.f
// yields z = CONST(5), because a and b's points-to sets both collapse to
// the single allocated object.
func TestAliasedInstanceFieldWrite(t *testing.T) {
	intType := ir.Type{Name: "int"}
	boxType := ir.Type{Name: "Box"}
	box := &ir.Class{Name: "Box"}
	f := &ir.Field{Name: "f", Type: intType, Class: box}
	box.Fields = []*ir.Field{f}

	mainM := &ir.Method{Name: "main", Static: true}
	aVar := &ir.Var{Name: "a", Type: boxType, Method: mainM}
	bVar := &ir.Var{Name: "b", Type: boxType, Method: mainM}
	five := &ir.Var{Name: "five", Type: intType, Method: mainM}
	z := &ir.Var{Name: "z", Type: intType, Method: mainM}

	mainM.Add(&ir.New{LHS: aVar, Type: boxType, Class: box})
	mainM.Add(constAssign(five, 5))
	mainM.Add(&ir.StoreField{Base: aVar, Field: f, RHS: five})
	mainM.Add(&ir.Copy{LHS: bVar, RHS: aVar})
	mainM.Add(&ir.LoadField{LHS: z, Base: bVar, Field: f})

	got := solve(t, []*ir.Class{box}, mainM, z)
	if want := icp.Constant(5); got != want {
		t.Errorf("z = %v, want %v", got, want)
	}
}

// TestArrayIndexNACFold is scenario 6 (§8): a[i] = 1; a[i] = 2; x = a[i].
// With i NAC (forced by making it a tracked parameter), x is NAC. With i
// pinned to CONST(0) at both stores and the load, x is still NAC, since
// both stores write the same (o, CONST(0)) cell: the two distinct
// constants written there meet to NAC.
func TestArrayIndexNACFold(t *testing.T) {
	intType := ir.Type{Name: "int"}
	arrType := ir.Type{Name: "int[]"}
	arr := &ir.Class{Name: "IntArray"}

	t.Run("index NAC", func(t *testing.T) {
		mainM := &ir.Method{Name: "main", Static: true}
		i := &ir.Var{Name: "i", Type: intType, Method: mainM}
		mainM.Params = []*ir.Var{i}
		a := &ir.Var{Name: "a", Type: arrType, Method: mainM}
		one := &ir.Var{Name: "one", Type: intType, Method: mainM}
		two := &ir.Var{Name: "two", Type: intType, Method: mainM}
		x := &ir.Var{Name: "x", Type: intType, Method: mainM}

		mainM.Add(&ir.New{LHS: a, Type: arrType, Class: arr})
		mainM.Add(constAssign(one, 1))
		mainM.Add(constAssign(two, 2))
		mainM.Add(&ir.StoreArray{Base: a, Index: i, RHS: one})
		mainM.Add(&ir.StoreArray{Base: a, Index: i, RHS: two})
		mainM.Add(&ir.LoadArray{LHS: x, Base: a, Index: i})

		got := solve(t, []*ir.Class{arr}, mainM, x)
		if !got.IsNAC() {
			t.Errorf("x = %v, want NAC", got)
		}
	})

	t.Run("index CONST(0) at every access", func(t *testing.T) {
		mainM := &ir.Method{Name: "main", Static: true}
		i := &ir.Var{Name: "i", Type: intType, Method: mainM}
		a := &ir.Var{Name: "a", Type: arrType, Method: mainM}
		one := &ir.Var{Name: "one", Type: intType, Method: mainM}
		two := &ir.Var{Name: "two", Type: intType, Method: mainM}
		x := &ir.Var{Name: "x", Type: intType, Method: mainM}

		mainM.Add(&ir.New{LHS: a, Type: arrType, Class: arr})
		mainM.Add(constAssign(i, 0))
		mainM.Add(constAssign(one, 1))
		mainM.Add(constAssign(two, 2))
		mainM.Add(&ir.StoreArray{Base: a, Index: i, RHS: one})
		mainM.Add(&ir.StoreArray{Base: a, Index: i, RHS: two})
		mainM.Add(&ir.LoadArray{LHS: x, Base: a, Index: i})

		got := solve(t, []*ir.Class{arr}, mainM, x)
		if !got.IsNAC() {
			t.Errorf("x = %v, want NAC (cell (a, 0) sees both 1 and 2)", got)
		}
	})
}
