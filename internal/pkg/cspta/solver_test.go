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

package cspta_test

import (
	"sort"
	"testing"

	"github.com/whole-program/wpacore/internal/pkg/classhierarchy"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/diagnostics"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// buildAnimals builds:
//
//	class Animal { speak() }
//	class Dog extends Animal { speak() }
//	class Cat extends Animal { speak() }
//
//	main(): d = new Dog; c = new Cat; a = d; a = c; a.speak()
//
// a's points-to set should end up {Dog, Cat} and the virtual call should
// dispatch to both Dog.speak and Cat.speak (virtual dispatch under a
// context-insensitive selector resolves every allocated runtime target, not
// just one).
func buildAnimals(t *testing.T) (main *ir.Method, classes []*ir.Class) {
	t.Helper()

	animalType := ir.Type{Name: "Animal"}
	animal := &ir.Class{Name: "Animal", Abstract: true}
	speakDecl := &ir.Method{Name: "speak", Class: animal, Static: false, Abstract: true}
	speakDecl.This = &ir.Var{Name: "this", Type: animalType, Method: speakDecl}
	animal.Methods = []*ir.Method{speakDecl}

	dog := &ir.Class{Name: "Dog", Super: animal}
	dogSpeak := &ir.Method{Name: "speak", Class: dog}
	dogSpeak.This = &ir.Var{Name: "this", Type: ir.Type{Name: "Dog"}, Method: dogSpeak}
	dog.Methods = []*ir.Method{dogSpeak}

	cat := &ir.Class{Name: "Cat", Super: animal}
	catSpeak := &ir.Method{Name: "speak", Class: cat}
	catSpeak.This = &ir.Var{Name: "this", Type: ir.Type{Name: "Cat"}, Method: catSpeak}
	cat.Methods = []*ir.Method{catSpeak}

	mainM := &ir.Method{Name: "main", Static: true}
	d := &ir.Var{Name: "d", Type: ir.Type{Name: "Dog"}, Method: mainM}
	c := &ir.Var{Name: "c", Type: ir.Type{Name: "Cat"}, Method: mainM}
	a := &ir.Var{Name: "a", Type: animalType, Method: mainM}

	newDog := &ir.New{LHS: d, Type: d.Type, Class: dog}
	newCat := &ir.New{LHS: c, Type: c.Type, Class: cat}
	copyD := &ir.Copy{LHS: a, RHS: d}
	copyC := &ir.Copy{LHS: a, RHS: c}
	call := &ir.Invoke{Base: a, Kind: ir.VirtualCall, Method: speakDecl}

	mainM.Add(newDog)
	mainM.Add(newCat)
	mainM.Add(copyD)
	mainM.Add(copyC)
	mainM.Add(call)

	classes = []*ir.Class{animal, dog, cat}
	return mainM, classes
}

func TestVirtualDispatchResolvesEveryTarget(t *testing.T) {
	mainM, classes := buildAnimals(t)
	hierarchy := classhierarchy.New(classes)

	mgr := cspta.NewCSManager()
	solver := cspta.NewCSPTASolver(
		mgr,
		cspta.NewAllocationSiteHeapModel(),
		cspta.Insensitive{Manager: mgr},
		hierarchy,
		nil,
		&diagnostics.Sink{},
	)
	solver.Solve(mainM)

	var dispatched []string
	for _, e := range solver.CallGraph().Edges() {
		if e.Kind == ir.VirtualCall {
			dispatched = append(dispatched, e.Callee.Method.String())
		}
	}
	sort.Strings(dispatched)
	want := []string{"Cat.speak", "Dog.speak"}
	if len(dispatched) != len(want) || dispatched[0] != want[0] || dispatched[1] != want[1] {
		t.Fatalf("dispatched = %v, want %v", dispatched, want)
	}
}

func TestPropagationIsMonotonic(t *testing.T) {
	mainM, classes := buildAnimals(t)
	hierarchy := classhierarchy.New(classes)

	mgr := cspta.NewCSManager()
	solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	solver.Solve(mainM)

	mainCS := mgr.GetCSMethod(mgr.EmptyContext(), mainM)
	aVar := findVar(mainM, "a")
	csA := mgr.GetCSVar(mainCS.Context, aVar)
	if csA.PointsTo().Len() != 2 {
		t.Fatalf("pts(a) has %d members, want 2", csA.PointsTo().Len())
	}
}

func TestCallGraphEntryIsReachable(t *testing.T) {
	mainM, classes := buildAnimals(t)
	hierarchy := classhierarchy.New(classes)

	mgr := cspta.NewCSManager()
	solver := cspta.NewCSPTASolver(mgr, cspta.NewAllocationSiteHeapModel(), cspta.Insensitive{Manager: mgr}, hierarchy, nil, nil)
	solver.Solve(mainM)

	if solver.CallGraph().Entry() == nil {
		t.Fatal("call graph has no entry")
	}
	if !solver.CallGraph().IsReachable(solver.CallGraph().Entry()) {
		t.Fatal("entry method not marked reachable")
	}
	if len(solver.CallGraph().ReachableMethods()) < 3 {
		t.Fatalf("expected main plus both speak() overrides to be reachable, got %d methods", len(solver.CallGraph().ReachableMethods()))
	}
}

func findVar(m *ir.Method, name string) *ir.Var {
	for _, stmt := range m.Stmts {
		switch s := stmt.(type) {
		case *ir.New:
			if s.LHS.Name == name {
				return s.LHS
			}
		case *ir.Copy:
			if s.LHS.Name == name {
				return s.LHS
			}
		}
	}
	return nil
}
