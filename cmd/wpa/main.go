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

// Command wpa is a reference host for the whole-program analysis core. The
// core's IR package is an in-memory stand-in for a real frontend (§6), so
// wpa does not parse source; it builds a small fixture program itself and
// wires it through analysis.Run, the same path a real frontend would drive.
// The flags below select the same knobs a real host would expose: which
// context sensitivity to run CS-PTA under, and which taint policy to load.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/utils"
	"github.com/whole-program/wpacore/pkg/wpa"
)

var (
	pta         = flag.String("pta", "insensitive", "context sensitivity: insensitive, callsite, object, type")
	k           = flag.Int("k", 1, "k-limit for callsite/object/type sensitivity")
	taintConfig = flag.String("taint-config", "", "path to a taint policy document (YAML or JSON)")
	dumpIR      = flag.Bool("dump-ir", false, "print the fixture program's statements with their def/use before analyzing")
)

func main() {
	flag.Parse()

	classes, mainMethod := demoProgram()
	if *dumpIR {
		dump(mainMethod)
	}

	diag := &wpa.Diagnostics{}
	opts := wpa.Options{
		TaintConfig: *taintConfig,
		PTA:         *pta,
		Selector:    selectorFor(*pta, *k),
		Diagnostics: diag,
	}

	report, err := wpa.Run(opts, classes, mainMethod)
	if err != nil {
		log.Fatalf("wpa: %v", err)
	}

	out, err := report.Marshal()
	if err != nil {
		log.Fatalf("wpa: marshaling report: %v", err)
	}
	os.Stdout.Write(out)
}

// selectorFor resolves the -pta flag to a ContextSelector constructor, or
// nil to let wpa.Run default to Insensitive.
func selectorFor(name string, k int) func(mgr *wpa.CSManager) wpa.ContextSelector {
	switch name {
	case "insensitive", "":
		return nil
	case "callsite":
		return func(mgr *wpa.CSManager) wpa.ContextSelector { return wpa.CallSiteSensitive{Manager: mgr, K: k} }
	case "object":
		return func(mgr *wpa.CSManager) wpa.ContextSelector { return wpa.ObjectSensitive{Manager: mgr, K: k} }
	case "type":
		return func(mgr *wpa.CSManager) wpa.ContextSelector { return wpa.TypeSensitive{Manager: mgr, K: k} }
	default:
		log.Fatalf("wpa: unknown -pta value %q", name)
		return nil
	}
}

// dump prints each statement of m's body alongside the variable it defines
// and the variables it uses, for inspecting the fixture program wpa built.
func dump(m *ir.Method) {
	for _, s := range m.Stmts {
		def := utils.Def(s)
		defStr := "-"
		if def != nil {
			defStr = def.Name
		}
		fmt.Fprintf(os.Stderr, "%-28s def=%-6s uses=%v\n", s, defStr, utils.Uses(s))
	}
}

// demoProgram builds a tiny fixture program exercising allocation, virtual
// dispatch, and an instance field store (no load), the same shape as
// scenario 1 of §8 plus the store half of scenario 3. A real host replaces this with its own frontend's
// output; wpa keeps it inline so the binary is runnable standalone.
func demoProgram() ([]*ir.Class, *ir.Method) {
	intType := ir.Type{Name: "int"}
	animal := &ir.Class{Name: "Animal", Abstract: true}
	speak := &ir.Method{Name: "speak", Class: animal, Abstract: true}
	animal.Methods = []*ir.Method{speak}

	dog := &ir.Class{Name: "Dog", Super: animal}
	dogSpeak := &ir.Method{Name: "speak", Class: dog}
	dogSpeak.This = &ir.Var{Name: "this", Type: ir.Type{Name: "Dog"}, Method: dogSpeak}
	f := &ir.Field{Name: "age", Type: intType, Class: dog}
	dog.Fields = []*ir.Field{f}
	dog.Methods = []*ir.Method{dogSpeak}

	mainM := &ir.Method{Name: "main", Static: true}
	animalType := ir.Type{Name: "Animal"}
	a := &ir.Var{Name: "a", Type: animalType, Method: mainM}
	age := &ir.Var{Name: "age", Type: intType, Method: mainM}
	mainM.Add(&ir.New{LHS: a, Type: ir.Type{Name: "Dog"}, Class: dog})
	mainM.Add(constAssign(age, 1))
	mainM.Add(&ir.StoreField{Base: a, Field: f, RHS: age})
	mainM.Add(&ir.Invoke{Base: a, Kind: ir.VirtualCall, Method: speak})

	return []*ir.Class{animal, dog}, mainM
}

func constAssign(lhs *ir.Var, literal int) *ir.BinOp {
	return &ir.BinOp{LHS: lhs, Op: ir.Add, X: ir.Operand{Literal: literal}, Y: ir.Operand{Literal: 0}}
}
