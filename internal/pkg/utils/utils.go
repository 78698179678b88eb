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

// Package utils contains small helper functions over the ir package shared
// by more than one analysis or presentation layer.
package utils

import "github.com/whole-program/wpacore/internal/pkg/ir"

// Def returns the variable stmt assigns to, or nil if stmt has no single
// destination variable (a store, a return, or a call with no result).
func Def(stmt ir.Stmt) *ir.Var {
	switch s := stmt.(type) {
	case *ir.New:
		return s.LHS
	case *ir.Copy:
		return s.LHS
	case *ir.LoadField:
		return s.LHS
	case *ir.LoadArray:
		return s.LHS
	case *ir.BinOp:
		return s.LHS
	case *ir.Invoke:
		return s.LHS
	default:
		return nil
	}
}

// Uses returns the variables stmt reads, in no particular order. Literal
// operands contribute nothing: Uses only reports variables, not constants.
func Uses(stmt ir.Stmt) []*ir.Var {
	var out []*ir.Var
	add := func(v *ir.Var) {
		if v != nil {
			out = append(out, v)
		}
	}
	switch s := stmt.(type) {
	case *ir.Copy:
		add(s.RHS)
	case *ir.LoadField:
		add(s.Base)
	case *ir.StoreField:
		add(s.Base)
		add(s.RHS)
	case *ir.LoadArray:
		add(s.Base)
		add(s.Index)
	case *ir.StoreArray:
		add(s.Base)
		add(s.Index)
		add(s.RHS)
	case *ir.BinOp:
		add(s.X.Var)
		add(s.Y.Var)
	case *ir.Invoke:
		add(s.Base)
		for _, a := range s.Args {
			add(a)
		}
	case *ir.Return:
		for _, v := range s.Vars {
			add(v)
		}
	}
	return out
}

// DecomposeMethod splits m into the class name it belongs to and its bare
// name, e.g. for building diagnostic or report identifiers that shouldn't
// depend on Method.String()'s exact formatting. Returns an empty class for
// a method with no declaring class.
func DecomposeMethod(m *ir.Method) (class, name string) {
	if m.Class != nil {
		class = m.Class.Name
	}
	return class, m.Name
}
