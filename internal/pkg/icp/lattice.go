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

// Package icp implements interprocedural constant propagation (C8-C9,
// §4.8-§4.9): a forward dataflow over the ICFG that queries the pointer
// analysis result to resolve aliasing at field and array accesses.
package icp

import "fmt"

// Kind is the three-element lattice {UNDEF, CONST, NAC} of §4.9.
type Kind int

const (
	// Undef is the lattice's bottom: "not yet known".
	Undef Kind = iota
	// Const holds a single known integer value.
	Const
	// NAC ("not a constant") is the lattice's top: "provably not a single
	// constant".
	NAC
)

func (k Kind) String() string {
	switch k {
	case Undef:
		return "UNDEF"
	case Const:
		return "CONST"
	case NAC:
		return "NAC"
	default:
		return "?"
	}
}

// Value is one lattice element: UNDEF and NAC carry no payload, CONST
// carries the known integer.
//
// Const is int32, not int: constant propagation tracks 32-bit integer
// arithmetic with its native wraparound behavior (§4.9, "evaluate... exact
// wraparound arithmetic"), and Go's sized integer types wrap on overflow by
// definition, which is exactly the semantics required.
type Value struct {
	Kind  Kind
	Const int32
}

// Undefined is the lattice's bottom element.
func Undefined() Value { return Value{Kind: Undef} }

// NotConstant is the lattice's top element.
func NotConstant() Value { return Value{Kind: NAC} }

// Constant wraps an integer as a CONST value.
func Constant(c int32) Value { return Value{Kind: Const, Const: c} }

func (v Value) IsUndef() bool { return v.Kind == Undef }
func (v Value) IsConst() bool { return v.Kind == Const }
func (v Value) IsNAC() bool   { return v.Kind == NAC }

func (v Value) String() string {
	if v.Kind == Const {
		return fmt.Sprintf("%d", v.Const)
	}
	return v.Kind.String()
}

// Meet combines a and b (§4.9). Under the ordering UNDEF ⊑ CONST ⊑ NAC
// declared on Kind (UNDEF bottom, NAC top) this is the least upper bound,
// the dataflow "meet" of the analysis:
//
//	UNDEF ⊓ x      = x
//	NAC ⊓ x        = NAC
//	CONST(c) ⊓ CONST(c) = CONST(c)
//	CONST(c1) ⊓ CONST(c2), c1 != c2 = NAC
func Meet(a, b Value) Value {
	if a.Kind == Undef {
		return b
	}
	if b.Kind == Undef {
		return a
	}
	if a.Kind == NAC || b.Kind == NAC {
		return NotConstant()
	}
	if a.Const == b.Const {
		return a
	}
	return NotConstant()
}
