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

package icp

import (
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/icfg"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// ConstPropTransfer is the Transfer that turns Solver into interprocedural
// constant propagation (§4.9). It queries a finished cspta.Query for alias
// resolution at every field and array access: the pointer analysis owns
// "which objects can x and y refer to", constant propagation only owns
// "what value flows through each storage location". Static fields and
// (o,f)/(o,index) heap slots live in Global, a single solver-wide store
// read and meet-updated from any method, rather than in the per-node,
// per-method Fact: that is what lets a store in one method be visible to a
// load in another, across a Call/Return edge that only ever carries
// parameters and the return value.
type ConstPropTransfer struct {
	Query  *cspta.Query
	Global *GlobalStore
}

// NewConstPropTransfer builds a ConstPropTransfer backed by a fresh,
// initially-empty GlobalStore.
func NewConstPropTransfer(query *cspta.Query) ConstPropTransfer {
	return ConstPropTransfer{Query: query, Global: NewGlobalStore()}
}

func (ConstPropTransfer) NewInitialFact() Fact { return NewFact() }

// NewBoundaryFact starts every integer-typed parameter of the entry method,
// and its this variable if it has one, at NAC: their values are determined
// by callers this analysis never sees (the entry method has none, by
// definition), so UNDEF - "not yet known but might become known" - would be
// the wrong starting point. Parameters of any other type are left UNDEF.
func (ConstPropTransfer) NewBoundaryFact(method *ir.Method) Fact {
	f := NewFact()
	for _, p := range method.Params {
		if p.Type.IsPrimitiveInt() {
			f.Set(p, NotConstant())
		}
	}
	if method.This != nil {
		f.Set(method.This, NotConstant())
	}
	return f
}

func (t ConstPropTransfer) TransferNonCallNode(solver *Solver, stmt ir.Stmt, in Fact) Fact {
	out := in.Copy()
	switch s := stmt.(type) {
	case *ir.Copy:
		if s.LHS.Type.IsPrimitiveInt() {
			out.Set(s.LHS, in.Get(s.RHS))
		}
	case *ir.New:
		if s.LHS.Type.IsPrimitiveInt() {
			out.Set(s.LHS, NotConstant())
		}
	case *ir.BinOp:
		if s.LHS.Type.IsPrimitiveInt() {
			out.Set(s.LHS, Evaluate(s.Op, EvaluateOperand(s.X, in), EvaluateOperand(s.Y, in)))
		}
	case *ir.LoadField:
		if s.LHS.Type.IsPrimitiveInt() {
			out.Set(s.LHS, t.loadField(stmt, s, in))
		}
	case *ir.StoreField:
		t.storeField(solver, stmt, s, in)
	case *ir.LoadArray:
		if s.LHS.Type.IsPrimitiveInt() && !in.Get(s.Index).IsUndef() {
			out.Set(s.LHS, t.loadArray(stmt, s, in))
		}
	case *ir.StoreArray:
		t.storeArray(solver, stmt, s, in)
	}
	return out
}

// TransferCallNode leaves the call's own out-fact untouched: it exists only
// to feed the Call edge (arguments into the callee's parameters). The
// call's LHS is killed on the CallToReturn edge instead, and set to its
// real value on the Return edge - see TransferEdge.
func (ConstPropTransfer) TransferCallNode(stmt ir.Stmt, in Fact) Fact {
	return in.Copy()
}

func (ConstPropTransfer) TransferEdge(edge icfg.Edge, out Fact) Fact {
	switch edge.Kind {
	case icfg.Normal:
		return out
	case icfg.CallToReturn:
		inv := edge.Call
		if inv == nil || inv.LHS == nil {
			return out
		}
		f := out.Copy()
		f.Set(inv.LHS, Undefined())
		return f
	case icfg.Call:
		inv := edge.Call
		f := NewFact()
		if inv == nil || edge.Callee == nil {
			return f
		}
		n := len(inv.Args)
		if len(edge.Callee.Params) < n {
			n = len(edge.Callee.Params)
		}
		for i := 0; i < n; i++ {
			p := edge.Callee.Params[i]
			if p.Type.IsPrimitiveInt() {
				f.Set(p, out.Get(inv.Args[i]))
			}
		}
		if edge.Callee.This != nil && inv.Base != nil {
			f.Set(edge.Callee.This, NotConstant())
		}
		return f
	case icfg.Return:
		f := NewFact()
		ret, _ := edge.From.(*ir.Return)
		if ret == nil || edge.Call == nil || edge.Call.LHS == nil || len(ret.Vars) == 0 {
			return f
		}
		f.Set(edge.Call.LHS, out.Get(ret.Vars[0]))
		return f
	default:
		return out
	}
}

// loadField implements "LoadField static x = C.f: OUT[x] <- static-field
// map[f]" and "LoadField instance x = b.f: OUT[x] <- meet over all o in
// pt(b) of (o,f) map" (§4.9), against the solver-global map rather than the
// node's own Fact, so a store anywhere in the program - including one in a
// different method - is visible here. node registers this statement as a
// reader of whatever slot(s) it reads, so a later store that changes one of
// those slots re-enqueues node via Solver.AddAllToWorkList.
func (t ConstPropTransfer) loadField(node ir.Stmt, s *ir.LoadField, in Fact) Value {
	if s.Base == nil {
		key := StaticKey{Field: s.Field}
		t.Global.AddReader(key, node)
		return t.Global.Get(key)
	}
	objs := t.Query.PointsTo(s.Base)
	if len(objs) == 0 {
		return NotConstant()
	}
	val := Undefined()
	for _, o := range objs {
		key := FieldKey{Obj: o, Field: s.Field}
		t.Global.AddReader(key, node)
		val = Meet(val, t.Global.Get(key))
	}
	return val
}

// storeField implements "StoreField static/instance: update ... map with
// meet" (§4.9): every write merges into its global slot rather than
// overwriting it, regardless of how precise pt(b) is - there is no
// strong-update case in this model. A store that actually changes a slot's
// value re-enqueues every LoadField registered as reading it (§4.9,
// "enqueue all LoadField statements that read f"), wherever in the program
// they are.
func (t ConstPropTransfer) storeField(solver *Solver, node ir.Stmt, s *ir.StoreField, in Fact) {
	if !s.RHS.Type.IsPrimitiveInt() {
		return
	}
	rhs := in.Get(s.RHS)
	if s.Base == nil {
		key := StaticKey{Field: s.Field}
		if t.Global.MeetUpdate(key, rhs) {
			solver.AddAllToWorkList(t.Global.ReadersOf(key))
		}
		return
	}
	for _, o := range t.Query.PointsTo(s.Base) {
		key := FieldKey{Obj: o, Field: s.Field}
		if t.Global.MeetUpdate(key, rhs) {
			solver.AddAllToWorkList(t.Global.ReadersOf(key))
		}
	}
}

// loadArray implements the iv != UNDEF case of "LoadArray x = a[i]: let iv =
// pt-value(i). If iv = UNDEF, leave OUT[x] unchanged. Else OUT[x] <- meet
// over all o in pt(a) of all entries (o, kiv) where either iv = NAC or
// kiv = NAC or kiv = iv" (§4.9), read from the solver-global map. The
// iv = UNDEF case is handled by the caller, which skips the Set entirely
// rather than writing UNDEF over a possibly-already-known OUT[x]. An
// unknown (NAC) index may alias every index ever written, so it merges
// every entry recorded for o, not just one; node is registered as a reader
// of the object as a whole, since which specific index keys exist for o can
// still grow after this load runs.
func (t ConstPropTransfer) loadArray(node ir.Stmt, s *ir.LoadArray, in Fact) Value {
	iv := in.Get(s.Index)
	objs := t.Query.PointsTo(s.Base)
	if len(objs) == 0 {
		return NotConstant()
	}
	val := Undefined()
	for _, o := range objs {
		t.Global.AddReader(arrayObjKey{Obj: o}, node)
		for _, ak := range t.Global.arrayKeysForObj(o) {
			if iv.IsNAC() || ak.Index.IsNAC() || ak.Index == iv {
				val = Meet(val, t.Global.Get(ak))
			}
		}
	}
	return val
}

// storeArray implements "StoreArray a[i] = y: if pt-value(i) is UNDEF,
// skip. Else for every o in pt(a) update (o, indexValue) entry with meet"
// (§4.9), against the solver-global map, re-enqueuing every LoadArray that
// read o when the update actually changes a slot.
func (t ConstPropTransfer) storeArray(solver *Solver, node ir.Stmt, s *ir.StoreArray, in Fact) {
	if !s.RHS.Type.IsPrimitiveInt() {
		return
	}
	iv := in.Get(s.Index)
	if iv.IsUndef() {
		return
	}
	rhs := in.Get(s.RHS)
	for _, o := range t.Query.PointsTo(s.Base) {
		key := ArrayKey{Obj: o, Index: iv}
		if t.Global.MeetUpdate(key, rhs) {
			solver.AddAllToWorkList(t.Global.ReadersOf(arrayObjKey{Obj: o}))
		}
	}
}
