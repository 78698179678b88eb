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

package cspta

import (
	"fmt"

	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Site identifies the allocation site of an Obj: either an ordinary heap
// allocation (AllocSite) or a taint object introduced by the taint engine
// (TaintSite, defined in package taint, which implements this interface).
type Site interface {
	isSite()
}

// AllocSite is the allocation site of an ordinary heap object.
type AllocSite struct {
	Stmt *ir.New
}

func (AllocSite) isSite() {}

// Obj is an abstract heap object, identified by its allocation site and
// type (§3). HeapModel.GetObj is deterministic per Stmt, so two requests
// for the same *ir.New return the same *Obj.
type Obj struct {
	Site  Site
	Type  ir.Type
	Class *ir.Class // concrete class of the object, or nil if not class-typed
}

func (o *Obj) String() string {
	if a, ok := o.Site.(AllocSite); ok {
		return fmt.Sprintf("new %s@%p", o.Type, a.Stmt)
	}
	return fmt.Sprintf("obj(%v):%s", o.Site, o.Type)
}

// HeapModel maps allocation sites to heap object identities (§4.2).
type HeapModel interface {
	GetObj(stmt *ir.New) *Obj
}

// AllocationSiteHeapModel is the classical Andersen heap abstraction: one
// Obj per syntactic allocation site, regardless of how many times it
// executes.
type AllocationSiteHeapModel struct {
	objs map[*ir.New]*Obj
}

// NewAllocationSiteHeapModel creates an empty AllocationSiteHeapModel.
func NewAllocationSiteHeapModel() *AllocationSiteHeapModel {
	return &AllocationSiteHeapModel{objs: make(map[*ir.New]*Obj)}
}

// GetObj returns the (possibly newly created) Obj for stmt.
func (h *AllocationSiteHeapModel) GetObj(stmt *ir.New) *Obj {
	if o, ok := h.objs[stmt]; ok {
		return o
	}
	o := &Obj{Site: AllocSite{Stmt: stmt}, Type: stmt.Type, Class: stmt.Class}
	h.objs[stmt] = o
	return o
}

// CSVar is a context-sensitive variable: (methodCtx, Var).
type CSVar struct {
	Context *Context
	Var     *ir.Var
	pts     PointsToSet
}

func (v *CSVar) String() string { return fmt.Sprintf("%s:%s", v.Context, v.Var) }

// PointsTo returns the pointer's points-to set.
func (v *CSVar) PointsTo() *PointsToSet { return &v.pts }

// CSObj is a context-sensitive heap object: (heapCtx, Obj).
type CSObj struct {
	Context *Context
	Obj     *Obj
	handle  int // canonical handle used by PointsToSet's bitset encoding
}

func (o *CSObj) String() string { return fmt.Sprintf("%s:%s", o.Context, o.Obj) }

// InstanceField is a context-sensitive instance field: (base CSObj, Field).
// Array cells are field-insensitive: all indices alias, so there is no
// separate per-index type beyond ArrayIndex below.
type InstanceField struct {
	Base  *CSObj
	Field *ir.Field
	pts   PointsToSet
}

func (f *InstanceField) String() string { return fmt.Sprintf("%s.%s", f.Base, f.Field.Name) }

// PointsTo returns the pointer's points-to set.
func (f *InstanceField) PointsTo() *PointsToSet { return &f.pts }

// StaticField is a context-free static field.
type StaticField struct {
	Field *ir.Field
	pts   PointsToSet
}

func (f *StaticField) String() string { return f.Field.String() }

// PointsTo returns the pointer's points-to set.
func (f *StaticField) PointsTo() *PointsToSet { return &f.pts }

// ArrayIndex represents every cell of array object Array: array contents
// are field-insensitive in the index dimension (§3).
type ArrayIndex struct {
	Array *CSObj
	pts   PointsToSet
}

func (a *ArrayIndex) String() string { return fmt.Sprintf("%s[*]", a.Array) }

// PointsTo returns the pointer's points-to set.
func (a *ArrayIndex) PointsTo() *PointsToSet { return &a.pts }

// CSMethod is a context-sensitive method: (Context, Method).
type CSMethod struct {
	Context *Context
	Method  *ir.Method
}

func (m *CSMethod) String() string { return fmt.Sprintf("%s:%s", m.Context, m.Method) }

// CSCallSite is a context-sensitive call site: (Context, InvokeStmt).
type CSCallSite struct {
	Context *Context
	Invoke  *ir.Invoke
}

func (c *CSCallSite) String() string { return fmt.Sprintf("%s:%s", c.Context, c.Invoke) }

// Pointer is the polymorphic union {CSVar, InstanceField, StaticField,
// ArrayIndex} (§9): each variant owns its own PointsToSet.
type Pointer interface {
	fmt.Stringer
	PointsTo() *PointsToSet
}
