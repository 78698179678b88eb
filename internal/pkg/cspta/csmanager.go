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
	"log"

	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// CSManager provides canonicalized factories for every context-sensitive
// entity in §3: two constructions with equal components return the same
// identity, so pointer equality is structural equality everywhere else in
// this module (§4.3). Entities are created lazily on first request and are
// immortal for the analysis run - nothing is ever evicted.
//
// The simplest legal implementation under the single-threaded concurrency
// model of §5 is single-threaded with no locking, which is what this type
// does; a host that wants a concurrent CSPTASolver would need to add
// synchronization here first.
type CSManager struct {
	contexts map[contextKey]*Context
	empty    *Context

	vars        map[csVarKey]*CSVar
	objs        map[csObjKey]*CSObj
	instFields  map[instFieldKey]*InstanceField
	staticFlds  map[*ir.Field]*StaticField
	arrayIdxs   map[*CSObj]*ArrayIndex
	csMethods   map[csMethodKey]*CSMethod
	csCallSites map[csCallSiteKey]*CSCallSite

	nextHandle int
	byHandle   []*CSObj
}

type contextKey struct {
	parent *Context
	elem   interface{}
}

type csVarKey struct {
	ctx *Context
	v   *ir.Var
}

type csObjKey struct {
	ctx *Context
	o   *Obj
}

type instFieldKey struct {
	base *CSObj
	f    *ir.Field
}

type csMethodKey struct {
	ctx *Context
	m   *ir.Method
}

type csCallSiteKey struct {
	ctx *Context
	inv *ir.Invoke
}

// NewCSManager creates an empty CSManager.
func NewCSManager() *CSManager {
	mgr := &CSManager{
		contexts:    make(map[contextKey]*Context),
		vars:        make(map[csVarKey]*CSVar),
		objs:        make(map[csObjKey]*CSObj),
		instFields:  make(map[instFieldKey]*InstanceField),
		staticFlds:  make(map[*ir.Field]*StaticField),
		arrayIdxs:   make(map[*CSObj]*ArrayIndex),
		csMethods:   make(map[csMethodKey]*CSMethod),
		csCallSites: make(map[csCallSiteKey]*CSCallSite),
	}
	mgr.empty = &Context{}
	mgr.contexts[contextKey{}] = mgr.empty
	return mgr
}

// EmptyContext returns the distinguished empty context.
func (mgr *CSManager) EmptyContext() *Context { return mgr.empty }

// ExtendContext returns the canonical Context obtained by appending elem to
// parent. Repeated calls with equal (parent, elem) return the identical
// *Context, which is how k-limiting selectors share structure: a
// CallSiteSensitive(2) selector simply discards all but the newest two
// elements before calling ExtendContext, never allocating a node for a
// context that isn't actually distinct.
func (mgr *CSManager) ExtendContext(parent *Context, elem interface{}) *Context {
	if parent == nil {
		parent = mgr.empty
	}
	key := contextKey{parent: parent, elem: elem}
	if c, ok := mgr.contexts[key]; ok {
		return c
	}
	c := &Context{parent: parent, elem: elem, depth: parent.depth + 1}
	mgr.contexts[key] = c
	return c
}

// ContextFromElems builds the canonical context whose Elems() equal elems.
func (mgr *CSManager) ContextFromElems(elems []interface{}) *Context {
	c := mgr.empty
	for _, e := range elems {
		c = mgr.ExtendContext(c, e)
	}
	return c
}

// GetCSVar canonicalizes (ctx, v).
func (mgr *CSManager) GetCSVar(ctx *Context, v *ir.Var) *CSVar {
	if ctx == nil {
		ctx = mgr.empty
	}
	key := csVarKey{ctx: ctx, v: v}
	if cv, ok := mgr.vars[key]; ok {
		return cv
	}
	cv := &CSVar{Context: ctx, Var: v}
	cv.pts.mgr = mgr
	mgr.vars[key] = cv
	return cv
}

// GetCSObj canonicalizes (ctx, o), assigning it a fresh points-to handle the
// first time it is seen.
func (mgr *CSManager) GetCSObj(ctx *Context, o *Obj) *CSObj {
	if ctx == nil {
		ctx = mgr.empty
	}
	key := csObjKey{ctx: ctx, o: o}
	if co, ok := mgr.objs[key]; ok {
		return co
	}
	co := &CSObj{Context: ctx, Obj: o, handle: mgr.nextHandle}
	mgr.nextHandle++
	mgr.byHandle = append(mgr.byHandle, co)
	mgr.objs[key] = co
	return co
}

// objByHandle resolves a points-to handle minted by GetCSObj back to its
// CSObj. Every handle PointsToSet ever iterates came from this same
// CSManager, so an out-of-range handle means two CSManagers' handles were
// mixed up - a canonicalization invariant breach, not a recoverable error.
func (mgr *CSManager) objByHandle(h int) *CSObj {
	if h < 0 || h >= len(mgr.byHandle) {
		log.Fatalf("cspta: handle %d not found in CSManager", h)
	}
	return mgr.byHandle[h]
}

// AllVars returns every CSVar the manager has ever canonicalized. Order is
// unspecified. Package result uses this to enumerate the pointer-analysis
// result's per-Var points-to sets once a solve has finished.
func (mgr *CSManager) AllVars() []*CSVar {
	out := make([]*CSVar, 0, len(mgr.vars))
	for _, cv := range mgr.vars {
		out = append(out, cv)
	}
	return out
}

// GetInstanceField canonicalizes (base, f).
func (mgr *CSManager) GetInstanceField(base *CSObj, f *ir.Field) *InstanceField {
	key := instFieldKey{base: base, f: f}
	if iv, ok := mgr.instFields[key]; ok {
		return iv
	}
	iv := &InstanceField{Base: base, Field: f}
	iv.pts.mgr = mgr
	mgr.instFields[key] = iv
	return iv
}

// GetStaticField canonicalizes f.
func (mgr *CSManager) GetStaticField(f *ir.Field) *StaticField {
	if sv, ok := mgr.staticFlds[f]; ok {
		return sv
	}
	sv := &StaticField{Field: f}
	sv.pts.mgr = mgr
	mgr.staticFlds[f] = sv
	return sv
}

// GetArrayIndex canonicalizes the (field-insensitive) array cells of array.
func (mgr *CSManager) GetArrayIndex(array *CSObj) *ArrayIndex {
	if av, ok := mgr.arrayIdxs[array]; ok {
		return av
	}
	av := &ArrayIndex{Array: array}
	av.pts.mgr = mgr
	mgr.arrayIdxs[array] = av
	return av
}

// GetCSMethod canonicalizes (ctx, m).
func (mgr *CSManager) GetCSMethod(ctx *Context, m *ir.Method) *CSMethod {
	if ctx == nil {
		ctx = mgr.empty
	}
	key := csMethodKey{ctx: ctx, m: m}
	if cm, ok := mgr.csMethods[key]; ok {
		return cm
	}
	cm := &CSMethod{Context: ctx, Method: m}
	mgr.csMethods[key] = cm
	return cm
}

// GetCSCallSite canonicalizes (ctx, inv).
func (mgr *CSManager) GetCSCallSite(ctx *Context, inv *ir.Invoke) *CSCallSite {
	if ctx == nil {
		ctx = mgr.empty
	}
	key := csCallSiteKey{ctx: ctx, inv: inv}
	if cc, ok := mgr.csCallSites[key]; ok {
		return cc
	}
	cc := &CSCallSite{Context: ctx, Invoke: inv}
	mgr.csCallSites[key] = cc
	return cc
}
