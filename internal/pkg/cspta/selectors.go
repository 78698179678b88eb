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

import "github.com/whole-program/wpacore/internal/pkg/ir"

// Insensitive is the context-insensitive ContextSelector: every method and
// every heap object is analyzed under the single empty context. This is
// classic whole-program Andersen analysis, with the CSPTASolver machinery
// otherwise unchanged.
type Insensitive struct {
	Manager *CSManager
}

func (s Insensitive) EmptyContext() *Context { return s.Manager.EmptyContext() }

func (s Insensitive) SelectContextStatic(*CSCallSite, *ir.Method) *Context {
	return s.Manager.EmptyContext()
}

func (s Insensitive) SelectContextInstance(*CSCallSite, *CSObj, *ir.Method) *Context {
	return s.Manager.EmptyContext()
}

func (s Insensitive) SelectHeapContext(*CSMethod, *Obj) *Context {
	return s.Manager.EmptyContext()
}

// CallSiteSensitive is k-CFA: the calling context is the k most recent call
// sites on the call stack. Heap objects get the allocating method's own
// context (k-CFA does not add a heap-specific component).
type CallSiteSensitive struct {
	Manager *CSManager
	K       int
}

func (s CallSiteSensitive) EmptyContext() *Context { return s.Manager.EmptyContext() }

func (s CallSiteSensitive) SelectContextStatic(callSite *CSCallSite, _ *ir.Method) *Context {
	return s.extend(callSite.Context, callSite)
}

func (s CallSiteSensitive) SelectContextInstance(callSite *CSCallSite, _ *CSObj, _ *ir.Method) *Context {
	return s.extend(callSite.Context, callSite)
}

func (s CallSiteSensitive) SelectHeapContext(allocMethod *CSMethod, _ *Obj) *Context {
	return allocMethod.Context
}

func (s CallSiteSensitive) extend(ctx *Context, elem interface{}) *Context {
	return truncatedExtend(s.Manager, ctx, elem, s.K)
}

// ObjectSensitive selects the calling context for an instance call from the
// k most recently allocated receiver objects; static calls (no receiver)
// fall back to the caller's own context, unchanged. Heap objects get the
// allocating method's context, same as CallSiteSensitive.
type ObjectSensitive struct {
	Manager *CSManager
	K       int
}

func (s ObjectSensitive) EmptyContext() *Context { return s.Manager.EmptyContext() }

func (s ObjectSensitive) SelectContextStatic(callSite *CSCallSite, _ *ir.Method) *Context {
	return callSite.Context
}

func (s ObjectSensitive) SelectContextInstance(_ *CSCallSite, recv *CSObj, _ *ir.Method) *Context {
	return truncatedExtend(s.Manager, recv.Context, recv.Obj, s.K)
}

func (s ObjectSensitive) SelectHeapContext(allocMethod *CSMethod, _ *Obj) *Context {
	return allocMethod.Context
}

// TypeSensitive is ObjectSensitive's coarser cousin: it abstracts each
// receiver object to its allocated type rather than its exact identity,
// trading precision for a smaller context space.
type TypeSensitive struct {
	Manager *CSManager
	K       int
}

func (s TypeSensitive) EmptyContext() *Context { return s.Manager.EmptyContext() }

func (s TypeSensitive) SelectContextStatic(callSite *CSCallSite, _ *ir.Method) *Context {
	return callSite.Context
}

func (s TypeSensitive) SelectContextInstance(_ *CSCallSite, recv *CSObj, _ *ir.Method) *Context {
	return truncatedExtend(s.Manager, recv.Context, recv.Obj.Type, s.K)
}

func (s TypeSensitive) SelectHeapContext(allocMethod *CSMethod, _ *Obj) *Context {
	return allocMethod.Context
}

// truncatedExtend appends elem to ctx and keeps only the k most recent
// elements, so k-limited selectors never allocate a Context deeper than k -
// the context space stays finite, which is what guarantees the CSPTASolver
// terminates (§4.6 "Termination").
func truncatedExtend(mgr *CSManager, ctx *Context, elem interface{}, k int) *Context {
	if k <= 0 {
		return mgr.EmptyContext()
	}
	elems := ctx.Elems()
	elems = append(elems, elem)
	if len(elems) > k {
		elems = elems[len(elems)-k:]
	}
	return mgr.ContextFromElems(elems)
}
