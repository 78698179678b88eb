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

// Package cspta implements the context-sensitive, Andersen-style
// inclusion-based points-to solver (CS-PTA) that builds the call graph
// on-the-fly. See §4.1-§4.6, §4.9 of the design.
package cspta

import (
	"fmt"

	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Context is an opaque, immutable calling- or heap-context abstraction.
// Contexts are canonicalized by CSManager as a cons-list ("context trie"):
// Context values with equal (parent, element) pairs are the same *Context,
// so equality and hashing are simply pointer identity - the "Equality and
// hashing are total" requirement of §3 is satisfied for free, and the
// k-limiting selectors below never allocate more than one node per distinct
// context actually observed during the analysis.
type Context struct {
	parent *Context
	elem   interface{} // nil for the empty context
	depth  int
}

// Elems returns the context's elements, oldest first.
func (c *Context) Elems() []interface{} {
	if c == nil || c.depth == 0 {
		return nil
	}
	out := make([]interface{}, c.depth)
	for n := c; n.depth > 0; n = n.parent {
		out[n.depth-1] = n.elem
	}
	return out
}

func (c *Context) String() string {
	if c == nil || c.depth == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", c.Elems())
}

// ContextSelector chooses the calling context for a call site and the heap
// context for an allocated object (§4.1). Implementations are free to be
// call-site-k, object-k, type-k, or context-insensitive; the core treats
// contexts as opaque.
type ContextSelector interface {
	EmptyContext() *Context
	SelectContextStatic(callSite *CSCallSite, callee *ir.Method) *Context
	SelectContextInstance(callSite *CSCallSite, recv *CSObj, callee *ir.Method) *Context
	SelectHeapContext(allocMethod *CSMethod, obj *Obj) *Context
}
