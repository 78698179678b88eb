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

// CallEdge is one call-graph edge: a CSCallSite dispatching, with the given
// CallKind, to a target CSMethod.
type CallEdge struct {
	Kind     ir.CallKind
	CallSite *CSCallSite
	Callee   *CSMethod
}

// CallGraph holds the reachable CSMethods, the entry CSMethod, and the set
// of call edges (§3). Per the Open Question in §9, this is the single
// authoritative set of edges: callers determine "is this edge new" only by
// asking the CallGraph, never by also consulting a per-call-site cache.
type CallGraph struct {
	entry     *CSMethod
	reachable map[*CSMethod]bool
	edges     map[edgeKey]*CallEdge
	edgesFrom map[*CSCallSite][]*CallEdge
	edgesTo   map[*CSMethod][]*CallEdge
}

type edgeKey struct {
	callSite *CSCallSite
	callee   *CSMethod
}

// NewCallGraph creates an empty CallGraph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		reachable: make(map[*CSMethod]bool),
		edges:     make(map[edgeKey]*CallEdge),
		edgesFrom: make(map[*CSCallSite][]*CallEdge),
		edgesTo:   make(map[*CSMethod][]*CallEdge),
	}
}

// SetEntry marks m as the call graph's entry point and reachable.
func (g *CallGraph) SetEntry(m *CSMethod) {
	g.entry = m
	g.reachable[m] = true
}

// Entry returns the call graph's entry method, or nil if SetEntry was never
// called.
func (g *CallGraph) Entry() *CSMethod { return g.entry }

// MarkReachable records m as reachable. Returns true iff m was not already
// reachable.
func (g *CallGraph) MarkReachable(m *CSMethod) bool {
	if g.reachable[m] {
		return false
	}
	g.reachable[m] = true
	return true
}

// IsReachable reports whether m has been marked reachable.
func (g *CallGraph) IsReachable(m *CSMethod) bool { return g.reachable[m] }

// ReachableMethods returns every reachable CSMethod. Order is unspecified.
func (g *CallGraph) ReachableMethods() []*CSMethod {
	out := make([]*CSMethod, 0, len(g.reachable))
	for m := range g.reachable {
		out = append(out, m)
	}
	return out
}

// AddEdge inserts the call edge, returning true iff it is new. Adding an
// edge does not by itself mark its callee reachable: addReachable is always
// the caller's responsibility (§4.6), keeping "is this edge new" and "is
// this method now reachable" as two separate, explicit questions.
func (g *CallGraph) AddEdge(kind ir.CallKind, callSite *CSCallSite, callee *CSMethod) (*CallEdge, bool) {
	key := edgeKey{callSite: callSite, callee: callee}
	if e, ok := g.edges[key]; ok {
		return e, false
	}
	e := &CallEdge{Kind: kind, CallSite: callSite, Callee: callee}
	g.edges[key] = e
	g.edgesFrom[callSite] = append(g.edgesFrom[callSite], e)
	g.edgesTo[callee] = append(g.edgesTo[callee], e)
	return e, true
}

// EdgesFrom returns the call edges out of callSite.
func (g *CallGraph) EdgesFrom(callSite *CSCallSite) []*CallEdge { return g.edgesFrom[callSite] }

// EdgesInto returns the call edges targeting callee.
func (g *CallGraph) EdgesInto(callee *CSMethod) []*CallEdge { return g.edgesTo[callee] }

// Edges returns every call edge. Order is unspecified.
func (g *CallGraph) Edges() []*CallEdge {
	out := make([]*CallEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// ReachableIRMethods returns the distinct ir.Methods underlying every
// reachable CSMethod, collapsing away their contexts. It, together with
// ResolvedCalls, satisfies package icfg's CallGraph interface: the ICFG is
// deliberately context-insensitive (§9), so this is the seam where context
// gets erased.
func (g *CallGraph) ReachableIRMethods() []*ir.Method {
	seen := make(map[*ir.Method]bool)
	var out []*ir.Method
	for m := range g.reachable {
		if !seen[m.Method] {
			seen[m.Method] = true
			out = append(out, m.Method)
		}
	}
	return out
}

// ResolvedCalls groups every call edge's resolved callee by its raw
// ir.Invoke statement, collapsing away both the calling context and the
// callee's context.
func (g *CallGraph) ResolvedCalls() map[*ir.Invoke][]*ir.Method {
	seen := make(map[*ir.Invoke]map[*ir.Method]bool)
	out := make(map[*ir.Invoke][]*ir.Method)
	for _, e := range g.edges {
		inv := e.CallSite.Invoke
		callee := e.Callee.Method
		if seen[inv] == nil {
			seen[inv] = make(map[*ir.Method]bool)
		}
		if seen[inv][callee] {
			continue
		}
		seen[inv][callee] = true
		out[inv] = append(out[inv], callee)
	}
	return out
}
