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

// PointerFlowGraph (PFG) is the directed, edge-deduplicated multigraph of
// Pointers whose edges mean "the source's points-to set is included in the
// target's" (§3, §4.4). Self-loops are permitted: they are harmless no-ops
// for propagation, since a delta already in a pointer's own set never
// contributes anything new when it is propagated back to that same pointer.
type PointerFlowGraph struct {
	succs map[Pointer]map[Pointer]bool
}

// NewPointerFlowGraph creates an empty PFG.
func NewPointerFlowGraph() *PointerFlowGraph {
	return &PointerFlowGraph{succs: make(map[Pointer]map[Pointer]bool)}
}

// AddEdge adds src -> dst, returning true iff the edge is new.
func (g *PointerFlowGraph) AddEdge(src, dst Pointer) bool {
	s, ok := g.succs[src]
	if !ok {
		s = make(map[Pointer]bool)
		g.succs[src] = s
	}
	if s[dst] {
		return false
	}
	s[dst] = true
	return true
}

// Succs returns p's successors. The order is unspecified.
func (g *PointerFlowGraph) Succs(p Pointer) []Pointer {
	s := g.succs[p]
	out := make([]Pointer, 0, len(s))
	for q := range s {
		out = append(out, q)
	}
	return out
}
