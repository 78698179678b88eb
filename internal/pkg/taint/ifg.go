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

package taint

import "github.com/whole-program/wpacore/internal/pkg/cspta"

// InfoFlowGraph holds the taint-only edges a configured Transfer adds on top
// of whatever the pointer-flow graph already connects (§4.7): ordinary
// aliasing is the CS-PTA's job, the IFG only needs the handful of extra
// edges a taint policy introduces at specific call sites.
type InfoFlowGraph struct {
	succs map[cspta.Pointer]map[cspta.Pointer]bool
}

// NewInfoFlowGraph creates an empty InfoFlowGraph.
func NewInfoFlowGraph() *InfoFlowGraph {
	return &InfoFlowGraph{succs: make(map[cspta.Pointer]map[cspta.Pointer]bool)}
}

// AddEdge adds src -> dst, returning true iff the edge is new.
func (g *InfoFlowGraph) AddEdge(src, dst cspta.Pointer) bool {
	s, ok := g.succs[src]
	if !ok {
		s = make(map[cspta.Pointer]bool)
		g.succs[src] = s
	}
	if s[dst] {
		return false
	}
	s[dst] = true
	return true
}

// Succs returns the immediate IFG successors of p.
func (g *InfoFlowGraph) Succs(p cspta.Pointer) []cspta.Pointer {
	out := make([]cspta.Pointer, 0, len(g.succs[p]))
	for q := range g.succs[p] {
		out = append(out, q)
	}
	return out
}
