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
	"github.com/whole-program/wpacore/internal/pkg/icfg"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Transfer is the pluggable half of the generic ICPSolver (§4.8): everything
// about what a dataflow fact means and how a statement transforms it lives
// here, while the solver only knows how to drive a worklist over an ICFG.
// ConstPropTransfer (constprop.go) is the one implementation this module
// ships, but nothing here is specific to constant propagation by name.
type Transfer interface {
	// NewInitialFact returns the fact every non-entry node starts with.
	NewInitialFact() Fact
	// NewBoundaryFact returns the fact that holds at the entry method's
	// in-edge, before any node has executed.
	NewBoundaryFact(method *ir.Method) Fact
	// TransferCallNode computes the out-fact of a call statement from its
	// in-fact. The callee's effect arrives separately via a Return edge, not
	// by falling through the call node itself; ConstPropTransfer returns the
	// in-fact unchanged here and kills the call's LHS on the CallToReturn
	// edge instead (see TransferEdge).
	TransferCallNode(stmt ir.Stmt, in Fact) Fact
	// TransferNonCallNode computes the out-fact of any other statement. It
	// receives the driving Solver itself so that a store into a GlobalStore
	// location can re-enqueue every node §4.9 says depends on that location
	// (e.g. "enqueue all LoadField statements that read f") via the
	// Solver's AddToWorkList/AddAllToWorkList.
	TransferNonCallNode(s *Solver, stmt ir.Stmt, in Fact) Fact
	// TransferEdge computes the fact that flows along edge, given the
	// out-fact of edge.From. Implementations typically only need to
	// special-case icfg.Call (pass args to params) and icfg.Return (pass
	// the return value back), since icfg.Normal and icfg.CallToReturn
	// usually pass the fact through unchanged or with the call's LHS
	// killed.
	TransferEdge(edge icfg.Edge, out Fact) Fact
}

// Solver is the generic ICP fixed-point engine (§4.8). It owns no lattice or
// transfer semantics of its own; Transfer supplies all of that.
type Solver struct {
	Graph    *icfg.Graph
	Transfer Transfer

	in, out  map[ir.Stmt]Fact
	worklist []ir.Stmt
	queued   map[ir.Stmt]bool
}

// NewSolver builds a Solver over graph, driven by t.
func NewSolver(graph *icfg.Graph, t Transfer) *Solver {
	return &Solver{
		Graph:    graph,
		Transfer: t,
		in:       make(map[ir.Stmt]Fact),
		out:      make(map[ir.Stmt]Fact),
		queued:   make(map[ir.Stmt]bool),
	}
}

// Solve runs the analysis to a fixed point, seeding entryMethod's entry node
// with the boundary fact and every other node with the initial fact (§4.8).
func (s *Solver) Solve(entryMethod *ir.Method) {
	entry := s.Graph.EntryOf(entryMethod)
	for _, n := range s.Graph.Nodes() {
		s.out[n] = s.Transfer.NewInitialFact()
		if n == entry {
			s.in[n] = s.Transfer.NewBoundaryFact(entryMethod)
		} else {
			s.in[n] = s.Transfer.NewInitialFact()
		}
		s.AddToWorkList(n)
	}

	for len(s.worklist) > 0 {
		n := s.worklist[0]
		s.worklist = s.worklist[1:]
		s.queued[n] = false

		if n != entry {
			merged := s.Transfer.NewInitialFact()
			for _, e := range s.Graph.Preds(n) {
				transferred := s.Transfer.TransferEdge(e, s.out[e.From])
				MeetInto(transferred, merged)
			}
			s.in[n] = merged
		}

		var newOut Fact
		if s.Graph.IsCall(n) {
			newOut = s.Transfer.TransferCallNode(n, s.in[n])
		} else {
			newOut = s.Transfer.TransferNonCallNode(s, n, s.in[n])
		}
		if !newOut.Equal(s.out[n]) {
			s.out[n] = newOut
			s.AddAllToWorkList(s.succNodes(n))
		}
	}
}

func (s *Solver) succNodes(n ir.Stmt) []ir.Stmt {
	edges := s.Graph.Succs(n)
	out := make([]ir.Stmt, len(edges))
	for i, e := range edges {
		out[i] = e.To
	}
	return out
}

// AddToWorkList requests re-evaluation of n. Exposed (§4.8) so a Transfer
// can re-queue nodes whose result depends on a GlobalStore location that
// just changed, independent of the normal successor-propagation the solver
// already does for ordinary Fact changes.
func (s *Solver) AddToWorkList(n ir.Stmt) {
	if s.queued[n] {
		return
	}
	s.queued[n] = true
	s.worklist = append(s.worklist, n)
}

// AddAllToWorkList calls AddToWorkList for every node in ns.
func (s *Solver) AddAllToWorkList(ns []ir.Stmt) {
	for _, n := range ns {
		s.AddToWorkList(n)
	}
}

// InFact returns the computed in-fact of node n after Solve has run.
func (s *Solver) InFact(n ir.Stmt) Fact { return s.in[n] }

// OutFact returns the computed out-fact of node n after Solve has run.
func (s *Solver) OutFact(n ir.Stmt) Fact { return s.out[n] }
