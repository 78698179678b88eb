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

// Package icfg builds the interprocedural control-flow graph the constant
// propagation solver (C8, §4.8-§4.9) walks. It is context-insensitive by
// design (§9: "ICP collapses CSMethods of the same Method onto one ICFG
// node"), consuming only the CS-PTA's call graph - its own context
// distinctions are deliberately erased here.
package icfg

import "github.com/whole-program/wpacore/internal/pkg/ir"

// EdgeKind classifies one ICFG edge (§4.8).
type EdgeKind int

const (
	// Normal connects consecutive statements within one method.
	Normal EdgeKind = iota
	// Call connects a call statement to the entry of one of its possible
	// callees.
	Call
	// Return connects a callee's exit (a Return statement, or its last
	// statement if it falls off the end) back to the statement following
	// the call in the caller.
	Return
	// CallToReturn connects a call statement directly to its caller-local
	// successor, carrying the facts that survive the call unrelated to its
	// return value (§4.9, "CallToReturnEdge kills the call's LHS").
	CallToReturn
)

func (k EdgeKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Call:
		return "call"
	case Return:
		return "return"
	case CallToReturn:
		return "call-to-return"
	default:
		return "unknown"
	}
}

// Edge is one ICFG edge. Callee is set for Call and Return edges. Call is
// the originating call statement for Call, Return, and CallToReturn edges -
// for a Return edge, From is the callee's exit statement, so Call is the
// only way to recover which call site (and therefore which LHS variable and
// argument list) the edge belongs to.
type Edge struct {
	Kind   EdgeKind
	From   ir.Stmt
	To     ir.Stmt
	Callee *ir.Method
	Call   *ir.Invoke
}

// Graph is the built, immutable interprocedural control-flow graph.
type Graph struct {
	nodes     []ir.Stmt
	succs     map[ir.Stmt][]Edge
	preds     map[ir.Stmt][]Edge
	entryOf   map[*ir.Method]ir.Stmt
	exitsOf   map[*ir.Method][]ir.Stmt
	methodOf  map[ir.Stmt]*ir.Method
	indexOf   map[ir.Stmt]int
}

func newGraph() *Graph {
	return &Graph{
		succs:    make(map[ir.Stmt][]Edge),
		preds:    make(map[ir.Stmt][]Edge),
		entryOf:  make(map[*ir.Method]ir.Stmt),
		exitsOf:  make(map[*ir.Method][]ir.Stmt),
		methodOf: make(map[ir.Stmt]*ir.Method),
		indexOf:  make(map[ir.Stmt]int),
	}
}

// CallGraph is the narrow slice of cspta.CallGraph the builder needs: the
// reachable methods and the resolved call edges between them. Declaring it
// here (rather than importing package cspta) keeps icfg usable against any
// caller able to enumerate reachable methods and resolved calls, including
// a context-sensitive or a context-insensitive pointer analysis alike.
type CallGraph interface {
	ReachableIRMethods() []*ir.Method
	ResolvedCalls() map[*ir.Invoke][]*ir.Method
}

// Build constructs the ICFG for every method cg reports reachable.
func Build(cg CallGraph) *Graph {
	g := newGraph()
	for _, m := range cg.ReachableIRMethods() {
		g.addMethodBody(m)
	}
	for inv, callees := range cg.ResolvedCalls() {
		for _, callee := range callees {
			g.addCallEdges(inv, callee)
		}
	}
	return g
}

func (g *Graph) addMethodBody(m *ir.Method) {
	if _, seen := g.entryOf[m]; seen {
		return
	}
	for i, st := range m.Stmts {
		g.nodes = append(g.nodes, st)
		g.methodOf[st] = m
		g.indexOf[st] = i
		if i+1 < len(m.Stmts) {
			g.addEdge(Edge{Kind: Normal, From: st, To: m.Stmts[i+1]})
		}
		if _, ok := st.(*ir.Return); ok {
			g.exitsOf[m] = append(g.exitsOf[m], st)
		}
	}
	if len(m.Stmts) > 0 {
		g.entryOf[m] = m.Stmts[0]
		if len(g.exitsOf[m]) == 0 {
			// No explicit Return: the method falls off the end, which is
			// itself the (sole) exit point.
			g.exitsOf[m] = []ir.Stmt{m.Stmts[len(m.Stmts)-1]}
		}
	}
}

func (g *Graph) addCallEdges(invStmt *ir.Invoke, callee *ir.Method) {
	var stmt ir.Stmt = invStmt
	m, ok := g.methodOf[stmt]
	if !ok {
		return // call site not in any reachable method's body
	}
	if entry, ok := g.entryOf[callee]; ok {
		g.addEdge(Edge{Kind: Call, From: stmt, To: entry, Callee: callee, Call: invStmt})
	}
	idx := g.indexOf[stmt]
	if idx+1 >= len(m.Stmts) {
		return // call is the method's last statement: no local successor
	}
	next := m.Stmts[idx+1]
	g.addEdge(Edge{Kind: CallToReturn, From: stmt, To: next, Call: invStmt})
	for _, exit := range g.exitsOf[callee] {
		g.addEdge(Edge{Kind: Return, From: exit, To: next, Callee: callee, Call: invStmt})
	}
}

func (g *Graph) addEdge(e Edge) {
	g.succs[e.From] = append(g.succs[e.From], e)
	g.preds[e.To] = append(g.preds[e.To], e)
}

// Nodes returns every statement in the graph. Order is the order methods and
// statements were visited during Build: statements keep their order within a
// method, and methods follow the order cg.ReachableIRMethods returned them
// in, which for cspta.CallGraph is unspecified and may differ between Build
// calls on the same inputs.
func (g *Graph) Nodes() []ir.Stmt { return g.nodes }

// Succs returns the outgoing edges of n.
func (g *Graph) Succs(n ir.Stmt) []Edge { return g.succs[n] }

// Preds returns the incoming edges of n.
func (g *Graph) Preds(n ir.Stmt) []Edge { return g.preds[n] }

// IsCall reports whether n is a call statement.
func (g *Graph) IsCall(n ir.Stmt) bool {
	_, ok := n.(*ir.Invoke)
	return ok
}

// EntryOf returns m's entry node, or nil if m has no statements.
func (g *Graph) EntryOf(m *ir.Method) ir.Stmt { return g.entryOf[m] }

// ExitsOf returns m's exit nodes (every Return statement, or its last
// statement if it has none).
func (g *Graph) ExitsOf(m *ir.Method) []ir.Stmt { return g.exitsOf[m] }

// MethodOf returns the method a node belongs to.
func (g *Graph) MethodOf(n ir.Stmt) *ir.Method { return g.methodOf[n] }
