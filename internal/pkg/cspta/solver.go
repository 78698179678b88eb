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
	"github.com/whole-program/wpacore/internal/pkg/diagnostics"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// CallResolver is the "Class hierarchy (consumed)" external collaborator
// (§6): resolveCallee(receiverType?, invoke) -> Method?. A nil result is a
// non-fatal ResolutionFailure (§7): the call is simply never added to the
// call graph.
type CallResolver interface {
	ResolveCallee(receiverType *ir.Class, invoke *ir.Invoke) *ir.Method
}

// TaintHook lets the TaintEngine (C7) observe pointer-analysis events
// without the solver importing its concrete type - the design notes (§9)
// call for message-passing via the shared Worklist rather than a reentrant
// back-pointer between the two solvers, and this interface is the seam that
// makes that possible. NoTaint is a ready-made no-op implementation for
// running CS-PTA standalone.
type TaintHook interface {
	HandleCall(baseVar *CSVar, baseObj *CSObj, callSite *CSCallSite, callee *ir.Method)
	Propagate(p Pointer, delta *PointsToSet)
	IsTaint(o *CSObj) bool
	OnFinish()
}

// NoTaint is a TaintHook that does nothing; use it to run CSPTASolver
// without taint tracking.
type NoTaint struct{}

func (NoTaint) HandleCall(*CSVar, *CSObj, *CSCallSite, *ir.Method) {}
func (NoTaint) Propagate(Pointer, *PointsToSet)                   {}
func (NoTaint) IsTaint(*CSObj) bool                               { return false }
func (NoTaint) OnFinish()                                         {}

// CSPTASolver is the fixed-point engine that drives the CSManager, the
// PointerFlowGraph, and the Worklist, building the call graph on-the-fly
// (§4.6).
type CSPTASolver struct {
	Manager  *CSManager
	Heap     HeapModel
	Selector ContextSelector
	Resolver CallResolver
	Taint    TaintHook
	Diag     *diagnostics.Sink

	pfg       *PointerFlowGraph
	worklist  *Worklist
	callGraph *CallGraph
}

// NewCSPTASolver wires the solver's internal PFG, Worklist, and CallGraph.
// Diag may be nil, in which case a private Sink absorbs diagnostics the
// caller never inspects.
func NewCSPTASolver(mgr *CSManager, heap HeapModel, selector ContextSelector, resolver CallResolver, taint TaintHook, diag *diagnostics.Sink) *CSPTASolver {
	if taint == nil {
		taint = NoTaint{}
	}
	if diag == nil {
		diag = &diagnostics.Sink{}
	}
	return &CSPTASolver{
		Manager:   mgr,
		Heap:      heap,
		Selector:  selector,
		Resolver:  resolver,
		Taint:     taint,
		Diag:      diag,
		pfg:       NewPointerFlowGraph(),
		worklist:  NewWorklist(),
		callGraph: NewCallGraph(),
	}
}

// PFG returns the solver's pointer-flow graph.
func (s *CSPTASolver) PFG() *PointerFlowGraph { return s.pfg }

// CallGraph returns the solver's (growing, then final) call graph.
func (s *CSPTASolver) CallGraph() *CallGraph { return s.callGraph }

// Worklist returns the solver's worklist. The TaintEngine uses this to push
// entries for the solver to drain, per the message-passing design in §9.
func (s *CSPTASolver) Worklist() *Worklist { return s.worklist }

// Solve runs the analysis to a fixed point starting from mainMethod, then
// notifies the taint hook that no more propagation will occur.
func (s *CSPTASolver) Solve(mainMethod *ir.Method) {
	mainCtx := s.Selector.EmptyContext()
	csMain := s.Manager.GetCSMethod(mainCtx, mainMethod)
	s.callGraph.SetEntry(csMain)
	s.addReachable(csMain)
	s.analyze()
	s.Taint.OnFinish()
}

// addReachable processes every statement of csMethod's IR under its context,
// the first time csMethod becomes reachable (§4.6).
func (s *CSPTASolver) addReachable(csMethod *CSMethod) {
	if !s.callGraph.MarkReachable(csMethod) {
		return
	}
	ctx := csMethod.Context
	for _, stmt := range csMethod.Method.Stmts {
		switch st := stmt.(type) {
		case *ir.New:
			obj := s.Heap.GetObj(st)
			heapCtx := s.Selector.SelectHeapContext(csMethod, obj)
			csObj := s.Manager.GetCSObj(heapCtx, obj)
			s.worklist.AddEntry(s.Manager.GetCSVar(ctx, st.LHS), Singleton(s.Manager, csObj))
		case *ir.Copy:
			s.addPFGEdge(s.Manager.GetCSVar(ctx, st.RHS), s.Manager.GetCSVar(ctx, st.LHS))
		case *ir.StoreField:
			if st.Base == nil { // static field store
				s.addPFGEdge(s.Manager.GetCSVar(ctx, st.RHS), s.Manager.GetStaticField(st.Field))
			}
			// instance field stores are deferred to processCall's caller,
			// i.e. to the main loop, once the base's points-to set changes.
		case *ir.LoadField:
			if st.Base == nil { // static field load
				s.addPFGEdge(s.Manager.GetStaticField(st.Field), s.Manager.GetCSVar(ctx, st.LHS))
			}
			// instance field loads: deferred, see above.
		case *ir.Invoke:
			if st.Kind != ir.StaticCall {
				continue // instance dispatch is deferred to processCall
			}
			s.handleStaticInvoke(csMethod, st)
		}
		// StoreArray, LoadArray, Return, and BinOp carry no CS-PTA
		// semantics of their own: arrays are always deferred, returns are
		// wired at the call site via Method.Ret, and BinOp only matters to
		// the ICP solver.
	}
}

func (s *CSPTASolver) handleStaticInvoke(caller *CSMethod, inv *ir.Invoke) {
	callee := s.Resolver.ResolveCallee(nil, inv)
	if callee == nil {
		s.Diag.Report(diagnostics.ResolutionFailure, "unresolved static call to %s", inv.Method)
		return
	}
	csCallSite := s.Manager.GetCSCallSite(caller.Context, inv)
	newCtx := s.Selector.SelectContextStatic(csCallSite, callee)
	s.addArgAndReturnEdges(caller.Context, newCtx, inv, callee)
	s.Taint.HandleCall(nil, nil, csCallSite, callee)
	csCallee := s.Manager.GetCSMethod(newCtx, callee)
	if _, isNew := s.callGraph.AddEdge(ir.StaticCall, csCallSite, csCallee); isNew {
		s.addReachable(csCallee)
	}
}

// addPFGEdge adds src -> dst and, if the edge is new, seeds the worklist
// with dst's pending delta: src's current points-to set (§4.6).
func (s *CSPTASolver) addPFGEdge(src, dst Pointer) {
	if s.pfg.AddEdge(src, dst) {
		s.worklist.AddEntry(dst, src.PointsTo())
	}
}

// addArgAndReturnEdges wires PFG edges between the caller's arguments and
// the callee's parameters, and between the callee's return variables and
// the caller's call-site LHS (if any).
func (s *CSPTASolver) addArgAndReturnEdges(callerCtx, calleeCtx *Context, inv *ir.Invoke, callee *ir.Method) {
	n := len(inv.Args)
	if len(callee.Params) < n {
		n = len(callee.Params)
	}
	for i := 0; i < n; i++ {
		s.addPFGEdge(s.Manager.GetCSVar(callerCtx, inv.Args[i]), s.Manager.GetCSVar(calleeCtx, callee.Params[i]))
	}
	if inv.LHS != nil {
		for _, rv := range callee.Ret {
			s.addPFGEdge(s.Manager.GetCSVar(calleeCtx, rv), s.Manager.GetCSVar(callerCtx, inv.LHS))
		}
	}
}

// analyze drains the worklist to a fixed point (§4.6's "Main loop"). The
// PFG is monotone and bounded by the finite products of contexts, variables,
// heap contexts, and allocation sites, so this always terminates (§4.6,
// "Termination").
func (s *CSPTASolver) analyze() {
	for !s.worklist.IsEmpty() {
		entry := s.worklist.PollEntry()
		diff := s.propagate(entry.Pointer, entry.Delta)
		if diff.IsEmpty() {
			continue
		}
		csVar, ok := entry.Pointer.(*CSVar)
		if !ok {
			continue
		}
		ctx := csVar.Context
		v := csVar.Var
		for _, o := range diff.Objects() {
			for _, st := range v.StoreFields() {
				s.addPFGEdge(s.Manager.GetCSVar(ctx, st.RHS), s.Manager.GetInstanceField(o, st.Field))
			}
			for _, ld := range v.LoadFields() {
				s.addPFGEdge(s.Manager.GetInstanceField(o, ld.Field), s.Manager.GetCSVar(ctx, ld.LHS))
			}
			for _, st := range v.StoreArrays() {
				s.addPFGEdge(s.Manager.GetCSVar(ctx, st.RHS), s.Manager.GetArrayIndex(o))
			}
			for _, ld := range v.LoadArrays() {
				s.addPFGEdge(s.Manager.GetArrayIndex(o), s.Manager.GetCSVar(ctx, ld.LHS))
			}
			if !s.Taint.IsTaint(o) {
				s.processCall(csVar, o)
			}
		}
	}
}

// propagate unions delta into p's points-to set, forwards the genuinely new
// part (diff) along PFG edges and to the taint engine, and returns diff
// (§4.6).
func (s *CSPTASolver) propagate(p Pointer, delta *PointsToSet) *PointsToSet {
	diff := p.PointsTo().Diff(delta)
	if diff.IsEmpty() {
		return diff
	}
	p.PointsTo().UnionWith(diff)
	for _, q := range s.pfg.Succs(p) {
		s.worklist.AddEntry(q, diff)
	}
	s.Taint.Propagate(p, diff)
	return diff
}

// processCall resolves and wires every invocation whose receiver is recv,
// now that o has just appeared in recv's points-to set (§4.6).
func (s *CSPTASolver) processCall(recv *CSVar, o *CSObj) {
	for _, inv := range recv.Var.Invokes() {
		callee := s.Resolver.ResolveCallee(o.Obj.Class, inv)
		if callee == nil {
			s.Diag.Report(diagnostics.ResolutionFailure, "unresolved %s call %s on %s", inv.Kind, inv.Method, o.Obj)
			continue
		}
		csCallSite := s.Manager.GetCSCallSite(recv.Context, inv)
		newCtx := s.Selector.SelectContextInstance(csCallSite, o, callee)
		csMethod := s.Manager.GetCSMethod(newCtx, callee)

		// Unconditionally feed the receiver object into the callee's this
		// variable, even if this exact call-graph edge already exists.
		s.worklist.AddEntry(s.Manager.GetCSVar(newCtx, callee.This), Singleton(s.Manager, o))

		if _, isNew := s.callGraph.AddEdge(inv.Kind, csCallSite, csMethod); isNew {
			s.addArgAndReturnEdges(recv.Context, newCtx, inv, callee)
			s.Taint.HandleCall(recv, o, csCallSite, callee)
			s.addReachable(csMethod)
		}
	}
}
