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

import (
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/taintconfig"
)

// Engine is the TaintEngine (C7, §4.7). It implements cspta.TaintHook and is
// handed to cspta.NewCSPTASolver: the solver calls back into it as calls are
// discovered and points-to sets grow, and the engine pushes its own entries
// onto the solver's shared Worklist rather than running a separate
// fixed-point loop of its own (§9 design note).
type Engine struct {
	Config    *taintconfig.Config
	CSManager *cspta.CSManager
	Taint     *Manager
	Worklist  *cspta.Worklist

	ifg          *InfoFlowGraph
	sinkOblByVar map[*cspta.CSVar][]sinkObligation
	flows        flowSet
}

type sinkObligation struct {
	CallSite *cspta.CSCallSite
	ArgIndex int
}

// NewEngine builds an Engine over cfg, sharing mgr and the given Worklist
// with the CSPTASolver that will drive it.
func NewEngine(cfg *taintconfig.Config, mgr *cspta.CSManager, worklist *cspta.Worklist) *Engine {
	return &Engine{
		Config:       cfg,
		CSManager:    mgr,
		Taint:        NewManager(),
		Worklist:     worklist,
		ifg:          NewInfoFlowGraph(),
		sinkOblByVar: make(map[*cspta.CSVar][]sinkObligation),
	}
}

// HandleCall implements cspta.TaintHook: it checks callSite against the
// configured sources, sinks, and transfers, each time the solver discovers
// (or rediscovers) a call to callee.
func (e *Engine) HandleCall(baseVar *cspta.CSVar, baseObj *cspta.CSObj, callSite *cspta.CSCallSite, callee *ir.Method) {
	inv := callSite.Invoke
	ctx := callSite.Context

	if inv.LHS != nil {
		for _, src := range e.Config.Sources {
			if !src.Matches(callee, inv.LHS.Type) {
				continue
			}
			obj := e.Taint.GetOrCreate(callSite, inv.LHS.Type)
			csObj := e.CSManager.GetCSObj(ctx, obj)
			e.Worklist.AddEntry(e.CSManager.GetCSVar(ctx, inv.LHS), cspta.Singleton(e.CSManager, csObj))
		}
	}

	for _, sink := range e.Config.SinksFor(callee) {
		argVar := e.resolveEndpoint(sink.ArgIndex, baseVar, inv, ctx)
		if argVar == nil {
			continue
		}
		e.sinkOblByVar[argVar] = append(e.sinkOblByVar[argVar], sinkObligation{CallSite: callSite, ArgIndex: sink.ArgIndex})
		e.checkSinkNow(argVar, callSite, sink.ArgIndex)
	}

	for _, tr := range e.Config.TransfersFor(callee) {
		from := e.resolveEndpoint(tr.From, baseVar, inv, ctx)
		to := e.resolveEndpoint(tr.To, baseVar, inv, ctx)
		if from == nil || to == nil {
			continue
		}
		e.addIFGEdge(from, to)
	}
}

// resolveEndpoint maps a Transfer/Sink endpoint (Base, Result, or a
// non-negative argument index, §4.7) to the CSVar it denotes at this
// particular call occurrence.
func (e *Engine) resolveEndpoint(idx int, baseVar *cspta.CSVar, inv *ir.Invoke, ctx *cspta.Context) *cspta.CSVar {
	switch idx {
	case taintconfig.Base:
		return baseVar
	case taintconfig.Result:
		if inv.LHS == nil {
			return nil
		}
		return e.CSManager.GetCSVar(ctx, inv.LHS)
	default:
		if idx < 0 || idx >= len(inv.Args) {
			return nil
		}
		return e.CSManager.GetCSVar(ctx, inv.Args[idx])
	}
}

// addIFGEdge adds a transfer edge and, if new, seeds the worklist with the
// taint objects currently in the source endpoint's points-to set - mirroring
// CSPTASolver.addPFGEdge, but along the IFG rather than the PFG, and carrying
// only taint, the same filter Propagate applies (§4.7).
func (e *Engine) addIFGEdge(src, dst *cspta.CSVar) {
	if !e.ifg.AddEdge(src, dst) {
		return
	}
	taintDelta := cspta.NewPointsToSet(e.CSManager)
	for _, o := range src.PointsTo().Objects() {
		if e.Taint.IsTaint(o.Obj) {
			taintDelta.Add(o)
		}
	}
	if !taintDelta.IsEmpty() {
		e.Worklist.AddEntry(dst, taintDelta)
	}
}

// Propagate implements cspta.TaintHook: whenever the solver's own propagate
// delivers a new delta to pointer p, the engine forwards the taint-object
// subset of that delta along any IFG successors of p, and re-checks every
// sink obligation registered on p.
func (e *Engine) Propagate(p cspta.Pointer, delta *cspta.PointsToSet) {
	var taintOnly []*cspta.CSObj
	for _, o := range delta.Objects() {
		if e.Taint.IsTaint(o.Obj) {
			taintOnly = append(taintOnly, o)
		}
	}
	if len(taintOnly) == 0 {
		return
	}
	taintDelta := cspta.NewPointsToSet(e.CSManager)
	for _, o := range taintOnly {
		taintDelta.Add(o)
	}
	for _, q := range e.ifg.Succs(p) {
		e.Worklist.AddEntry(q, taintDelta)
	}
	if csVar, ok := p.(*cspta.CSVar); ok {
		for _, obl := range e.sinkOblByVar[csVar] {
			for _, o := range taintOnly {
				e.flows.add(Flow{Source: o.Obj.Site.(Site).CallSite, Sink: obl.CallSite, ArgIndex: obl.ArgIndex})
			}
		}
	}
}

// checkSinkNow records flows for taint objects already present in argVar's
// points-to set at the moment a sink obligation is registered, so that sink
// detection does not depend on the order HandleCall and Propagate fire in.
func (e *Engine) checkSinkNow(argVar *cspta.CSVar, callSite *cspta.CSCallSite, argIndex int) {
	for _, o := range argVar.PointsTo().Objects() {
		if e.Taint.IsTaint(o.Obj) {
			e.flows.add(Flow{Source: o.Obj.Site.(Site).CallSite, Sink: callSite, ArgIndex: argIndex})
		}
	}
}

// IsTaint implements cspta.TaintHook.
func (e *Engine) IsTaint(o *cspta.CSObj) bool { return e.Taint.IsTaint(o.Obj) }

// OnFinish implements cspta.TaintHook; there is nothing left to flush, since
// every flow is recorded as soon as it is discovered.
func (e *Engine) OnFinish() {}

// Flows returns every confirmed source-to-sink flow, deduplicated and in a
// deterministic order.
func (e *Engine) Flows() []Flow { return e.flows.sorted() }
