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

// Package result collects the three artifacts a run produces (§6,
// "Results (produced)") into one serializable Report: the pointer-analysis
// result, the taint flows, and the ICP facts. Everything here is plain,
// string-keyed data rather than the solvers' own pointer-heavy types, so a
// Report can be marshaled, diffed, and compared across runs without pinning
// down the lifetime of the CSManager that produced it.
package result

import (
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/icfg"
	"github.com/whole-program/wpacore/internal/pkg/icp"
	"github.com/whole-program/wpacore/internal/pkg/taint"
)

// VarPointsTo is one Var's (context-collapsed) points-to set.
type VarPointsTo struct {
	Var  string   `json:"var"`
	Objs []string `json:"objs"`
}

// CallGraphEdge is one resolved call-graph edge, with contexts rendered into
// its String() form rather than kept as live pointers.
type CallGraphEdge struct {
	Kind     string `json:"kind"`
	CallSite string `json:"callSite"`
	Callee   string `json:"callee"`
}

// Flow is one confirmed source-to-sink taint flow.
type Flow struct {
	Source   string `json:"source"`
	Sink     string `json:"sink"`
	ArgIndex int    `json:"argIndex"`
}

// ICPFact is one ICFG node's computed in/out dataflow facts, each rendered
// as location -> value strings.
type ICPFact struct {
	Node string            `json:"node"`
	In   map[string]string `json:"in"`
	Out  map[string]string `json:"out"`
}

// ICPGlobalFact is one static-field or (o,f)/(o,index) heap-slot value,
// collected from the solver's whole-program GlobalStore rather than from
// any one node's in/out facts (§4.9).
type ICPGlobalFact struct {
	Location string `json:"location"`
	Value    string `json:"value"`
}

// Report is the full, serializable output of one analysis run (§6).
type Report struct {
	// PTAIdentifier names this run's pointer-analysis result, echoing the
	// `pta` Options key (§6) a later ICP-only run could use to refer back to
	// it. This module computes ICP in the same process immediately after
	// CS-PTA, so the identifier is carried through for interface fidelity
	// rather than used to look anything up.
	PTAIdentifier string `json:"ptaIdentifier,omitempty"`

	PointsTo   []VarPointsTo   `json:"pointsTo"`
	CallGraph  []CallGraphEdge `json:"callGraph"`
	Flows      []Flow          `json:"flows,omitempty"`
	ICP        []ICPFact       `json:"icp,omitempty"`
	ICPGlobals []ICPGlobalFact `json:"icpGlobals,omitempty"`
}

// BuildPointsTo renders every Var the manager ever canonicalized into its
// collapsed points-to set (§6: "for every Var, its points-to set of Objs").
func BuildPointsTo(mgr *cspta.CSManager) []VarPointsTo {
	q := cspta.NewQuery(mgr)
	seen := make(map[string]bool)
	var out []VarPointsTo
	for _, cv := range mgr.AllVars() {
		key := cv.Var.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		objs := q.PointsTo(cv.Var)
		strs := make([]string, len(objs))
		for i, o := range objs {
			strs[i] = o.String()
		}
		sort.Strings(strs)
		out = append(out, VarPointsTo{Var: key, Objs: strs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// BuildCallGraph renders cg's edges (§6: "CS call graph: reachable methods,
// edges with CallKind").
func BuildCallGraph(cg *cspta.CallGraph) []CallGraphEdge {
	edges := cg.Edges()
	out := make([]CallGraphEdge, len(edges))
	for i, e := range edges {
		out[i] = CallGraphEdge{
			Kind:     e.Kind.String(),
			CallSite: e.CallSite.String(),
			Callee:   e.Callee.String(),
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CallSite != out[j].CallSite {
			return out[i].CallSite < out[j].CallSite
		}
		return out[i].Callee < out[j].Callee
	})
	return out
}

// BuildFlows renders engine's confirmed flows (§6: "sorted set of
// (sourceCallSite, sinkCallSite, sinkArgIndex) triples").
func BuildFlows(engine *taint.Engine) []Flow {
	if engine == nil {
		return nil
	}
	flows := engine.Flows()
	out := make([]Flow, len(flows))
	for i, f := range flows {
		out[i] = Flow{Source: f.Source.String(), Sink: f.Sink.String(), ArgIndex: f.ArgIndex}
	}
	return out
}

// BuildICP renders solver's per-node in/out facts (§6: "per-node IN/OUT
// facts mapping Vars to Values").
func BuildICP(graph *icfg.Graph, solver *icp.Solver) []ICPFact {
	nodes := graph.Nodes()
	out := make([]ICPFact, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ICPFact{
			Node: n.String(),
			In:   renderFact(solver.InFact(n)),
			Out:  renderFact(solver.OutFact(n)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })
	return out
}

func renderFact(f icp.Fact) map[string]string {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[renderKey(k)] = v.String()
	}
	return out
}

func renderKey(k interface{}) string {
	if s, ok := k.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", k)
}

// BuildICPGlobals renders store's static-field and (o,f)/(o,index) slots
// (§6: "global static-field and heap-slot facts, alongside the per-node
// in/out facts").
func BuildICPGlobals(store *icp.GlobalStore) []ICPGlobalFact {
	snap := store.Snapshot()
	out := make([]ICPGlobalFact, 0, len(snap))
	for k, v := range snap {
		out = append(out, ICPGlobalFact{Location: renderKey(k), Value: v.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Marshal renders r as YAML (§6: "serializable Report struct, marshaled
// with sigs.k8s.io/yaml").
func (r *Report) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// Unmarshal parses a YAML or JSON document produced by Marshal.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("result: parsing report: %w", err)
	}
	return &r, nil
}
