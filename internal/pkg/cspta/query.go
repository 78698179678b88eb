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

// Query answers alias questions about a finished (or still-running) solve,
// collapsing away context: it is the seam the (context-insensitive) ICP
// solver uses to ask the (context-sensitive) CS-PTA result "may x and y
// point to the same object" (§4.9, "ConstPropTransfer ... queries the
// pointer-analysis result for alias resolution").
type Query struct {
	mgr *CSManager
}

// NewQuery builds a Query over mgr.
func NewQuery(mgr *CSManager) *Query { return &Query{mgr: mgr} }

// PointsTo returns the distinct Objs that v may point to, under any context
// it was ever analyzed in. A nil/empty result means v was never observed to
// point anywhere - callers should treat that as "unknown", not "points to
// nothing", unless v is provably unreachable.
func (q *Query) PointsTo(v *ir.Var) []*Obj {
	seen := make(map[*Obj]bool)
	var out []*Obj
	for key, cv := range q.mgr.vars {
		if key.v != v {
			continue
		}
		for _, o := range cv.PointsTo().Objects() {
			if !seen[o.Obj] {
				seen[o.Obj] = true
				out = append(out, o.Obj)
			}
		}
	}
	return out
}
