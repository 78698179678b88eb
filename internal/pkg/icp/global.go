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

import "github.com/whole-program/wpacore/internal/pkg/ir"

// arrayObjKey is the reader-registration granularity for array cells: a
// LoadArray with an unresolved (NAC) index may read any entry ever recorded
// for an object, not just the one ArrayKey its current index names, so its
// dependency is registered against the object as a whole rather than
// against one index.
type arrayObjKey struct{ Obj interface{} }

// GlobalStore holds the whole-program static-field and (o,f)/(o,index) heap
// slots §4.9 describes as living outside any one ICFG node's flowing fact:
// "update global static-field map with meet ... enqueue all LoadField
// statements that read f". A Fact is per-node and is rebuilt fresh across
// every Call/Return edge (only parameters and the return value cross a call
// boundary); GlobalStore is the opposite - one slot per location for the
// whole solve, written by every StoreField/StoreArray anywhere in the
// program and read by every LoadField/LoadArray anywhere in the program, so
// a store in one method is visible to a load in any other.
type GlobalStore struct {
	vals    map[interface{}]Value
	readers map[interface{}]map[ir.Stmt]bool
}

// NewGlobalStore returns an empty GlobalStore.
func NewGlobalStore() *GlobalStore {
	return &GlobalStore{
		vals:    make(map[interface{}]Value),
		readers: make(map[interface{}]map[ir.Stmt]bool),
	}
}

// Get returns key's current value, defaulting to UNDEF.
func (g *GlobalStore) Get(key interface{}) Value {
	if v, ok := g.vals[key]; ok {
		return v
	}
	return Undefined()
}

// MeetUpdate merges val into key's slot, returning true iff the slot's
// value changed as a result.
func (g *GlobalStore) MeetUpdate(key interface{}, val Value) bool {
	old := g.Get(key)
	merged := Meet(old, val)
	if merged == old {
		return false
	}
	g.vals[key] = merged
	return true
}

// AddReader records that reader's out-fact depends on key, so a later
// MeetUpdate(key, ...) that changes key's value can report reader back
// through ReadersOf for the solver to re-enqueue (§4.9's "enqueue all
// LoadField statements that read f").
func (g *GlobalStore) AddReader(key interface{}, reader ir.Stmt) {
	set, ok := g.readers[key]
	if !ok {
		set = make(map[ir.Stmt]bool)
		g.readers[key] = set
	}
	set[reader] = true
}

// ReadersOf returns every node previously registered via AddReader(key, _).
func (g *GlobalStore) ReadersOf(key interface{}) []ir.Stmt {
	set := g.readers[key]
	out := make([]ir.Stmt, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

// arrayKeysForObj returns every ArrayKey currently recorded for o, for a
// LoadArray to meet over (§4.9's "(o, kiv) where iv = NAC or kiv = NAC or
// kiv = iv").
func (g *GlobalStore) arrayKeysForObj(o interface{}) []ArrayKey {
	var out []ArrayKey
	for k := range g.vals {
		if ak, ok := k.(ArrayKey); ok && ak.Obj == o {
			out = append(out, ak)
		}
	}
	return out
}

// Snapshot returns every currently-recorded location and value, for
// rendering into a Report once a solve has finished.
func (g *GlobalStore) Snapshot() map[interface{}]Value {
	out := make(map[interface{}]Value, len(g.vals))
	for k, v := range g.vals {
		out[k] = v
	}
	return out
}
