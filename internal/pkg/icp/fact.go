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
	"fmt"

	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Fact is a dataflow fact: a map from local variable to lattice value (§3).
// A variable absent from the map is implicitly UNDEF - the product
// lattice's bottom element is the empty map, not one with every key
// present. Fact only ever holds *ir.Var keys: it is the per-node,
// flow-sensitive half of the analysis state, rebuilt fresh across every
// Call/Return edge. The flow-insensitive half - static fields and (o,f)/
// (o,index) heap slots, which must survive a call or return unchanged - is
// GlobalStore, not Fact; FieldKey/StaticKey/ArrayKey below are GlobalStore
// keys, kept in this file because they round out the set of storage
// locations ICP as a whole tracks.
//
// Using a plain interface{}-keyed map rather than a closed sum type keeps
// Fact a single flat map - Meet and Equal need no case analysis, they just
// compare map entries.
type Fact map[interface{}]Value

// FieldKey identifies one heap object's instance field slot in a
// GlobalStore, collapsed across every context the object's allocation site
// was analyzed under - ICP is context-insensitive (§9), so Obj rather than
// cspta.CSObj is the right granularity here.
type FieldKey struct {
	Obj   interface{} // *cspta.Obj; declared as interface{} to avoid an import cycle
	Field *ir.Field
}

func (k FieldKey) String() string { return fmt.Sprintf("%v.%s", k.Obj, k.Field.Name) }

// StaticKey identifies a static field slot in a GlobalStore.
type StaticKey struct {
	Field *ir.Field
}

func (k StaticKey) String() string { return k.Field.String() }

// ArrayKey identifies one heap object's array cells at a specific index
// Value in a GlobalStore (§4.9: "for every o ∈ pt(a) update (o, indexValue)
// entry with meet"). Index is itself a lattice Value, not a concrete
// integer: a write through an index whose own value is NAC is tracked
// under its own NAC-indexed bucket, separate from any concrete-indexed
// writes to the same object, exactly as a distinct CONST(0) and CONST(1)
// write would be.
type ArrayKey struct {
	Obj   interface{} // *cspta.Obj
	Index Value
}

func (k ArrayKey) String() string { return fmt.Sprintf("%v[%s]", k.Obj, k.Index) }

// NewFact returns an empty Fact (every location implicitly UNDEF).
func NewFact() Fact { return make(Fact) }

// Get returns key's value, defaulting to UNDEF if key has no entry.
func (f Fact) Get(key interface{}) Value {
	if val, ok := f[key]; ok {
		return val
	}
	return Undefined()
}

// Set records key's value, unless it is UNDEF, in which case the entry is
// removed - keeping the map's size proportional to what is actually known
// rather than to every location ever seen.
func (f Fact) Set(key interface{}, val Value) {
	if val.IsUndef() {
		delete(f, key)
		return
	}
	f[key] = val
}

// Copy returns an independent copy of f.
func (f Fact) Copy() Fact {
	out := make(Fact, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Equal reports whether f and other hold exactly the same variable/value
// pairs.
func (f Fact) Equal(other Fact) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MeetInto merges from into to in place (pointwise Meet over every variable
// mentioned in either fact), returning true iff to changed.
func MeetInto(from Fact, to Fact) bool {
	changed := false
	for v, val := range from {
		old := to.Get(v)
		merged := Meet(old, val)
		if merged != old {
			to.Set(v, merged)
			changed = true
		}
	}
	return changed
}
