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
	"strings"

	"golang.org/x/tools/container/intsets"
)

// PointsToSet is a set of CSObjs with monotonic insertion; no removal (§3).
// It is backed by intsets.Sparse, keyed by each CSObj's canonical handle
// (assigned once, by CSManager, the first time the CSObj is created) rather
// than by hashing the CSObj pointer itself on every operation.
type PointsToSet struct {
	mgr  *CSManager
	bits intsets.Sparse
}

// NewPointsToSet builds an empty, mutable PointsToSet owned by mgr. Package
// taint uses this to assemble ad-hoc deltas (e.g. the taint-only subset of a
// larger delta) outside of CSManager's own lazy-allocation paths.
func NewPointsToSet(mgr *CSManager) *PointsToSet {
	return &PointsToSet{mgr: mgr}
}

// Add inserts o, returning true iff it was not already present.
func (s *PointsToSet) Add(o *CSObj) bool {
	return s.bits.Insert(o.handle)
}

// Contains reports whether o is a member.
func (s *PointsToSet) Contains(o *CSObj) bool {
	return s.bits.Has(o.handle)
}

// Len returns the number of members.
func (s *PointsToSet) Len() int { return s.bits.Len() }

// IsEmpty reports whether the set has no members.
func (s *PointsToSet) IsEmpty() bool { return s.bits.IsEmpty() }

// Objects returns the set's members. The order is unspecified.
func (s *PointsToSet) Objects() []*CSObj {
	ids := s.bits.AppendTo(nil)
	out := make([]*CSObj, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.mgr.objByHandle(id))
	}
	return out
}

// UnionWith adds every member of other into s; returns true iff s changed.
func (s *PointsToSet) UnionWith(other *PointsToSet) bool {
	return s.bits.UnionWith(&other.bits)
}

// Diff returns a fresh PointsToSet holding the members of delta that are not
// already in s (delta \ s). Neither s nor delta is mutated.
func (s *PointsToSet) Diff(delta *PointsToSet) *PointsToSet {
	out := &PointsToSet{mgr: s.mgr}
	out.bits.Copy(&delta.bits)
	out.bits.DifferenceWith(&s.bits)
	return out
}

// Singleton builds a one-element PointsToSet containing o.
func Singleton(mgr *CSManager, o *CSObj) *PointsToSet {
	s := &PointsToSet{mgr: mgr}
	s.bits.Insert(o.handle)
	return s
}

func (s *PointsToSet) String() string {
	objs := s.Objects()
	strs := make([]string, len(objs))
	for i, o := range objs {
		strs[i] = o.String()
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
