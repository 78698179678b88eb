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

// Package taint implements the TaintEngine (C7, §4.7): a second, parallel
// propagation that piggy-backs on the CS-PTA's worklist and pointer-flow
// graph instead of running its own separate fixed-point loop.
package taint

import (
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Site is a taint object's allocation site: the source call site whose
// return value introduced it. Taint objects are keyed by
// (callsite, type) rather than by a syntactic `new`, since a source never
// allocates anything in the underlying IR (§3, "Obj").
type Site struct {
	CallSite *cspta.CSCallSite
	Type     ir.Type
}

func (s Site) String() string { return "taint@" + s.CallSite.String() }

// isSite satisfies cspta.Site, letting a tainted cspta.Obj carry a taint
// Site exactly like an ordinary cspta.Obj carries a cspta.AllocSite.
func (Site) isSite() {}

// Manager mints at most one cspta.Obj per (call site, type) pair, so two
// sources observed at the same call site collapse onto the same taint
// object instead of diverging the points-to sets they're merged into.
type Manager struct {
	objs map[manKey]*cspta.Obj
}

type manKey struct {
	callSite *cspta.CSCallSite
	typ      ir.Type
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{objs: make(map[manKey]*cspta.Obj)}
}

// GetOrCreate returns the canonical taint Obj for (callSite, typ).
func (m *Manager) GetOrCreate(callSite *cspta.CSCallSite, typ ir.Type) *cspta.Obj {
	key := manKey{callSite: callSite, typ: typ}
	if o, ok := m.objs[key]; ok {
		return o
	}
	o := &cspta.Obj{Site: Site{CallSite: callSite, Type: typ}, Type: typ}
	m.objs[key] = o
	return o
}

// IsTaint reports whether o is a taint object, i.e. whether its Site is a
// taint Site. It does not check which Manager minted o.
func (m *Manager) IsTaint(o *cspta.Obj) bool {
	_, ok := o.Site.(Site)
	return ok
}
