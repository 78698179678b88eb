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

// Package classhierarchy provides a class-hierarchy-analysis (CHA) style
// callee resolver: the "Class hierarchy (consumed)" collaborator of the
// pointer analysis core, and the CHA-based call resolver fallback the
// implementation budget sets aside room for.
package classhierarchy

import "github.com/whole-program/wpacore/internal/pkg/ir"

// Hierarchy answers dispatch queries against a fixed set of classes.
type Hierarchy struct {
	classes map[string]*ir.Class
	// subsigIndex lists, per subsignature, every concrete method in the
	// hierarchy implementing it. New fills it in; Dispatch and
	// ResolveCallee do not consult it, they walk the superclass chain.
	subsigIndex map[ir.Subsignature][]*ir.Method
}

// New builds a Hierarchy over the given classes.
func New(classes []*ir.Class) *Hierarchy {
	h := &Hierarchy{
		classes:     make(map[string]*ir.Class, len(classes)),
		subsigIndex: make(map[ir.Subsignature][]*ir.Method),
	}
	for _, c := range classes {
		h.classes[c.Name] = c
		for _, m := range c.Methods {
			if !m.Abstract {
				sig := m.Subsignature()
				h.subsigIndex[sig] = append(h.subsigIndex[sig], m)
			}
		}
	}
	return h
}

// Class looks up a declared class by name.
func (h *Hierarchy) Class(name string) *ir.Class { return h.classes[name] }

// Dispatch resolves a subsignature against a concrete receiver class by
// walking superclasses until a non-abstract match is found, per §6's
// "dispatch(class, subsignature) resolves by walking superclasses until a
// non-abstract match is found".
func (h *Hierarchy) Dispatch(class *ir.Class, sub ir.Subsignature) *ir.Method {
	for c := class; c != nil; c = c.Super {
		for _, m := range c.Methods {
			if !m.Abstract && m.Subsignature() == sub {
				return m
			}
		}
	}
	return nil
}

// isSubclassOf reports whether sub is class or a (possibly transitive)
// subclass/implementor of base.
func (h *Hierarchy) isSubclassOf(sub, base *ir.Class) bool {
	if sub == base {
		return true
	}
	for c := sub; c != nil; c = c.Super {
		if c == base {
			return true
		}
		for _, i := range c.Interfaces {
			if h.isSubclassOf(i, base) {
				return true
			}
		}
	}
	return false
}

// Subclasses returns every declared class that is class or a (transitive)
// subclass/implementor of it, including class itself.
func (h *Hierarchy) Subclasses(class *ir.Class) []*ir.Class {
	var out []*ir.Class
	for _, c := range h.classes {
		if h.isSubclassOf(c, class) {
			out = append(out, c)
		}
	}
	return out
}

// ResolveCallee implements the "Class hierarchy (consumed)" external
// interface: resolveCallee(receiverType?, invoke) -> Method?.
//
// For static and special calls the declared Method is already the exact
// target. For virtual and interface calls the receiverType's dispatch table
// is consulted. Dynamic calls (e.g. calls through a first-class function
// value with no declared receiver type at all) cannot be resolved by CHA and
// always return nil: per §7, that is a non-fatal ResolutionFailure, not an
// edge into the call graph.
func (h *Hierarchy) ResolveCallee(receiverType *ir.Class, invoke *ir.Invoke) *ir.Method {
	switch invoke.Kind {
	case ir.StaticCall, ir.SpecialCall:
		return invoke.Method
	case ir.VirtualCall, ir.InterfaceCall:
		if receiverType == nil {
			return nil
		}
		return h.Dispatch(receiverType, invoke.Method.Subsignature())
	default: // DynamicCall
		return nil
	}
}
