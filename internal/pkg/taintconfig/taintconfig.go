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

// Package taintconfig loads the declarative taint policy document: the
// finite sets of sources, sinks, and transfers the TaintEngine is
// parameterized by (§4.7, §6 "Taint configuration (consumed)").
package taintconfig

import (
	"fmt"
	"io/ioutil"

	"sigs.k8s.io/yaml"

	"github.com/whole-program/wpacore/internal/pkg/config/regexp"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// Special "from"/"to" endpoints for a Transfer, per §4.7: "BASE = -1,
// RESULT = -2 by convention; arg indices are non-negative."
const (
	Base   = -1
	Result = -2
)

// MethodPattern matches a declared method by its class name and method name.
type MethodPattern struct {
	Class  regexp.Regexp `json:"class"`
	Method regexp.Regexp `json:"method"`
}

// Matches reports whether m is selected by this pattern.
func (p MethodPattern) Matches(m *ir.Method) bool {
	class := ""
	if m.Class != nil {
		class = m.Class.Name
	}
	return p.Class.MatchString(class) && p.Method.MatchString(m.Name)
}

// Source declares that calls to a matching method introduce taint on the
// call's result, when the result's declared type matches Type.
type Source struct {
	Method MethodPattern `json:"method"`
	Type   regexp.Regexp `json:"type"`
}

// Matches reports whether invoking callee should be treated as a source.
func (s Source) Matches(callee *ir.Method, resultType ir.Type) bool {
	return s.Method.Matches(callee) && s.Type.MatchString(resultType.Name)
}

// Sink declares that the argument at ArgIndex of a matching call must never
// carry taint.
type Sink struct {
	Method   MethodPattern `json:"method"`
	ArgIndex int           `json:"argIndex"`
}

// Transfer declares that taint on endpoint From of a matching call carries
// over to endpoint To. From/To are Base, Result, or a non-negative arg index.
type Transfer struct {
	Method MethodPattern `json:"method"`
	From   int           `json:"from"`
	To     int           `json:"to"`
}

// Config is the full taint policy: finite sets of sources, sinks, and
// transfers.
type Config struct {
	Sources   []Source   `json:"sources"`
	Sinks     []Sink     `json:"sinks"`
	Transfers []Transfer `json:"transfers"`
}

// Load reads and parses a taint configuration document. The document may be
// either JSON or YAML (sigs.k8s.io/yaml accepts both, converting YAML to
// JSON before applying the struct tags above).
func Load(path string) (*Config, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taintconfig: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(bytes, &c); err != nil {
		return nil, fmt.Errorf("taintconfig: parsing %s: %w", path, err)
	}
	return &c, nil
}

// SinksFor returns every configured Sink whose method pattern matches callee.
func (c *Config) SinksFor(callee *ir.Method) []Sink {
	var out []Sink
	for _, s := range c.Sinks {
		if s.Method.Matches(callee) {
			out = append(out, s)
		}
	}
	return out
}

// TransfersFor returns every configured Transfer whose method pattern
// matches callee.
func (c *Config) TransfersFor(callee *ir.Method) []Transfer {
	var out []Transfer
	for _, t := range c.Transfers {
		if t.Method.Matches(callee) {
			out = append(out, t)
		}
	}
	return out
}

// Unresolved reports, for diagnostic purposes, every Source/Sink/Transfer
// method pattern that does not match any method in classes. Per §7 a
// ConfigError like this is logged and skipped: the analysis proceeds with
// the remaining, resolvable rules.
func (c *Config) Unresolved(classes []*ir.Class) []string {
	var all []*ir.Method
	for _, cl := range classes {
		all = append(all, cl.Methods...)
	}
	matchesAny := func(p MethodPattern) bool {
		for _, m := range all {
			if p.Matches(m) {
				return true
			}
		}
		return false
	}
	var problems []string
	for i, s := range c.Sources {
		if !matchesAny(s.Method) {
			problems = append(problems, fmt.Sprintf("source[%d]: no method matches class=%q method=%q", i, s.Method.Class.String(), s.Method.Method.String()))
		}
	}
	for i, s := range c.Sinks {
		if !matchesAny(s.Method) {
			problems = append(problems, fmt.Sprintf("sink[%d]: no method matches class=%q method=%q", i, s.Method.Class.String(), s.Method.Method.String()))
		}
	}
	for i, t := range c.Transfers {
		if !matchesAny(t.Method) {
			problems = append(problems, fmt.Sprintf("transfer[%d]: no method matches class=%q method=%q", i, t.Method.Class.String(), t.Method.Method.String()))
		}
	}
	return problems
}
