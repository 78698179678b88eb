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

// Package wpa is the public entry point for embedding the whole-program
// analysis core in another Go program, re-exporting the internal/pkg/analysis
// surface the way the teacher's pkg/levee re-exports its internal analyzer
// for external consumers (e.g. a nogo or go vet driver) that cannot import
// internal/ packages across module boundaries.
package wpa

import (
	"github.com/whole-program/wpacore/internal/pkg/analysis"
	"github.com/whole-program/wpacore/internal/pkg/cspta"
	"github.com/whole-program/wpacore/internal/pkg/diagnostics"
	"github.com/whole-program/wpacore/internal/pkg/ir"
	"github.com/whole-program/wpacore/internal/pkg/result"
)

// Options configures one analysis run. See internal/pkg/analysis.Options.
type Options = analysis.Options

// Report is the combined output of one analysis run. See
// internal/pkg/result.Report.
type Report = result.Report

// Diagnostics accumulates non-fatal ConfigError/ResolutionFailure entries.
type Diagnostics = diagnostics.Sink

// CSManager is the canonicalization table Options.Selector is parameterized
// over. See internal/pkg/cspta.CSManager.
type CSManager = cspta.CSManager

// ContextSelector chooses CS-PTA's context sensitivity.
type ContextSelector = cspta.ContextSelector

// Insensitive is the plain (context-insensitive) Andersen selector.
type Insensitive = cspta.Insensitive

// CallSiteSensitive is k-CFA context sensitivity.
type CallSiteSensitive = cspta.CallSiteSensitive

// ObjectSensitive is k-object-sensitive context sensitivity.
type ObjectSensitive = cspta.ObjectSensitive

// TypeSensitive is k-type-sensitive context sensitivity.
type TypeSensitive = cspta.TypeSensitive

// Run analyzes classes starting from mainMethod and returns the combined
// pointer-analysis, taint, and constant-propagation Report.
func Run(opts Options, classes []*ir.Class, mainMethod *ir.Method) (*Report, error) {
	return analysis.Run(opts, classes, mainMethod)
}
