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

// Package diagnostics implements the non-fatal half of the error taxonomy
// from §7: ConfigError and ResolutionFailure are recorded here rather than
// returned as Go errors, so a single malformed config entry or a single
// unresolved call site never aborts a whole-program run. InvariantViolation
// is not modeled here: it is a programmer error and fails fast via log.Fatal
// at the point of detection, per §7.
package diagnostics

import "fmt"

// Kind classifies a non-fatal diagnostic.
type Kind int

const (
	// ConfigError is a malformed or unresolved entry in the taint
	// configuration.
	ConfigError Kind = iota
	// ResolutionFailure is a call site whose callee could not be resolved
	// (e.g. resolveCallee returned nil because the receiver's class is
	// missing from the hierarchy).
	ResolutionFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case ResolutionFailure:
		return "ResolutionFailure"
	default:
		return "Unknown"
	}
}

// Diagnostic is one recorded non-fatal problem.
type Diagnostic struct {
	Kind    Kind
	Message string
}

func (d Diagnostic) String() string { return fmt.Sprintf("%s: %s", d.Kind, d.Message) }

// Sink accumulates diagnostics for the host to drain after a run completes.
// The solvers hold a *Sink (never nil: the zero value works) rather than a
// logger, so tests can assert on exactly what was reported.
type Sink struct {
	entries []Diagnostic
}

// Report records a diagnostic.
func (s *Sink) Report(kind Kind, format string, args ...interface{}) {
	s.entries = append(s.entries, Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Entries returns every diagnostic recorded so far, in order.
func (s *Sink) Entries() []Diagnostic {
	return s.entries
}
