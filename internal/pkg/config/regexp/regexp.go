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

// Package regexp wraps the standard library regexp package with a type that
// unmarshals cleanly from both JSON and YAML configuration documents.
package regexp

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Regexp is a compiled regular expression that can be embedded directly in a
// JSON- or YAML-tagged configuration struct.
type Regexp struct {
	re *regexp.Regexp
}

// MatchString reports whether s matches the pattern. An unset Regexp (the
// zero value) matches nothing.
func (r *Regexp) MatchString(s string) bool {
	if r == nil || r.re == nil {
		return false
	}
	return r.re.MatchString(s)
}

func (r *Regexp) String() string {
	if r == nil || r.re == nil {
		return ""
	}
	return r.re.String()
}

// UnmarshalJSON compiles the quoted pattern string. A missing or empty
// pattern is rejected: a matcher field with no pattern is almost always a
// configuration mistake, not an "match nothing" intent.
func (r *Regexp) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err != nil {
		return fmt.Errorf("regexp: invalid pattern literal: %w", err)
	}
	if pattern == "" {
		return fmt.Errorf("regexp: empty pattern")
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("regexp: %w", err)
	}
	r.re = compiled
	return nil
}

// MarshalJSON renders the pattern back as a quoted string.
func (r Regexp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.String())), nil
}

