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

package taint

import (
	"fmt"
	"sort"

	"github.com/whole-program/wpacore/internal/pkg/cspta"
)

// Flow is one confirmed source-to-sink flow: taint introduced at Source
// reached ArgIndex of the call at Sink.
type Flow struct {
	Source   *cspta.CSCallSite
	Sink     *cspta.CSCallSite
	ArgIndex int
}

func (f Flow) String() string {
	return fmt.Sprintf("%s -> %s[%d]", f.Source, f.Sink, f.ArgIndex)
}

func (f Flow) key() string { return fmt.Sprintf("%p|%p|%d", f.Source, f.Sink, f.ArgIndex) }

// flowSet accumulates Flow values, deduplicating repeat reports: the same
// object can reach the same sink through more than one propagation path,
// but it is one finding, not N (§8, "taint filter idempotence").
type flowSet struct {
	seen  map[string]bool
	flows []Flow
}

func (s *flowSet) add(f Flow) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	k := f.key()
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.flows = append(s.flows, f)
}

// sorted returns every recorded Flow in a deterministic order, for stable
// reporting and testing.
func (s *flowSet) sorted() []Flow {
	out := make([]Flow, len(s.flows))
	copy(out, s.flows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source.String() != out[j].Source.String() {
			return out[i].Source.String() < out[j].Source.String()
		}
		if out[i].Sink.String() != out[j].Sink.String() {
			return out[i].Sink.String() < out[j].Sink.String()
		}
		return out[i].ArgIndex < out[j].ArgIndex
	})
	return out
}
