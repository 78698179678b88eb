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

// WorklistEntry pairs a Pointer with a candidate delta to be unioned into
// its current points-to set (§3, §4.5).
type WorklistEntry struct {
	Pointer Pointer
	Delta   *PointsToSet
}

// Worklist is a FIFO queue of pending WorklistEntry values. AddEntry never
// blocks; duplicate entries are allowed since propagation is idempotent
// (re-delivering a delta that has already been absorbed is a harmless no-op
// in propagate).
type Worklist struct {
	entries []WorklistEntry
}

// NewWorklist creates an empty Worklist.
func NewWorklist() *Worklist {
	return &Worklist{}
}

// AddEntry enqueues (p, delta).
func (w *Worklist) AddEntry(p Pointer, delta *PointsToSet) {
	w.entries = append(w.entries, WorklistEntry{Pointer: p, Delta: delta})
}

// IsEmpty reports whether the worklist has no pending entries.
func (w *Worklist) IsEmpty() bool { return len(w.entries) == 0 }

// PollEntry removes and returns the head of the queue.
func (w *Worklist) PollEntry() WorklistEntry {
	e := w.entries[0]
	w.entries = w.entries[1:]
	return e
}
