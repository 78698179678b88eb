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

package regexp

import (
	"encoding/json"
	"testing"

	"sigs.k8s.io/yaml"
)

func TestUnmarshalJSON(t *testing.T) {
	testCases := []struct {
		desc      string
		in        []byte
		wantMatch string
		wantErr   bool
	}{
		{
			desc:      "valid regex",
			in:        []byte(`"^hello$"`),
			wantMatch: "hello",
		},
		{
			desc:    "empty regex",
			in:      []byte(`""`),
			wantErr: true,
		},
		{
			desc:    "invalid regex",
			in:      []byte(`"["`),
			wantErr: true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			got := &Regexp{}
			err := json.Unmarshal(tt.in, got)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("got nil error, wanted one")
				}
				return
			}
			if err != nil {
				t.Fatalf("got error %v, wanted nil", err)
			}
			if !got.MatchString(tt.wantMatch) {
				t.Fatalf("got false, wanted true for MatchString(%s)", tt.wantMatch)
			}
		})
	}
}

func TestUnmarshalYAML(t *testing.T) {
	var r Regexp
	if err := yaml.Unmarshal([]byte("^secret$"), &r); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if !r.MatchString("secret") {
		t.Fatalf("expected pattern compiled from YAML scalar to match")
	}
}
