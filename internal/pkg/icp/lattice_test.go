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

package icp_test

import (
	"testing"

	"github.com/whole-program/wpacore/internal/pkg/icp"
	"github.com/whole-program/wpacore/internal/pkg/ir"
)

// TestMeetLaws checks the three lattice laws §8 requires of meet:
// commutative, associative, idempotent.
func TestMeetLaws(t *testing.T) {
	vals := []icp.Value{
		icp.Undefined(),
		icp.NotConstant(),
		icp.Constant(0),
		icp.Constant(1),
		icp.Constant(-7),
	}
	for _, a := range vals {
		for _, b := range vals {
			if icp.Meet(a, b) != icp.Meet(b, a) {
				t.Errorf("meet(%v,%v) != meet(%v,%v): not commutative", a, b, b, a)
			}
			if icp.Meet(a, a) != a {
				t.Errorf("meet(%v,%v) = %v, want %v: not idempotent", a, a, icp.Meet(a, a), a)
			}
			for _, c := range vals {
				lhs := icp.Meet(icp.Meet(a, b), c)
				rhs := icp.Meet(a, icp.Meet(b, c))
				if lhs != rhs {
					t.Errorf("meet(meet(%v,%v),%v) = %v, meet(%v,meet(%v,%v)) = %v: not associative", a, b, c, lhs, a, b, c, rhs)
				}
			}
		}
	}
}

// TestEvaluateMonotone checks that evaluate is monotone in its fact
// argument: widening an operand (CONST -> NAC) never produces a more
// precise (lower) result.
func TestEvaluateMonotone(t *testing.T) {
	rank := func(v icp.Value) int {
		switch {
		case v.IsUndef():
			return 0
		case v.IsConst():
			return 1
		default:
			return 2
		}
	}
	y := icp.Constant(3)
	before := icp.Evaluate(ir.Add, icp.Constant(5), y)
	after := icp.Evaluate(ir.Add, icp.NotConstant(), y)
	if rank(after) < rank(before) {
		t.Errorf("evaluate(NAC,3) = %v is more precise than evaluate(5,3) = %v: not monotone", after, before)
	}
}

func TestDivisionByZero(t *testing.T) {
	if v := icp.Evaluate(ir.Div, icp.Constant(5), icp.Constant(0)); !v.IsUndef() {
		t.Errorf("evaluate(5/0) = %v, want UNDEF", v)
	}
	if v := icp.Evaluate(ir.Div, icp.NotConstant(), icp.Constant(0)); !v.IsUndef() {
		t.Errorf("evaluate(NAC/0) = %v, want UNDEF: division-by-zero must dominate NAC", v)
	}
	if v := icp.Evaluate(ir.Rem, icp.Constant(5), icp.Constant(0)); !v.IsUndef() {
		t.Errorf("evaluate(5%%0) = %v, want UNDEF", v)
	}
}
