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

package icp

import "github.com/whole-program/wpacore/internal/pkg/ir"

// EvaluateOperand resolves an ir.Operand to a Value against fact: a literal
// operand is always a known CONST, a variable operand is whatever fact
// currently says about it.
func EvaluateOperand(op ir.Operand, fact Fact) Value {
	if op.Var == nil {
		return Constant(int32(op.Literal))
	}
	return fact.Get(op.Var)
}

// Evaluate computes the Value of `x op y` (§4.9). Division and remainder by
// a known-zero divisor are special-cased to UNDEF: that case dominates every
// other combination rule, including an otherwise-NAC dividend, since a
// divide that provably traps at run time never settles on a representable
// result value.
func Evaluate(op ir.BinOpKind, x, y Value) Value {
	if y.Kind == Const && y.Const == 0 && (op == ir.Div || op == ir.Rem) {
		return Undefined()
	}
	if x.IsNAC() || y.IsNAC() {
		return NotConstant()
	}
	if x.IsUndef() || y.IsUndef() {
		return Undefined()
	}
	return Constant(apply(op, x.Const, y.Const))
}

func apply(op ir.BinOpKind, a, b int32) int32 {
	switch op {
	case ir.Add:
		return a + b
	case ir.Sub:
		return a - b
	case ir.Mul:
		return a * b
	case ir.Div:
		return a / b
	case ir.Rem:
		return a % b
	case ir.Shl:
		return a << (uint32(b) & 31)
	case ir.Shr:
		return a >> (uint32(b) & 31)
	case ir.Ushr:
		return int32(uint32(a) >> (uint32(b) & 31))
	case ir.And:
		return a & b
	case ir.Or:
		return a | b
	case ir.Xor:
		return a ^ b
	case ir.Eq:
		return boolInt(a == b)
	case ir.Ne:
		return boolInt(a != b)
	case ir.Lt:
		return boolInt(a < b)
	case ir.Le:
		return boolInt(a <= b)
	case ir.Gt:
		return boolInt(a > b)
	case ir.Ge:
		return boolInt(a >= b)
	default:
		return 0
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
