// Package safemath 提供金额与数量的无符号 64 位检查运算，溢出时返回错误而不是回绕
package safemath

import (
	"math"
	"math/bits"

	"github.com/wyfcoding/tokenexchange/pkg/apperr"
)

var (
	ErrOverflow       = apperr.New(apperr.KindArithmetic, "ArithmeticOverflow", "arithmetic overflow")
	ErrUnderflow      = apperr.New(apperr.KindArithmetic, "ArithmeticUnderflow", "arithmetic underflow")
	ErrDivisionByZero = apperr.New(apperr.KindArithmetic, "DivisionByZero", "division by zero")
)

// Add a + b
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub a - b
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// Mul a * b
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Div floor(a / b)
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

// MulDiv floor(a * b / c)，中间结果按 128 位计算
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivisionByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, nil
}

// Diff 有符号差 a - b，结果超出 int64 范围时报溢出
func Diff(a, b uint64) (int64, error) {
	if a >= b {
		d := a - b
		if d > math.MaxInt64 {
			return 0, ErrOverflow
		}
		return int64(d), nil
	}
	d := b - a
	if d > math.MaxInt64+1 {
		return 0, ErrOverflow
	}
	if d == math.MaxInt64+1 {
		return math.MinInt64, nil
	}
	return -int64(d), nil
}

// AddSigned 有符号加法
func AddSigned(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}
