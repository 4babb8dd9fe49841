package safemath

import (
	"errors"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestCheckedOps(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (uint64, error)
		want uint64
		err  error
	}{
		{"add", func() (uint64, error) { return Add(2, 3) }, 5, nil},
		{"add overflow", func() (uint64, error) { return Add(math.MaxUint64, 1) }, 0, ErrOverflow},
		{"sub", func() (uint64, error) { return Sub(5, 3) }, 2, nil},
		{"sub underflow", func() (uint64, error) { return Sub(3, 5) }, 0, ErrUnderflow},
		{"mul", func() (uint64, error) { return Mul(50, 10) }, 500, nil},
		{"mul overflow", func() (uint64, error) { return Mul(math.MaxUint64, 2) }, 0, ErrOverflow},
		{"div truncates", func() (uint64, error) { return Div(3000, 20) }, 150, nil},
		{"div by zero", func() (uint64, error) { return Div(1, 0) }, 0, ErrDivisionByZero},
		{"fee", func() (uint64, error) { return MulDiv(500, 100, 10000) }, 5, nil},
		{"fee floors", func() (uint64, error) { return MulDiv(199, 50, 10000) }, 0, nil},
		{"muldiv zero", func() (uint64, error) { return MulDiv(1, 1, 0) }, 0, ErrDivisionByZero},
		{"muldiv overflow", func() (uint64, error) { return MulDiv(math.MaxUint64, math.MaxUint64, 1) }, 0, ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if err == nil && got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	if d, err := Diff(10, 25); err != nil || d != -15 {
		t.Fatalf("Diff(10,25) = %d, %v", d, err)
	}
	if d, err := Diff(0, 1<<63); err != nil || d != math.MinInt64 {
		t.Fatalf("Diff(0,2^63) = %d, %v", d, err)
	}
	if _, err := Diff(math.MaxUint64, 0); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestMulDivMatchesMulThenDiv(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64Range(0, math.MaxUint32).Draw(t, "a")
		b := rapid.Uint64Range(0, math.MaxUint32).Draw(t, "b")
		c := rapid.Uint64Range(1, math.MaxUint32).Draw(t, "c")
		got, err := MulDiv(a, b, c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := a * b / c; got != want {
			t.Fatalf("MulDiv(%d,%d,%d) = %d, want %d", a, b, c, got, want)
		}
	})
}
