package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/safemath"
	"pgregory.net/rapid"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func mustHolding(t *testing.T) *Holding {
	t.Helper()
	h, err := NewHolding("alice", "ACME", t0)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestAcquireWeightedAverage(t *testing.T) {
	h := mustHolding(t)
	if err := h.Acquire(10, 100, t0); err != nil {
		t.Fatal(err)
	}
	if h.AveragePrice != 100 || h.TotalInvested != 1000 || h.CurrentValue != 1000 || h.ProfitLoss != 0 {
		t.Fatalf("first acquisition: %+v", h)
	}
	if err := h.Acquire(10, 200, t0); err != nil {
		t.Fatal(err)
	}
	if h.Amount != 20 || h.AveragePrice != 150 || h.TotalInvested != 3000 || h.CurrentValue != 4000 || h.ProfitLoss != 1000 {
		t.Fatalf("blended: %+v", h)
	}
}

func TestAcquireTruncatesAverage(t *testing.T) {
	h := mustHolding(t)
	_ = h.Acquire(1, 100, t0)
	if err := h.Acquire(2, 101, t0); err != nil {
		t.Fatal(err)
	}
	if h.AveragePrice != 100 || h.TotalInvested != 302 {
		t.Fatalf("holding = %+v", h)
	}
}

func TestDisposeKeepsAveragePrice(t *testing.T) {
	h := mustHolding(t)
	_ = h.Acquire(10, 100, t0)
	_ = h.Acquire(10, 200, t0)

	if err := h.Dispose(5, 300, t0); err != nil {
		t.Fatal(err)
	}
	if h.Amount != 15 || h.AveragePrice != 150 || h.TotalInvested != 2250 || h.CurrentValue != 4500 || h.ProfitLoss != 2250 {
		t.Fatalf("after dispose: %+v", h)
	}

	before := *h
	if err := h.Dispose(16, 300, t0); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("over-dispose: %v", err)
	}
	if *h != before {
		t.Fatalf("rejected dispose mutated holding: %+v", h)
	}
}

func TestProfitLossIsSigned(t *testing.T) {
	h := mustHolding(t)
	_ = h.Acquire(10, 100, t0)
	if err := h.MarkToMarket(50, t0); err != nil {
		t.Fatal(err)
	}
	if h.CurrentValue != 500 || h.ProfitLoss != -500 {
		t.Fatalf("holding = %+v", h)
	}
}

func TestHoldingRejectsInvalidInput(t *testing.T) {
	h := mustHolding(t)
	for _, tc := range []struct{ amount, price uint64 }{{0, 1}, {1, 0}} {
		if err := h.Acquire(tc.amount, tc.price, t0); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("acquire(%d,%d): %v", tc.amount, tc.price, err)
		}
	}
	if err := h.Acquire(1<<40, 1<<40, t0); !errors.Is(err, safemath.ErrOverflow) {
		t.Fatalf("overflow: %v", err)
	}
	if h.Amount != 0 || h.TotalInvested != 0 {
		t.Fatalf("rejected acquire mutated holding: %+v", h)
	}
}

// 买卖任意交替后，平均价 × 数量不超过剩余成本，且盈亏恒等于市值减成本
func TestCostBasisCoversAveragePrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h, _ := NewHolding("alice", "ACME", t0)
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			price := rapid.Uint64Range(1, 10_000).Draw(t, "price")
			if h.Amount > 0 && rapid.Bool().Draw(t, "sell") {
				amount := rapid.Uint64Range(1, h.Amount).Draw(t, "sell_amount")
				if err := h.Dispose(amount, price, t0); err != nil {
					t.Fatalf("dispose: %v", err)
				}
			} else {
				amount := rapid.Uint64Range(1, 10_000).Draw(t, "buy_amount")
				if err := h.Acquire(amount, price, t0); err != nil {
					t.Fatalf("acquire: %v", err)
				}
			}

			if h.AveragePrice*h.Amount > h.TotalInvested {
				t.Fatalf("avg %d × amount %d exceeds invested %d", h.AveragePrice, h.Amount, h.TotalInvested)
			}
			if h.CurrentValue != h.Amount*price {
				t.Fatalf("current value %d != %d × %d", h.CurrentValue, h.Amount, price)
			}
			if h.ProfitLoss != int64(h.CurrentValue)-int64(h.TotalInvested) {
				t.Fatalf("pnl %d inconsistent with %+v", h.ProfitLoss, h)
			}
		}
	})
}

func TestPortfolioRecompute(t *testing.T) {
	a := mustHolding(t)
	_ = a.Acquire(10, 100, t0)
	_ = a.MarkToMarket(120, t0)

	b, _ := NewHolding("alice", "BOLT", t0)
	_ = b.Acquire(4, 50, t0)
	_ = b.Dispose(4, 40, t0)

	c, _ := NewHolding("alice", "CORE", t0)
	_ = c.Acquire(2, 500, t0)
	_ = c.MarkToMarket(400, t0)

	p := NewPortfolio("alice", t0)
	if err := p.Recompute([]*Holding{a, b, c}, t0); err != nil {
		t.Fatal(err)
	}
	if p.TotalHoldings != 12 || p.HoldingsCount != 2 {
		t.Fatalf("counts: %+v", p)
	}
	if p.TotalValue != 2000 || p.TotalInvested != 2000 || p.TotalProfitLoss != 0 {
		t.Fatalf("totals: %+v", p)
	}
	if !p.ReturnRate().IsZero() {
		t.Fatalf("return rate = %s", p.ReturnRate())
	}

	_ = a.MarkToMarket(150, t0)
	_ = p.Recompute([]*Holding{a, b, c}, t0)
	if p.TotalProfitLoss != 300 || p.ReturnRate().String() != "0.15" {
		t.Fatalf("after mark: %+v rate=%s", p, p.ReturnRate())
	}
}
