package domain

import (
	"errors"
	"testing"
)

func TestOrderBookWatermarks(t *testing.T) {
	book, err := NewOrderBook("ACME", t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := book.MarketPrice(SideBuy); !errors.Is(err, ErrNoLiquidity) {
		t.Fatalf("empty book market price: %v", err)
	}

	steps := []struct {
		order  *Order
		bid    uint64
		ask    uint64
		nextID uint64
	}{
		{mustOrder(t, 1, "a", SideSell, KindLimit, 10, 10), 0, 10, 2},
		{mustOrder(t, 2, "b", SideSell, KindLimit, 10, 12), 0, 10, 3},
		{mustOrder(t, 3, "c", SideBuy, KindLimit, 10, 8), 8, 10, 4},
		{mustOrder(t, 4, "d", SideBuy, KindMarket, 10, 10), 8, 10, 5},
		{mustOrder(t, 5, "e", SideSell, KindLimit, 10, 9), 8, 9, 6},
		{mustOrder(t, 6, "f", SideBuy, KindLimit, 10, 7), 8, 9, 7},
	}
	for i, s := range steps {
		if err := book.RecordOrder(s.order, t0); err != nil {
			t.Fatal(err)
		}
		if book.BestBid != s.bid || book.BestAsk != s.ask {
			t.Fatalf("step %d: bid/ask = %d/%d, want %d/%d", i, book.BestBid, book.BestAsk, s.bid, s.ask)
		}
		if id, _ := book.NextOrderID(); id != s.nextID {
			t.Fatalf("step %d: next id = %d, want %d", i, id, s.nextID)
		}
	}
	if book.TotalBuyOrders != 3 || book.TotalSellOrders != 3 {
		t.Fatalf("counters = %d/%d", book.TotalBuyOrders, book.TotalSellOrders)
	}

	spread, ok := book.Spread()
	if !ok || spread.String() != "1" {
		t.Fatalf("spread = %s, %v", spread, ok)
	}
	mid, _ := book.MidPrice()
	if mid.String() != "8.5" {
		t.Fatalf("mid = %s", mid)
	}

	if err := book.ApplyTrade(50, 10, t0); err != nil {
		t.Fatal(err)
	}
	if book.LastTradePrice != 10 || book.TotalVolume != 50 {
		t.Fatalf("after trade: %+v", book)
	}
}

func TestBuildDepth(t *testing.T) {
	filled := mustOrder(t, 5, "e", SideSell, KindLimit, 10, 10)
	filled.Status = StatusFilled
	filled.RemainingAmount = 0
	orders := []*Order{
		mustOrder(t, 1, "a", SideSell, KindLimit, 10, 10),
		mustOrder(t, 2, "b", SideSell, KindLimit, 5, 10),
		mustOrder(t, 3, "c", SideSell, KindLimit, 7, 12),
		mustOrder(t, 4, "d", SideBuy, KindLimit, 3, 8),
		mustOrder(t, 6, "f", SideBuy, KindLimit, 4, 9),
		mustOrder(t, 7, "g", SideBuy, KindMarket, 4, 10),
		filled,
	}
	depth, err := BuildDepth("ACME", orders, 1, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(depth.Asks) != 1 || depth.Asks[0] != (PriceLevel{Price: 10, Quantity: 15, Count: 2}) {
		t.Fatalf("asks = %+v", depth.Asks)
	}
	if len(depth.Bids) != 1 || depth.Bids[0] != (PriceLevel{Price: 9, Quantity: 4, Count: 1}) {
		t.Fatalf("bids = %+v", depth.Bids)
	}
}
