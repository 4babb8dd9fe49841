package domain

import (
	"sort"
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

// BuildDepth 将挂单按价格聚合成档位：买盘价格从高到低，卖盘从低到高，各取前 levels 档
func BuildDepth(instrument string, orders []*Order, levels int, now time.Time) (*MarketDepth, error) {
	bids := make(map[uint64]*PriceLevel)
	asks := make(map[uint64]*PriceLevel)
	for _, o := range orders {
		if o.Kind != KindLimit || !o.IsOpen() || o.RemainingAmount == 0 {
			continue
		}
		side := asks
		if o.Side == SideBuy {
			side = bids
		}
		lvl, ok := side[o.Price]
		if !ok {
			lvl = &PriceLevel{Price: o.Price}
			side[o.Price] = lvl
		}
		qty, err := safemath.Add(lvl.Quantity, o.RemainingAmount)
		if err != nil {
			return nil, err
		}
		lvl.Quantity = qty
		lvl.Count++
	}

	return &MarketDepth{
		Instrument: instrument,
		Bids:       topLevels(bids, levels, true),
		Asks:       topLevels(asks, levels, false),
		Timestamp:  now,
	}, nil
}

func topLevels(m map[uint64]*PriceLevel, levels int, desc bool) []PriceLevel {
	out := make([]PriceLevel, 0, len(m))
	for _, l := range m {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	if levels > 0 && len(out) > levels {
		out = out[:levels]
	}
	return out
}
